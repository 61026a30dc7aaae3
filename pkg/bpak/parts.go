package bpak

// Part table operations (C3). Slots are a fixed-size array; "empty"
// means ID == 0. Live slots are kept contiguous at the front of the
// array in insertion order — add_part appends into the first empty
// slot, del_part compacts by shifting the remaining live slots left.

// AddPart appends a new part with the given id into the first empty
// part slot and returns a pointer to it for the caller to fill in.
func (h *Header) AddPart(id uint32) (*PartEntry, error) {
	if id == 0 {
		return nil, newErr(KindInvalidArgument, "AddPart", nil)
	}
	if _, _, err := h.findPart(id); err == nil {
		return nil, newErr(KindExists, "AddPart", nil)
	}
	for i := range h.Parts {
		if !h.Parts[i].live() {
			h.Parts[i] = PartEntry{ID: id}
			return &h.Parts[i], nil
		}
	}
	return nil, newErr(KindNoSpace, "AddPart", nil)
}

// GetPart returns the live part slot with the given id.
func (h *Header) GetPart(id uint32) (*PartEntry, error) {
	_, p, err := h.findPart(id)
	return p, err
}

func (h *Header) findPart(id uint32) (int, *PartEntry, error) {
	for i := range h.Parts {
		if h.Parts[i].live() && h.Parts[i].ID == id {
			return i, &h.Parts[i], nil
		}
	}
	return -1, nil, newErr(KindNotFound, "findPart", nil)
}

// DelPart marks the part's slot empty and compacts the table so live
// slots remain contiguous and in their original relative order.
func (h *Header) DelPart(id uint32) error {
	idx, _, err := h.findPart(id)
	if err != nil {
		return err
	}
	copy(h.Parts[idx:], h.Parts[idx+1:])
	h.Parts[len(h.Parts)-1] = PartEntry{}
	return nil
}

// ForeachPart yields each live part slot in storage (insertion) order.
// Iteration stops early if fn returns false.
func (h *Header) ForeachPart(fn func(*PartEntry) bool) {
	for i := range h.Parts {
		if !h.Parts[i].live() {
			return
		}
		if !fn(&h.Parts[i]) {
			return
		}
	}
}

// PartCount returns the number of live part slots.
func (h *Header) PartCount() int {
	n := 0
	for i := range h.Parts {
		if h.Parts[i].live() {
			n++
		}
	}
	return n
}

// PartOffset returns part.offset.
func PartOffset(p *PartEntry) uint64 { return p.Offset }

// PartSize returns the on-disk byte count for part: transport_size if
// BPAK_FLAG_TRANSPORT is set, else size.
func PartSize(p *PartEntry) uint64 { return p.onDiskSize() }

// PartNominalSize is always part.size, regardless of transport state.
func PartNominalSize(p *PartEntry) uint64 { return p.Size }

// alignPad returns the pad_bytes needed so that size rounds up to a
// multiple of alignment.
func alignPad(size uint64, alignment uint32) uint8 {
	a := uint64(alignment)
	rem := size % a
	if rem == 0 {
		return 0
	}
	return uint8(a - rem)
}
