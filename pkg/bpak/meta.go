package bpak

import "encoding/binary"

func putUint32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func getUint32(b []byte) uint32    { return binary.LittleEndian.Uint32(b) }

// Meta table operations (C3). Meta entries reference parts by id, not
// by pointer — part_ref == 0 means "global" (not scoped to any part).
// Meta byte payloads are allocated from the tail of the header's shared
// meta_data pool; existing allocations are never moved, so a delete
// would fragment the pool. The format has no del_meta operation.

// Known meta key names, hashed with the C1 id hasher at init time so
// components can look them up by id without recomputing the hash.
var (
	MetaKeyTransport      = MustIDHash("bpak-transport")
	MetaKeyMerkleSalt     = MustIDHash("merkle-salt")
	MetaKeyMerkleRootHash = MustIDHash("merkle-root-hash")
	MetaKeyKeyID          = MustIDHash("bpak-key-id")
	MetaKeyKeystoreID     = MustIDHash("bpak-keystore-id")
	MetaKeyPackage        = MustIDHash("bpak-package")
	MetaKeyPackageUID     = MustIDHash("bpak-package-uid")
	MetaKeyVersion        = MustIDHash("bpak-version")
	MetaKeyDependency     = MustIDHash("bpak-dependency")
)

func usedMetaBytes(h *Header) int {
	n := 0
	h.ForeachMeta(func(m *MetaEntry) bool {
		n += int(m.Size)
		return true
	})
	return n
}

// AddMeta allocates size bytes from the tail of the shared meta_data
// pool, appends a new meta slot {id, partRef, dataOffset, size} into the
// first empty meta slot, and returns a view into the allocated bytes for
// the caller to fill in.
func (h *Header) AddMeta(id uint32, partRef uint32, size int) ([]byte, error) {
	if id == 0 {
		return nil, newErr(KindInvalidArgument, "AddMeta", nil)
	}
	slot := -1
	for i := range h.Meta {
		if !h.Meta[i].live() {
			slot = i
			break
		}
	}
	if slot == -1 {
		return nil, newErr(KindNoSpace, "AddMeta", nil)
	}

	offset := usedMetaBytes(h)
	if offset+size > MetaDataPoolSize {
		return nil, newErr(KindNoSpace, "AddMeta", nil)
	}

	h.Meta[slot] = MetaEntry{
		ID:         id,
		PartIDRef:  partRef,
		DataOffset: uint16(offset),
		Size:       uint16(size),
	}
	return h.metaData[offset : offset+size], nil
}

// GetMeta returns the first meta slot matching both id and partRef
// (partRef == 0 means "global") along with a view into its bytes.
func (h *Header) GetMeta(id uint32, partRef uint32) ([]byte, error) {
	m, err := h.findMeta(id, partRef)
	if err != nil {
		return nil, err
	}
	return h.metaData[m.DataOffset : m.DataOffset+m.Size], nil
}

func (h *Header) findMeta(id uint32, partRef uint32) (*MetaEntry, error) {
	for i := range h.Meta {
		if !h.Meta[i].live() {
			continue
		}
		if h.Meta[i].ID == id && h.Meta[i].PartIDRef == partRef {
			return &h.Meta[i], nil
		}
	}
	return nil, newErr(KindNotFound, "findMeta", nil)
}

// SetMetaString is a convenience wrapper that (re)writes a global or
// part-scoped meta entry carrying a UTF-8 string, creating it if absent.
// Existing-value updates only work if the new value is the same length
// as the original allocation, matching the append-only pool model.
func (h *Header) SetMetaString(id uint32, partRef uint32, value string) error {
	if m, err := h.findMeta(id, partRef); err == nil {
		if int(m.Size) != len(value) {
			return newErr(KindNoSpace, "SetMetaString", nil)
		}
		copy(h.metaData[m.DataOffset:m.DataOffset+m.Size], value)
		return nil
	}
	buf, err := h.AddMeta(id, partRef, len(value))
	if err != nil {
		return err
	}
	copy(buf, value)
	return nil
}

// SetTransportAlgorithms records the encode/decode algorithm ids for
// part partRef under the bpak-transport meta key, as an 8-byte payload
// (encode_alg, decode_alg, both little-endian u32). Called by the
// transport engine before an encode pass so a later decode pass (run by
// anyone, not just the encoder) knows which back-end to invoke.
func (h *Header) SetTransportAlgorithms(partRef uint32, encodeAlg, decodeAlg uint32) error {
	var buf [8]byte
	putUint32(buf[0:4], encodeAlg)
	putUint32(buf[4:8], decodeAlg)
	if m, err := h.findMeta(MetaKeyTransport, partRef); err == nil {
		copy(h.metaData[m.DataOffset:m.DataOffset+m.Size], buf[:])
		return nil
	}
	dst, err := h.AddMeta(MetaKeyTransport, partRef, len(buf))
	if err != nil {
		return err
	}
	copy(dst, buf[:])
	return nil
}

// GetTransportAlgorithms looks up the bpak-transport meta entry scoped
// to partRef and returns its encode/decode algorithm ids. ok is false
// if no such entry exists, meaning the part is copied verbatim.
func (h *Header) GetTransportAlgorithms(partRef uint32) (encodeAlg, decodeAlg uint32, ok bool) {
	buf, err := h.GetMeta(MetaKeyTransport, partRef)
	if err != nil || len(buf) != 8 {
		return 0, 0, false
	}
	return getUint32(buf[0:4]), getUint32(buf[4:8]), true
}

// ForeachMeta yields each live meta slot in storage order.
func (h *Header) ForeachMeta(fn func(*MetaEntry) bool) {
	for i := range h.Meta {
		if !h.Meta[i].live() {
			return
		}
		if !fn(&h.Meta[i]) {
			return
		}
	}
}
