// Package bpak implements the BPAK container format: a fixed-size
// header carrying typed metadata and a part table, followed by a
// sequence of aligned payload parts. It provides the header codec,
// the part/meta table operations, the payload/header digest engine,
// the signer/verifier contract, and the package façade described by
// the format's specification; compression, delta and Merkle transport
// re-encoding live in the sibling pkg/transport and pkg/merkle packages.
package bpak

import (
	"encoding/binary"
	"fmt"
)

// Wire layout constants. These are part of the on-disk format, not an
// implementation detail — changing them changes the format.
const (
	HeaderSize = 4096

	NParts = 32 // part table capacity
	NMeta  = 32 // meta table capacity

	MetaDataPoolSize = 2048 // shared byte pool backing meta entries
	MetaEntrySize    = 12   // {id u32, part_id_ref u32, data_offset u16, size u16}
	PartEntrySize    = 30   // {id u32, size u64, transport_size u64, offset u64, pad_bytes u8, flags u8}

	metaTableOffset = 602
	metaTableSize   = NMeta * MetaEntrySize
	metaPoolOffset  = metaTableOffset + metaTableSize
	partTableOffset = metaPoolOffset + MetaDataPoolSize
	partTableSize   = NParts * PartEntrySize
	reservedOffset  = partTableOffset + partTableSize
	reservedSize    = HeaderSize - reservedOffset

	DefaultAlignment = 4096
)

// Magic is the literal 4-byte BPAK magic sequence.
var Magic = [4]byte{0x4B, 0x41, 0x50, 0x42}

// CurrentVersion is the only version this package writes; it also reads
// no other version, per invariant 1.
const CurrentVersion uint32 = 2

// HashKind selects the digest algorithm used for the payload and header
// hashes.
type HashKind uint8

const (
	HashInvalid HashKind = 0
	HashSHA256  HashKind = 1
	HashSHA384  HashKind = 2
	HashSHA512  HashKind = 3
)

func (h HashKind) valid() bool {
	return h == HashSHA256 || h == HashSHA384 || h == HashSHA512
}

func (h HashKind) String() string {
	switch h {
	case HashSHA256:
		return "sha256"
	case HashSHA384:
		return "sha384"
	case HashSHA512:
		return "sha512"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(h))
	}
}

// SignatureKind selects the signature algorithm framed in the header.
type SignatureKind uint8

const (
	SignatureInvalid    SignatureKind = 0
	SignaturePrime256v1 SignatureKind = 1
	SignatureSecp384r1  SignatureKind = 2
	SignatureSecp521r1  SignatureKind = 3
	SignatureRSA4096    SignatureKind = 4
	SignatureEd25519    SignatureKind = 5
)

func (s SignatureKind) valid() bool {
	switch s {
	case SignaturePrime256v1, SignatureSecp384r1, SignatureSecp521r1, SignatureRSA4096, SignatureEd25519:
		return true
	default:
		return false
	}
}

func (s SignatureKind) String() string {
	switch s {
	case SignaturePrime256v1:
		return "prime256v1"
	case SignatureSecp384r1:
		return "secp384r1"
	case SignatureSecp521r1:
		return "secp521r1"
	case SignatureRSA4096:
		return "rsa4096"
	case SignatureEd25519:
		return "ed25519"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Part-table flags.
const (
	FlagTransport       uint8 = 1 << 0
	FlagExcludeFromHash uint8 = 1 << 1
)

// PartEntry describes one payload part's placement and state.
type PartEntry struct {
	ID            uint32
	Size          uint64
	TransportSize uint64
	Offset        uint64
	PadBytes      uint8
	Flags         uint8
}

func (p PartEntry) live() bool { return p.ID != 0 }

func (p PartEntry) hasFlag(f uint8) bool { return p.Flags&f != 0 }

// onDiskSize is part_size(p) from §4.3: the transport size while
// BPAK_FLAG_TRANSPORT is set, otherwise the nominal size.
func (p PartEntry) onDiskSize() uint64 {
	if p.hasFlag(FlagTransport) {
		return p.TransportSize
	}
	return p.Size
}

// MetaEntry describes one meta slot: a {id, part_id_ref} key and a byte
// range into the header's shared meta_data pool.
type MetaEntry struct {
	ID         uint32
	PartIDRef  uint32
	DataOffset uint16
	Size       uint16
}

func (m MetaEntry) live() bool { return m.ID != 0 }

// HeaderLocation records where the fixed-size header was found within
// the archive stream.
type HeaderLocation int

const (
	LocationFront HeaderLocation = iota
	LocationTail
)

// Header is the in-memory, fully decoded form of the fixed 4096-byte
// on-disk header. All multi-byte integers are little-endian on the
// wire; Header itself holds them as native Go integers.
type Header struct {
	Version       uint32
	HashKind      HashKind
	SignatureKind SignatureKind
	PayloadHash   [64]byte
	Signature     [512]byte
	SignatureSz   uint16
	KeystoreID    uint32
	KeyID         uint32
	Alignment     uint32

	Meta  [NMeta]MetaEntry
	Parts [NParts]PartEntry

	metaData [MetaDataPoolSize]byte
}

// NewHeader returns a freshly initialized header with the given hash and
// signature kinds and the default alignment, ready to have parts and
// meta entries added.
func NewHeader(hashKind HashKind, sigKind SignatureKind) (*Header, error) {
	if !hashKind.valid() {
		return nil, newErr(KindUnsupportedHash, "NewHeader", nil)
	}
	if !sigKind.valid() {
		return nil, newErr(KindUnsupportedSignature, "NewHeader", nil)
	}
	return &Header{
		Version:       CurrentVersion,
		HashKind:      hashKind,
		SignatureKind: sigKind,
		Alignment:     DefaultAlignment,
	}, nil
}

// Serialize produces the byte-exact, deterministic 4096-byte on-disk
// image of h.
func (h *Header) Serialize() []byte {
	buf := make([]byte, HeaderSize)

	copy(buf[0:4], Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	buf[8] = uint8(h.HashKind)
	buf[9] = uint8(h.SignatureKind)
	// buf[10:12] pad0, left zero

	copy(buf[12:76], h.PayloadHash[:])
	copy(buf[76:588], h.Signature[:])
	binary.LittleEndian.PutUint16(buf[588:590], h.SignatureSz)
	binary.LittleEndian.PutUint32(buf[590:594], h.KeystoreID)
	binary.LittleEndian.PutUint32(buf[594:598], h.KeyID)
	binary.LittleEndian.PutUint32(buf[598:602], h.Alignment)

	for i, m := range h.Meta {
		off := metaTableOffset + i*MetaEntrySize
		binary.LittleEndian.PutUint32(buf[off:off+4], m.ID)
		binary.LittleEndian.PutUint32(buf[off+4:off+8], m.PartIDRef)
		binary.LittleEndian.PutUint16(buf[off+8:off+10], m.DataOffset)
		binary.LittleEndian.PutUint16(buf[off+10:off+12], m.Size)
	}

	copy(buf[metaPoolOffset:metaPoolOffset+MetaDataPoolSize], h.metaData[:])

	for i, p := range h.Parts {
		off := partTableOffset + i*PartEntrySize
		binary.LittleEndian.PutUint32(buf[off:off+4], p.ID)
		binary.LittleEndian.PutUint64(buf[off+4:off+12], p.Size)
		binary.LittleEndian.PutUint64(buf[off+12:off+20], p.TransportSize)
		binary.LittleEndian.PutUint64(buf[off+20:off+28], p.Offset)
		buf[off+28] = p.PadBytes
		buf[off+29] = p.Flags
	}

	// buf[reservedOffset:] left zero.
	_ = reservedSize

	return buf
}

// ValidateHeader parses and validates a 4096-byte header image, checking
// magic/version/kind fields, invariants 3 through 6 of the format, and
// the part alignment, padding and ordering checks of invariants 7 and 8.
func ValidateHeader(buf []byte) (*Header, error) {
	if len(buf) != HeaderSize {
		return nil, newErr(KindInvalidHeader, "ValidateHeader", fmt.Errorf("want %d bytes, got %d", HeaderSize, len(buf)))
	}
	if string(buf[0:4]) != string(Magic[:]) {
		return nil, newErr(KindInvalidHeader, "ValidateHeader", fmt.Errorf("bad magic"))
	}

	h := &Header{}
	h.Version = binary.LittleEndian.Uint32(buf[4:8])
	if h.Version != CurrentVersion {
		return nil, newErr(KindInvalidHeader, "ValidateHeader", fmt.Errorf("unsupported version %d", h.Version))
	}

	h.HashKind = HashKind(buf[8])
	if !h.HashKind.valid() {
		return nil, newErr(KindInvalidHeader, "ValidateHeader", fmt.Errorf("unrecognized hash kind %d", buf[8]))
	}
	h.SignatureKind = SignatureKind(buf[9])
	if !h.SignatureKind.valid() {
		return nil, newErr(KindInvalidHeader, "ValidateHeader", fmt.Errorf("unrecognized signature kind %d", buf[9]))
	}

	copy(h.PayloadHash[:], buf[12:76])
	copy(h.Signature[:], buf[76:588])
	h.SignatureSz = binary.LittleEndian.Uint16(buf[588:590])
	if h.SignatureSz > uint16(len(h.Signature)) {
		return nil, newErr(KindInvalidHeader, "ValidateHeader", fmt.Errorf("signature_sz %d exceeds slot", h.SignatureSz))
	}
	h.KeystoreID = binary.LittleEndian.Uint32(buf[590:594])
	h.KeyID = binary.LittleEndian.Uint32(buf[594:598])
	h.Alignment = binary.LittleEndian.Uint32(buf[598:602])

	seenMetaTail := false
	used := make([][2]uint16, 0, NMeta) // [offset, offset+size)
	for i := range h.Meta {
		off := metaTableOffset + i*MetaEntrySize
		m := MetaEntry{
			ID:         binary.LittleEndian.Uint32(buf[off : off+4]),
			PartIDRef:  binary.LittleEndian.Uint32(buf[off+4 : off+8]),
			DataOffset: binary.LittleEndian.Uint16(buf[off+8 : off+10]),
			Size:       binary.LittleEndian.Uint16(buf[off+10 : off+12]),
		}
		if !m.live() {
			seenMetaTail = true
			h.Meta[i] = m
			continue
		}
		if seenMetaTail {
			return nil, newErr(KindInvalidHeader, "ValidateHeader", fmt.Errorf("meta slot %d used after empty tail", i))
		}
		if int(m.DataOffset)+int(m.Size) > MetaDataPoolSize {
			return nil, newErr(KindInvalidHeader, "ValidateHeader", fmt.Errorf("meta slot %d exceeds data pool", i))
		}
		for _, u := range used {
			if rangesOverlap(uint16(m.DataOffset), m.Size, u[0], u[1]-u[0]) {
				return nil, newErr(KindInvalidHeader, "ValidateHeader", fmt.Errorf("meta slot %d overlaps another", i))
			}
		}
		used = append(used, [2]uint16{m.DataOffset, m.DataOffset + m.Size})
		h.Meta[i] = m
	}

	copy(h.metaData[:], buf[metaPoolOffset:metaPoolOffset+MetaDataPoolSize])

	seenPartTail := false
	var lastOffset uint64
	var lastEnd uint64
	for i := range h.Parts {
		off := partTableOffset + i*PartEntrySize
		p := PartEntry{
			ID:            binary.LittleEndian.Uint32(buf[off : off+4]),
			Size:          binary.LittleEndian.Uint64(buf[off+4 : off+12]),
			TransportSize: binary.LittleEndian.Uint64(buf[off+12 : off+20]),
			Offset:        binary.LittleEndian.Uint64(buf[off+20 : off+28]),
			PadBytes:      buf[off+28],
			Flags:         buf[off+29],
		}
		if !p.live() {
			seenPartTail = true
			h.Parts[i] = p
			continue
		}
		if seenPartTail {
			return nil, newErr(KindInvalidHeader, "ValidateHeader", fmt.Errorf("part slot %d used after empty tail", i))
		}
		if h.Alignment == 0 || h.Alignment&(h.Alignment-1) != 0 {
			return nil, newErr(KindInvalidHeader, "ValidateHeader", fmt.Errorf("alignment %d is not a power of two", h.Alignment))
		}
		if p.Offset%uint64(h.Alignment) != 0 {
			return nil, newErr(KindInvalidHeader, "ValidateHeader", fmt.Errorf("part %d offset %d not aligned", p.ID, p.Offset))
		}
		if uint64(p.PadBytes) >= uint64(h.Alignment) {
			return nil, newErr(KindInvalidHeader, "ValidateHeader", fmt.Errorf("part %d pad_bytes %d out of range", p.ID, p.PadBytes))
		}
		if (p.onDiskSize()+uint64(p.PadBytes))%uint64(h.Alignment) != 0 {
			return nil, newErr(KindInvalidHeader, "ValidateHeader", fmt.Errorf("part %d size+pad not alignment-multiple", p.ID))
		}
		if i > 0 && lastOffset >= p.Offset {
			return nil, newErr(KindInvalidHeader, "ValidateHeader", fmt.Errorf("parts out of order at slot %d", i))
		}
		if lastEnd != 0 && p.Offset < lastEnd {
			return nil, newErr(KindInvalidHeader, "ValidateHeader", fmt.Errorf("part %d overlaps previous", p.ID))
		}
		lastOffset = p.Offset
		lastEnd = p.Offset + p.onDiskSize() + uint64(p.PadBytes)
		h.Parts[i] = p
	}

	return h, nil
}

func rangesOverlap(aOff, aLen, bOff, bLen uint16) bool {
	aEnd := aOff + aLen
	bEnd := bOff + bLen
	return aOff < bEnd && bOff < aEnd
}
