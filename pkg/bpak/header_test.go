package bpak

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h, err := NewHeader(HashSHA256, SignatureEd25519)
	require.NoError(t, err)

	part, err := h.AddPart(0x11223344)
	require.NoError(t, err)
	part.Size = 4096
	part.Offset = HeaderSize
	part.Flags = FlagExcludeFromHash

	meta, err := h.AddMeta(MetaKeyPackage, 0, 16)
	require.NoError(t, err)
	copy(meta, []byte("0123456789abcdef"))

	h.SignatureSz = 3
	copy(h.Signature[:], []byte{1, 2, 3})

	image := h.Serialize()
	require.Len(t, image, HeaderSize)

	got, err := ValidateHeader(image)
	require.NoError(t, err)
	require.Equal(t, h, got, "round-tripping a valid header through Serialize/ValidateHeader must be byte-exact")

	require.Equal(t, image, got.Serialize())
}

func TestValidateHeaderRejectsBadMagic(t *testing.T) {
	h, err := NewHeader(HashSHA256, SignatureEd25519)
	require.NoError(t, err)
	image := h.Serialize()
	image[0] = 0xFF

	_, err = ValidateHeader(image)
	require.Error(t, err)
	require.Equal(t, KindInvalidHeader, err.(*Error).Kind)
}

func TestValidateHeaderRejectsUnknownVersion(t *testing.T) {
	h, err := NewHeader(HashSHA256, SignatureEd25519)
	require.NoError(t, err)
	image := h.Serialize()
	image[4] = 99

	_, err = ValidateHeader(image)
	require.Error(t, err)
}

func TestValidateHeaderRejectsUnknownHashKind(t *testing.T) {
	h, err := NewHeader(HashSHA256, SignatureEd25519)
	require.NoError(t, err)
	image := h.Serialize()
	image[8] = 0xEE

	_, err = ValidateHeader(image)
	require.Error(t, err)
}

func TestValidateHeaderRejectsWrongSize(t *testing.T) {
	_, err := ValidateHeader(make([]byte, HeaderSize-1))
	require.Error(t, err)
}

func TestValidateHeaderRejectsOverlappingMeta(t *testing.T) {
	h, err := NewHeader(HashSHA256, SignatureEd25519)
	require.NoError(t, err)
	_, err = h.AddMeta(MetaKeyPackage, 0, 8)
	require.NoError(t, err)
	image := h.Serialize()

	// Hand-craft a second meta slot overlapping the first's byte range.
	off := metaTableOffset + MetaEntrySize
	putUint32(image[off:off+4], MetaKeyVersion)
	putUint32(image[off+4:off+8], 0)
	image[off+8] = 4 // data_offset = 4, overlapping [0,8)
	image[off+9] = 0
	image[off+10] = 4 // size = 4
	image[off+11] = 0

	_, err = ValidateHeader(image)
	require.Error(t, err)
}

func TestValidateHeaderRejectsMisalignedPart(t *testing.T) {
	h, err := NewHeader(HashSHA256, SignatureEd25519)
	require.NoError(t, err)
	p, err := h.AddPart(1)
	require.NoError(t, err)
	p.Size = 10
	p.Offset = 10 // not aligned to 4096

	image := h.Serialize()
	_, err = ValidateHeader(image)
	require.Error(t, err)
}

func TestPartOrderingAfterAddAndDel(t *testing.T) {
	h, err := NewHeader(HashSHA256, SignatureEd25519)
	require.NoError(t, err)

	ids := []uint32{10, 20, 30, 40}
	for i, id := range ids {
		p, err := h.AddPart(id)
		require.NoError(t, err)
		p.Size = 4096
		p.Offset = uint64(HeaderSize + i*4096)
	}

	require.NoError(t, h.DelPart(20))

	var seen []uint32
	first := true
	var lastOffset uint64
	h.ForeachPart(func(p *PartEntry) bool {
		seen = append(seen, p.ID)
		if !first {
			require.Greater(t, p.Offset, lastOffset)
		}
		first = false
		lastOffset = p.Offset
		return true
	})
	require.Equal(t, []uint32{10, 30, 40}, seen, "live slots stay contiguous and keep insertion order after a delete")
}

func TestAddPartRejectsDuplicateID(t *testing.T) {
	h, err := NewHeader(HashSHA256, SignatureEd25519)
	require.NoError(t, err)
	_, err = h.AddPart(7)
	require.NoError(t, err)
	_, err = h.AddPart(7)
	require.Error(t, err)
	require.Equal(t, KindExists, err.(*Error).Kind)
}

func TestAddPartRejectsTableFull(t *testing.T) {
	h, err := NewHeader(HashSHA256, SignatureEd25519)
	require.NoError(t, err)
	for i := 1; i <= NParts; i++ {
		_, err := h.AddPart(uint32(i))
		require.NoError(t, err)
	}
	_, err = h.AddPart(uint32(NParts + 1))
	require.Error(t, err)
	require.Equal(t, KindNoSpace, err.(*Error).Kind)
}
