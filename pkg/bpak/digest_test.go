package bpak

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestArchive(t *testing.T, payload []byte) *Package {
	t.Helper()
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "a.bpak")

	pkg, err := CreateWithKinds(archivePath, HashSHA256, SignatureEd25519, nil)
	require.NoError(t, err)

	dataPath := filepath.Join(dir, "payload.bin")
	require.NoError(t, os.WriteFile(dataPath, payload, 0o644))
	require.NoError(t, pkg.AddFile(dataPath, "firmware.bin", 0))

	return pkg
}

func TestPayloadHashSkipsPadding(t *testing.T) {
	payload := bytes.Repeat([]byte{0x42}, 100) // not a multiple of alignment, so pad_bytes > 0
	pkg := newTestArchive(t, payload)
	defer pkg.Close()

	sum1, err := PayloadHash(pkg.Stream(), pkg.Header, pkg.Location)
	require.NoError(t, err)

	// Corrupt a padding byte beyond the part's nominal size; the payload
	// hash must not change since padding is never fed to the digest.
	part, err := pkg.Header.GetPart(mustID(t, "firmware.bin"))
	require.NoError(t, err)
	require.Greater(t, part.PadBytes, uint8(0))
	_, err = pkg.Stream().WriteAt([]byte{0xFF}, int64(part.Offset)+int64(part.Size))
	require.NoError(t, err)

	sum2, err := PayloadHash(pkg.Stream(), pkg.Header, pkg.Location)
	require.NoError(t, err)
	require.Equal(t, sum1, sum2, "padding bytes must never be fed into the payload digest")
}

func TestPayloadHashInvariantUnderSignatureMutation(t *testing.T) {
	payload := bytes.Repeat([]byte{0x7A}, 4096)
	pkg := newTestArchive(t, payload)
	defer pkg.Close()

	require.NoError(t, pkg.RefreshPayloadHash())
	before := pkg.Header.PayloadHash

	pkg.Header.Signature = [512]byte{0xDE, 0xAD, 0xBE, 0xEF}
	pkg.Header.SignatureSz = 4

	require.NoError(t, pkg.RefreshPayloadHash())
	require.Equal(t, before, pkg.Header.PayloadHash, "payload hash must be invariant under signature/signature_sz mutation")
}

func TestHeaderHashInvariantUnderSignatureMutation(t *testing.T) {
	h, err := NewHeader(HashSHA256, SignatureEd25519)
	require.NoError(t, err)

	d1, err := HeaderHash(h)
	require.NoError(t, err)

	h.Signature = [512]byte{1, 2, 3}
	h.SignatureSz = 3

	d2, err := HeaderHash(h)
	require.NoError(t, err)

	require.Equal(t, d1, d2, "header hash zeroes the signature slot before hashing, so it must not depend on its contents")
	// HeaderHash must also be idempotent: it must restore the signature
	// fields it temporarily zeroed.
	require.Equal(t, uint16(3), h.SignatureSz)
	require.Equal(t, byte(1), h.Signature[0])
}

func mustID(t *testing.T, name string) uint32 {
	t.Helper()
	id, err := IDHash(name)
	require.NoError(t, err)
	return id
}
