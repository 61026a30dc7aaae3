package bpak

import (
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// ed25519Signer and ed25519Verifier are a minimal bpak.Signer/Verifier pair used only to
// exercise the sign/verify contract in this package's own tests,
// independent of pkg/keys's PEM/DER loading.
type ed25519Signer struct{ priv ed25519.PrivateKey }

func (s ed25519Signer) Sign(digest []byte) ([]byte, error) { return ed25519.Sign(s.priv, digest), nil }

type ed25519Verifier struct{ pub ed25519.PublicKey }

func (v ed25519Verifier) Verify(digest, sig []byte) error {
	if !ed25519.Verify(v.pub, digest, sig) {
		return newErr(KindInvalidSignature, "Verify", nil)
	}
	return nil
}

func newEd25519Pair(t *testing.T) (ed25519Signer, ed25519Verifier) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return ed25519Signer{priv: priv}, ed25519Verifier{pub: pub}
}

func signedArchive(t *testing.T, payload []byte) (*Package, ed25519Verifier) {
	t.Helper()
	pkg := newTestArchive(t, payload)
	signer, verifier := newEd25519Pair(t)

	require.NoError(t, pkg.RefreshPayloadHash())
	require.NoError(t, Sign(pkg.Header, signer))
	require.NoError(t, pkg.WriteBack())

	return pkg, verifier
}

func TestSignThenVerifySucceeds(t *testing.T) {
	pkg, verifier := signedArchive(t, []byte("firmware payload bytes"))
	defer pkg.Close()

	require.NoError(t, VerifySignature(pkg.Stream(), pkg.Header, pkg.Location, verifier))
}

func TestVerifyDetectsPayloadTamper(t *testing.T) {
	payload := make([]byte, 8193) // S3/S5-style size, crosses an alignment boundary
	for i := range payload {
		payload[i] = byte(i)
	}
	pkg, verifier := signedArchive(t, payload)
	defer pkg.Close()

	// Flip one byte inside the live part body (offset 8192, within the
	// 8193-byte part starting at HeaderSize).
	part, err := pkg.Header.GetPart(mustID(t, "firmware.bin"))
	require.NoError(t, err)
	_, err = pkg.Stream().WriteAt([]byte{0xFF}, int64(part.Offset)+8192)
	require.NoError(t, err)

	err = VerifySignature(pkg.Stream(), pkg.Header, pkg.Location, verifier)
	require.Error(t, err)
	require.Equal(t, KindPayloadHashMismatch, err.(*Error).Kind)
}

func TestVerifyDetectsHeaderTamper(t *testing.T) {
	pkg, verifier := signedArchive(t, []byte("firmware payload bytes"))
	defer pkg.Close()

	pkg.Header.KeyID ^= 0xFFFFFFFF

	err := VerifySignature(pkg.Stream(), pkg.Header, pkg.Location, verifier)
	require.Error(t, err)
	require.Equal(t, KindInvalidSignature, err.(*Error).Kind)
}

func TestOpenLocatesFrontHeaderByDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.bpak")
	pkg, err := CreateWithKinds(path, HashSHA256, SignatureEd25519, nil)
	require.NoError(t, err)
	require.NoError(t, pkg.Close())

	reopened, err := Open(path, ModeReadWrite, nil)
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, LocationFront, reopened.Location)
}

func TestOpenRejectsUnparsableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "garbage.bpak")
	require.NoError(t, os.WriteFile(path, []byte("not a bpak file"), 0o644))

	_, err := Open(path, ModeReadWrite, nil)
	require.Error(t, err)
}
