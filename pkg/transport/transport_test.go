package transport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/provide-io/bpak/pkg/bpak"
)

func newTestPackage(t *testing.T, dir, name string, payload []byte) *bpak.Package {
	t.Helper()
	path := filepath.Join(dir, name)
	pkg, err := bpak.Open(path, bpak.ModeCreate, nil)
	require.NoError(t, err)

	tmp := filepath.Join(dir, name+".payload")
	require.NoError(t, os.WriteFile(tmp, payload, 0o644))
	require.NoError(t, pkg.AddFile(tmp, "firmware.bin", 0))
	return pkg
}

func TestEngineRoundTripHeatshrink(t *testing.T) {
	dir := t.TempDir()
	payload := make([]byte, 10000)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	src := newTestPackage(t, dir, "plain.bpak", payload)
	defer src.Close()

	id, err := bpak.IDHash("firmware.bin")
	require.NoError(t, err)
	require.NoError(t, src.Header.SetTransportAlgorithms(id, AlgHeatshrink, AlgHeatshrink))
	require.NoError(t, src.WriteBack())

	eng := NewEngine(nil)
	encoded, err := eng.Encode(src, filepath.Join(dir, "encoded.bpak"), nil)
	require.NoError(t, err)
	defer encoded.Close()

	entry, err := encoded.Header.GetPart(id)
	require.NoError(t, err)
	require.NotZero(t, entry.Flags&bpak.FlagTransport)

	decoded, err := eng.Decode(encoded, filepath.Join(dir, "decoded.bpak"), nil)
	require.NoError(t, err)
	defer decoded.Close()

	out, err := decoded.ReadPart(id)
	require.NoError(t, err)
	require.Equal(t, payload, out)
}

func TestEngineIdentityPassthrough(t *testing.T) {
	dir := t.TempDir()
	payload := []byte("no transport meta on this part")

	src := newTestPackage(t, dir, "plain.bpak", payload)
	defer src.Close()

	eng := NewEngine(nil)
	out, err := eng.Encode(src, filepath.Join(dir, "encoded.bpak"), nil)
	require.NoError(t, err)
	defer out.Close()

	id, err := bpak.IDHash("firmware.bin")
	require.NoError(t, err)
	entry, err := out.Header.GetPart(id)
	require.NoError(t, err)
	require.Zero(t, entry.Flags&bpak.FlagTransport)

	got, err := out.ReadPart(id)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestBsdiffCodecRoundTrip(t *testing.T) {
	origin := []byte("the quick brown fox jumps over the lazy dog, the quick brown fox jumps again")
	updated := []byte("the quick brown FOX jumps over the lazy dog, the quick brown fox jumps again and again")

	codec := bsdiffCodec{}
	diff, err := codec.Encode(updated, origin)
	require.NoError(t, err)
	require.Less(t, 0, len(diff))

	hooks := newBufferHooks(len(updated))
	require.NoError(t, codec.Decode(hooks, diff, origin))
	require.Equal(t, updated, hooks.buf)
}

func TestRemoveDataCodec(t *testing.T) {
	codec := removeDataCodec{}
	out, err := codec.Encode([]byte("secret"), nil)
	require.NoError(t, err)
	require.Empty(t, out)
}
