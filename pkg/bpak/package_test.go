package bpak

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestAddFileAlignmentAndSize mirrors spec scenario S3: an 8193-byte
// part gets pad_bytes=4095, offset=4096 (just past the front header),
// and the package's installed size is size+pad_bytes.
func TestAddFileAlignmentAndSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kernel.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 8193), 0o644))

	pkg, err := CreateWithKinds(filepath.Join(dir, "a.bpak"), HashSHA256, SignatureEd25519, nil)
	require.NoError(t, err)
	defer pkg.Close()

	require.NoError(t, pkg.AddFile(path, "kernel", 0))

	part, err := pkg.Header.GetPart(mustID(t, "kernel"))
	require.NoError(t, err)
	require.EqualValues(t, 8193, part.Size)
	require.EqualValues(t, 4095, part.PadBytes)
	require.EqualValues(t, HeaderSize, part.Offset)

	require.EqualValues(t, 12288, pkg.InstalledSize())
	require.EqualValues(t, HeaderSize+8193, pkg.OnDiskSize())
}

func TestAddMultiplePartsAreContiguousAndAligned(t *testing.T) {
	dir := t.TempDir()
	pkg, err := CreateWithKinds(filepath.Join(dir, "a.bpak"), HashSHA256, SignatureEd25519, nil)
	require.NoError(t, err)
	defer pkg.Close()

	for i, size := range []int{100, 5000, 4096} {
		path := filepath.Join(dir, "part")
		require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
		require.NoError(t, pkg.AddFile(path, partNameFor(i), 0))
	}

	var lastEnd uint64
	first := true
	pkg.Header.ForeachPart(func(p *PartEntry) bool {
		require.Zero(t, p.Offset%uint64(pkg.Header.Alignment))
		if !first {
			require.GreaterOrEqual(t, p.Offset, lastEnd)
		}
		first = false
		lastEnd = p.Offset + p.Size + uint64(p.PadBytes)
		return true
	})
}

func partNameFor(i int) string {
	return [...]string{"a", "b", "c"}[i]
}

func TestAddFileWithMerkleTreeAttachesSaltAndRoot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.bin")
	payload := make([]byte, 1<<20)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	pkg, err := CreateWithKinds(filepath.Join(dir, "a.bpak"), HashSHA256, SignatureEd25519, nil)
	require.NoError(t, err)
	defer pkg.Close()

	require.NoError(t, pkg.AddFileWithMerkleTree(path, "image", 0))

	id := mustID(t, "image")
	treeID := mustID(t, "image-hash-tree")

	_, err = pkg.Header.GetPart(treeID)
	require.NoError(t, err, "the companion hash-tree part must exist")

	salt, err := pkg.Header.GetMeta(MetaKeyMerkleSalt, id)
	require.NoError(t, err)
	require.Len(t, salt, 32)

	root, err := pkg.Header.GetMeta(MetaKeyMerkleRootHash, id)
	require.NoError(t, err)
	require.Len(t, root, 32)

	ok, err := pkg.VerifyMerklePart("image", 0, payload[:4096])
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = pkg.VerifyMerklePart("image", 0, make([]byte, 4096))
	require.NoError(t, err)
	require.False(t, ok, "verifying the wrong block content must not reproduce the stored root")
}

func TestDelPartThenAddReusesFreedSlot(t *testing.T) {
	dir := t.TempDir()
	pkg, err := CreateWithKinds(filepath.Join(dir, "a.bpak"), HashSHA256, SignatureEd25519, nil)
	require.NoError(t, err)
	defer pkg.Close()

	path := filepath.Join(dir, "p.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 16), 0o644))
	require.NoError(t, pkg.AddFile(path, "first", 0))
	require.NoError(t, pkg.Header.DelPart(mustID(t, "first")))
	require.Zero(t, pkg.Header.PartCount())

	require.NoError(t, pkg.AddFile(path, "second", 0))
	require.Equal(t, 1, pkg.Header.PartCount())
}
