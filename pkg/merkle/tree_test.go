package merkle

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildTestTree(t *testing.T, payload []byte, salt [SaltSize]byte) (*Builder, []byte) {
	t.Helper()
	b, err := NewBuilderWithSalt(uint64(len(payload)), salt)
	require.NoError(t, err)

	// Feed in irregular chunk sizes to exercise the buffering path.
	chunkSizes := []int{1, 17, 4096, 4095, 4097, 8192, 100}
	i := 0
	for i < len(payload) {
		n := chunkSizes[i%len(chunkSizes)]
		if i+n > len(payload) {
			n = len(payload) - i
		}
		written, err := b.Write(payload[i : i+n])
		require.NoError(t, err)
		require.Equal(t, n, written)
		i += n
	}

	root, err := b.Done()
	require.NoError(t, err)
	return b, root
}

func TestBuilderSingleBlock(t *testing.T) {
	var salt [SaltSize]byte
	payload := bytes.Repeat([]byte{0xAB}, 100)

	_, root := buildTestTree(t, payload, salt)
	require.Len(t, root, HashSize)
}

func TestBuilderConsistencyAcrossChunking(t *testing.T) {
	var salt [SaltSize]byte
	payload := make([]byte, 1<<20) // 1 MiB
	rand.New(rand.NewSource(1)).Read(payload)

	b1, err := NewBuilderWithSalt(uint64(len(payload)), salt)
	require.NoError(t, err)
	_, err = b1.Write(payload)
	require.NoError(t, err)
	root1, err := b1.Done()
	require.NoError(t, err)

	_, root2 := buildTestTree(t, payload, salt)
	require.Equal(t, root1, root2, "root hash must not depend on chunk boundaries")
}

func TestVerifyBlockSiblingPath(t *testing.T) {
	var salt [SaltSize]byte
	copy(salt[:], []byte("deterministic-test-salt-32-bytes"))

	payload := make([]byte, 1<<20) // 256 leaves
	rand.New(rand.NewSource(42)).Read(payload)

	b, root := buildTestTree(t, payload, salt)
	tree := b.Bytes()

	storedRoot, err := RootHash(uint64(len(payload)), tree)
	require.NoError(t, err)
	require.Equal(t, root, storedRoot)

	for _, leafIdx := range []int{0, 1, 127, 128, 255} {
		start := leafIdx * BlockSize
		block := payload[start : start+BlockSize]
		got, err := VerifyBlock(uint64(len(payload)), salt, tree, leafIdx, block)
		require.NoError(t, err)
		require.Equal(t, root, got, "leaf %d should reproduce the stored root", leafIdx)
	}
}

func TestVerifyBlockDetectsTampering(t *testing.T) {
	var salt [SaltSize]byte
	payload := make([]byte, 5*BlockSize+10)
	rand.New(rand.NewSource(7)).Read(payload)

	b, root := buildTestTree(t, payload, salt)
	tree := b.Bytes()

	tampered := append([]byte(nil), payload[:BlockSize]...)
	tampered[0] ^= 0xFF

	got, err := VerifyBlock(uint64(len(payload)), salt, tree, 0, tampered)
	require.NoError(t, err)
	require.NotEqual(t, root, got)
}

func TestBuilderRejectsShortConsumption(t *testing.T) {
	var salt [SaltSize]byte
	b, err := NewBuilderWithSalt(BlockSize*3, salt)
	require.NoError(t, err)
	_, err = b.Write(make([]byte, BlockSize))
	require.NoError(t, err)
	_, err = b.Done()
	require.Error(t, err)
}

func TestLevelSizesMultiLevel(t *testing.T) {
	sizes := levelSizes(uint64(FanOut*FanOut+1) * BlockSize)
	require.True(t, len(sizes) >= 3)
	require.Equal(t, uint64(1), sizes[len(sizes)-1])
}
