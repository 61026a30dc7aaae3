package merkle

import "fmt"

// levelOffsets returns the byte offset of the start of each level inside
// a serialized tree buffer (as produced by Builder.Bytes), given the
// per-level hash counts from levelSizes.
func levelOffsets(sizes []uint64) []uint64 {
	offsets := make([]uint64, len(sizes))
	var acc uint64
	for i, n := range sizes {
		offsets[i] = acc
		acc += n * HashSize
	}
	return offsets
}

// VerifyBlock replays a single 4096-byte payload block through its
// sibling path in a previously built tree and returns the root hash it
// recomputes. Callers compare the result against the stored
// merkle-root-hash meta entry. Every hash above the leaf is taken from
// the stored tree bytes except the single path being replayed, so a
// match proves both that block's content and the stored sibling hashes
// are mutually consistent with the root.
func VerifyBlock(payloadSize uint64, salt [SaltSize]byte, treeBytes []byte, blockIndex int, blockData []byte) ([]byte, error) {
	sizes := levelSizes(payloadSize)
	offsets := levelOffsets(sizes)

	if blockIndex < 0 || uint64(blockIndex) >= sizes[0] {
		return nil, fmt.Errorf("merkle: block index %d out of range (%d leaves)", blockIndex, sizes[0])
	}

	cur := hashBlock(salt, blockData)
	curIndex := blockIndex

	for lvl := 0; lvl < len(sizes)-1; lvl++ {
		groupIdx := curIndex / FanOut
		start := groupIdx * FanOut
		end := start + FanOut
		if uint64(end) > sizes[lvl] {
			end = int(sizes[lvl])
		}

		block := make([]byte, FanOut*HashSize)
		levelStart := offsets[lvl] + uint64(start)*HashSize
		levelEnd := offsets[lvl] + uint64(end)*HashSize
		if levelEnd > uint64(len(treeBytes)) {
			return nil, fmt.Errorf("merkle: tree buffer truncated at level %d", lvl)
		}
		copy(block, treeBytes[levelStart:levelEnd])

		posInGroup := curIndex - start
		copy(block[posInGroup*HashSize:(posInGroup+1)*HashSize], cur[:])

		cur = hashBlock(salt, block)
		curIndex = groupIdx
	}

	out := make([]byte, HashSize)
	copy(out, cur[:])
	return out, nil
}

// RootHash extracts the stored root hash (the last level, always a
// single HashSize-byte entry) from a serialized tree buffer.
func RootHash(payloadSize uint64, treeBytes []byte) ([]byte, error) {
	sizes := levelSizes(payloadSize)
	offsets := levelOffsets(sizes)
	last := len(sizes) - 1
	start := offsets[last]
	end := start + sizes[last]*HashSize
	if end > uint64(len(treeBytes)) || sizes[last] != 1 {
		return nil, fmt.Errorf("merkle: malformed tree buffer")
	}
	out := make([]byte, HashSize)
	copy(out, treeBytes[start:end])
	return out, nil
}
