package bpak

import (
	"io"
	"os"

	"github.com/provide-io/bpak/pkg/merkle"
)

// AddFileWithMerkleTree appends path's bytes as a new part (as AddFile
// does) and then builds a companion "<partName>-hash-tree" part holding
// a salted Merkle tree over that payload, recording the salt and root
// hash as part-scoped meta entries (bpak-transport's sibling: merkle
// verification is a property of the part, not of the whole archive).
func (p *Package) AddFileWithMerkleTree(path string, partName string, flags uint8) error {
	id, err := IDHash(partName)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return newErr(KindReadError, "AddFileWithMerkleTree", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return newErr(KindReadError, "AddFileWithMerkleTree", err)
	}

	builder, err := merkle.NewBuilder(uint64(info.Size()))
	if err != nil {
		return newErr(KindFailed, "AddFileWithMerkleTree", err)
	}

	data := make([]byte, info.Size())
	if _, err := io.ReadFull(f, data); err != nil && err != io.EOF {
		return newErr(KindReadError, "AddFileWithMerkleTree", err)
	}
	if _, err := builder.Write(data); err != nil {
		return newErr(KindFailed, "AddFileWithMerkleTree", err)
	}
	root, err := builder.Done()
	if err != nil {
		return newErr(KindFailed, "AddFileWithMerkleTree", err)
	}

	if err := p.addPartBytes(id, data, flags); err != nil {
		return err
	}

	treeID, err := IDHash(partName + "-hash-tree")
	if err != nil {
		return err
	}
	if err := p.addPartBytes(treeID, builder.Bytes(), FlagExcludeFromHash); err != nil {
		return err
	}

	salt := builder.Salt()
	if err := p.Header.SetMetaString(MetaKeyMerkleSalt, id, string(salt[:])); err != nil {
		return err
	}
	if err := p.Header.SetMetaString(MetaKeyMerkleRootHash, id, string(root)); err != nil {
		return err
	}

	if err := UpdatePayloadHash(p.file, p.Header, p.Location); err != nil {
		return err
	}
	return p.writeBack()
}

// VerifyMerklePart re-derives the root hash for partName's companion
// Merkle tree and reports whether it matches the stored
// merkle-root-hash meta entry, without re-reading the whole part: the
// caller supplies just the block it wants authenticated plus its index.
func (p *Package) VerifyMerklePart(partName string, blockIndex int, block []byte) (bool, error) {
	id, err := IDHash(partName)
	if err != nil {
		return false, err
	}
	entry, err := p.Header.GetPart(id)
	if err != nil {
		return false, err
	}

	treeID, err := IDHash(partName + "-hash-tree")
	if err != nil {
		return false, err
	}
	treeEntry, err := p.Header.GetPart(treeID)
	if err != nil {
		return false, err
	}

	saltBuf, err := p.Header.GetMeta(MetaKeyMerkleSalt, id)
	if err != nil {
		return false, err
	}
	rootBuf, err := p.Header.GetMeta(MetaKeyMerkleRootHash, id)
	if err != nil {
		return false, err
	}
	var salt [merkle.SaltSize]byte
	copy(salt[:], saltBuf)

	tree := make([]byte, PartSize(treeEntry))
	if _, err := p.file.ReadAt(tree, int64(treeEntry.Offset)); err != nil && err != io.EOF {
		return false, newErr(KindReadError, "VerifyMerklePart", err)
	}

	got, err := merkle.VerifyBlock(entry.Size, salt, tree, blockIndex, block)
	if err != nil {
		return false, newErr(KindFailed, "VerifyMerklePart", err)
	}
	return string(got) == string(rootBuf), nil
}
