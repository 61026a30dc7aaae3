package transport

import (
	"fmt"

	"github.com/provide-io/bpak/pkg/bpak"
	"github.com/provide-io/bpak/pkg/merkle"
)

// merkleGenerateCodec is bpak-merkle-generate: a decode-only algorithm
// that regenerates a "<part>-hash-tree" companion part from scratch
// instead of transporting its bytes — the tree is cheap to rebuild and
// expensive to diff, so an encoder choosing this algorithm emits
// nothing for the tree part and leans on the decoder to recompute it
// from the payload part's own bytes.
//
// Engine convention: AddFileWithMerkleTree always places a part's
// hash-tree part immediately after the part it covers, so the engine's
// decode loop passes the immediately preceding part's already-decoded
// bytes here as origin.
type merkleGenerateCodec struct{}

func (merkleGenerateCodec) ID() uint32   { return AlgMerkleGenerate }
func (merkleGenerateCodec) Name() string { return "bpak-merkle-generate" }

func (merkleGenerateCodec) Decode(hooks OutputHooks, _ []byte, origin []byte) error {
	if origin == nil {
		return fmt.Errorf("transport: merkle-generate decode: no payload bytes to tree")
	}

	builder, err := merkle.NewBuilder(uint64(len(origin)))
	if err != nil {
		return fmt.Errorf("transport: merkle-generate decode: %w", err)
	}
	if _, err := builder.Write(origin); err != nil {
		return fmt.Errorf("transport: merkle-generate decode: %w", err)
	}
	root, err := builder.Done()
	if err != nil {
		return fmt.Errorf("transport: merkle-generate decode: %w", err)
	}

	if err := hooks.WriteOutput(0, builder.Bytes()); err != nil {
		return err
	}

	salt := builder.Salt()
	if err := hooks.WriteOutputHeader(0, bpak.MetaKeyMerkleSalt, salt[:]); err != nil {
		return err
	}
	return hooks.WriteOutputHeader(0, bpak.MetaKeyMerkleRootHash, root)
}
