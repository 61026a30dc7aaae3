// Package transport implements the per-part transport encode/decode
// engine (C7): re-encoding a BPAK archive's parts through a compression
// or delta back-end selected per part by the bpak-transport meta key,
// and reversing that re-encoding. Framing (the header, the part table)
// stays the same across a transport pass; each part's on-disk bytes,
// offset, transport_size and BPAK_FLAG_TRANSPORT bit change, and the
// payload hash is recomputed.
package transport

import (
	"fmt"

	"github.com/provide-io/bpak/pkg/bpak"
)

// Algorithm ids, hashed the same way part and meta names are (C1),
// so the bpak-transport meta entry can name a back-end without the
// core needing to know anything beyond "these 4 bytes are an id".
var (
	AlgHeatshrink     = bpak.MustIDHash("bpak-heatshrink")
	AlgBzip2          = bpak.MustIDHash("bpak-bzip2")
	AlgBsdiff         = bpak.MustIDHash("bpak-bsdiff")
	AlgMerkleGenerate = bpak.MustIDHash("bpak-merkle-generate")
	AlgRemoveData     = bpak.MustIDHash("remove-data")
)

// OutputHooks is the capability interface a decoder back-end uses to
// deposit its reconstituted bytes and, for algorithms that need it,
// mutate the output header. A single instance is scoped to one part's
// decode pass. WriteOutput and ReadOutput are offset-based so a
// back-end can read bytes it already wrote earlier in the same pass;
// bpak-bsdiff's copy ops read from the origin part, not through
// ReadOutput.
type OutputHooks interface {
	WriteOutput(offset int64, data []byte) error
	ReadOutput(offset int64, buf []byte) (int, error)
	WriteOutputHeader(partRef uint32, metaKey uint32, value []byte) error
}

// Encoder turns a part's plain bytes (and, for delta algorithms, the
// same part's bytes in an origin archive) into the bytes that get
// written to the transport-encoded archive.
type Encoder interface {
	ID() uint32
	Name() string
	Encode(input []byte, origin []byte) ([]byte, error)
}

// Decoder reverses an Encoder's transformation, given the encoded body
// and (for delta algorithms) the origin archive's copy of the same
// part. It deposits the reconstituted part through hooks rather than
// returning it directly, mirroring the three-hook state machine of
// spec §4.7/§9's redesign note.
type Decoder interface {
	ID() uint32
	Name() string
	Decode(hooks OutputHooks, encoded []byte, origin []byte) error
}

var (
	encoders = make(map[uint32]Encoder)
	decoders = make(map[uint32]Decoder)
)

// RegisterEncoder adds e to the encoder registry, keyed by its algorithm id.
func RegisterEncoder(e Encoder) { encoders[e.ID()] = e }

// RegisterDecoder adds d to the decoder registry, keyed by its algorithm id.
func RegisterDecoder(d Decoder) { decoders[d.ID()] = d }

// GetEncoder looks up a registered encoder by algorithm id.
func GetEncoder(id uint32) (Encoder, error) {
	e, ok := encoders[id]
	if !ok {
		return nil, fmt.Errorf("transport: unknown encode algorithm 0x%08x", id)
	}
	return e, nil
}

// GetDecoder looks up a registered decoder by algorithm id.
func GetDecoder(id uint32) (Decoder, error) {
	d, ok := decoders[id]
	if !ok {
		return nil, fmt.Errorf("transport: unknown decode algorithm 0x%08x", id)
	}
	return d, nil
}

func init() {
	RegisterEncoder(&heatshrinkCodec{})
	RegisterDecoder(&heatshrinkCodec{})
	RegisterEncoder(&bzip2Codec{})
	RegisterDecoder(&bzip2Codec{})
	RegisterEncoder(&bsdiffCodec{})
	RegisterDecoder(&bsdiffCodec{})
	RegisterEncoder(&removeDataCodec{})
	RegisterDecoder(&removeDataCodec{})
	RegisterDecoder(&merkleGenerateCodec{})
}
