package transport

// removeDataCodec is remove-data: encode emits a zero-byte body and
// relies on the engine to mark the part BPAK_FLAG_TRANSPORT with
// transport_size 0 — used to strip a part's payload from a transported
// archive on purpose (e.g. a private key that should never cross the
// wire). Decode has nothing to reconstruct; the part comes back with a
// nominal size of zero rather than its original size, since the bytes
// are deliberately unrecoverable.
type removeDataCodec struct{}

func (removeDataCodec) ID() uint32   { return AlgRemoveData }
func (removeDataCodec) Name() string { return "remove-data" }

func (removeDataCodec) Encode(_ []byte, _ []byte) ([]byte, error) {
	return nil, nil
}

func (removeDataCodec) Decode(hooks OutputHooks, _ []byte, _ []byte) error {
	return nil
}
