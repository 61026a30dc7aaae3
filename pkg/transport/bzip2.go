package transport

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
)

// bzip2Codec is bpak-bzip2, a second no-origin compression back-end
// alongside bpak-heatshrink, filling the same domain-stack slot the
// teacher's own operations/compress/bzip2.go fills for its tar.bz2
// chain.
type bzip2Codec struct{}

func (bzip2Codec) ID() uint32   { return AlgBzip2 }
func (bzip2Codec) Name() string { return "bpak-bzip2" }

func (bzip2Codec) Encode(input []byte, _ []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: bzip2.BestCompression})
	if err != nil {
		return nil, fmt.Errorf("transport: bzip2 encode: %w", err)
	}
	if _, err := w.Write(input); err != nil {
		w.Close()
		return nil, fmt.Errorf("transport: bzip2 encode: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("transport: bzip2 encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (bzip2Codec) Decode(hooks OutputHooks, encoded []byte, _ []byte) error {
	r, err := bzip2.NewReader(bytes.NewReader(encoded), nil)
	if err != nil {
		return fmt.Errorf("transport: bzip2 decode: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("transport: bzip2 decode: %w", err)
	}
	return hooks.WriteOutput(0, data)
}
