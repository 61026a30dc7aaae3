package transport

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// heatshrinkCodec is the bpak-heatshrink back-end: a streaming,
// dictionary-based byte compressor with no origin reference. The wire
// format of the original heatshrink codec is out of scope for this
// implementation — only the invocation point matters — so this backend
// uses klauspost/compress's flate, the streaming compressor the rest of
// the example pack reaches for in place of hand-rolled compression.
type heatshrinkCodec struct{}

func (heatshrinkCodec) ID() uint32   { return AlgHeatshrink }
func (heatshrinkCodec) Name() string { return "bpak-heatshrink" }

func (heatshrinkCodec) Encode(input []byte, _ []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("transport: heatshrink encode: %w", err)
	}
	if _, err := w.Write(input); err != nil {
		w.Close()
		return nil, fmt.Errorf("transport: heatshrink encode: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("transport: heatshrink encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (heatshrinkCodec) Decode(hooks OutputHooks, encoded []byte, _ []byte) error {
	r := flate.NewReader(bytes.NewReader(encoded))
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("transport: heatshrink decode: %w", err)
	}
	return hooks.WriteOutput(0, data)
}
