package transport

import "fmt"

// headerMutation records one deferred header write a decoder requested
// via WriteOutputHeader, applied by the engine once the part's decode
// call returns successfully.
type headerMutation struct {
	partRef uint32
	metaKey uint32
	value   []byte
}

// bufferHooks is the OutputHooks implementation the engine hands to
// each part's decoder: output bytes land in an in-memory buffer that
// the engine then places as the reconstituted part, and any header
// mutations are staged rather than applied immediately, so a failed
// decode never leaks a partial header change (§4.7 failure semantics).
type bufferHooks struct {
	buf    []byte
	staged []headerMutation
}

func newBufferHooks(sizeHint int) *bufferHooks {
	return &bufferHooks{buf: make([]byte, 0, sizeHint)}
}

func (h *bufferHooks) WriteOutput(offset int64, data []byte) error {
	end := offset + int64(len(data))
	if end > int64(len(h.buf)) {
		grown := make([]byte, end)
		copy(grown, h.buf)
		h.buf = grown
	}
	copy(h.buf[offset:end], data)
	return nil
}

func (h *bufferHooks) ReadOutput(offset int64, buf []byte) (int, error) {
	if offset < 0 || offset >= int64(len(h.buf)) {
		return 0, fmt.Errorf("transport: read_output offset %d out of range (%d bytes written so far)", offset, len(h.buf))
	}
	n := copy(buf, h.buf[offset:])
	return n, nil
}

func (h *bufferHooks) WriteOutputHeader(partRef uint32, metaKey uint32, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	h.staged = append(h.staged, headerMutation{partRef: partRef, metaKey: metaKey, value: cp})
	return nil
}
