package transport

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/bpak/pkg/bpak"
)

// Engine drives the per-part transport encode/decode passes (C7) over
// whole packages, consulting each part's bpak-transport meta selection
// (or treating it as identity-copied when absent).
type Engine struct {
	logger hclog.Logger
}

// NewEngine returns an Engine that logs through logger (a null logger
// if nil).
func NewEngine(logger hclog.Logger) *Engine {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Engine{logger: logger}
}

// Encode copies src's header framing and every part into a freshly
// created archive at dstPath, running each part through its selected
// encoder (identity if the part carries no bpak-transport meta). On
// any failure the partially written output file is removed and the
// in-memory output header is never finalized, so no partial-part
// commit is ever observable (spec §4.7).
func (e *Engine) Encode(src *bpak.Package, dstPath string, origin *bpak.Package) (*bpak.Package, error) {
	dst, err := bpak.Open(dstPath, bpak.ModeCreate, e.logger)
	if err != nil {
		return nil, err
	}

	dst.Header.HashKind = src.Header.HashKind
	dst.Header.SignatureKind = src.Header.SignatureKind
	dst.Header.KeyID = src.Header.KeyID
	dst.Header.KeystoreID = src.Header.KeystoreID
	dst.Header.Alignment = src.Header.Alignment
	copyMeta(src.Header, dst.Header)

	var failure error
	src.Header.ForeachPart(func(part *bpak.PartEntry) bool {
		id := part.ID
		input, rerr := src.ReadPart(id)
		if rerr != nil {
			failure = rerr
			return false
		}

		encodeAlg, decodeAlg, ok := src.Header.GetTransportAlgorithms(id)
		if !ok || encodeAlg == 0 {
			if err := dst.AddDecodedPart(id, input, part.Flags); err != nil {
				failure = err
				return false
			}
			return true
		}

		enc, err := GetEncoder(encodeAlg)
		if err != nil {
			failure = err
			return false
		}

		var originBytes []byte
		if origin != nil {
			if ob, oerr := origin.ReadPart(id); oerr == nil {
				originBytes = ob
			}
		}

		encoded, err := enc.Encode(input, originBytes)
		if err != nil {
			failure = fmt.Errorf("transport: encoding part 0x%08x with %s: %w", id, enc.Name(), err)
			return false
		}

		if err := dst.AddTransportPart(id, part.Size, encoded, part.Flags); err != nil {
			failure = err
			return false
		}
		if err := dst.Header.SetTransportAlgorithms(id, encodeAlg, decodeAlg); err != nil {
			failure = err
			return false
		}
		return true
	})

	if failure != nil {
		dst.Close()
		os.Remove(dstPath)
		return nil, failure
	}

	if err := dst.RefreshPayloadHash(); err != nil {
		dst.Close()
		os.Remove(dstPath)
		return nil, err
	}
	if err := dst.WriteBack(); err != nil {
		dst.Close()
		os.Remove(dstPath)
		return nil, err
	}
	return dst, nil
}

// Decode reverses a transport pass: every transport-flagged part is run
// through its decode_alg back-end and rewritten at its nominal size
// with BPAK_FLAG_TRANSPORT cleared; verbatim parts are copied through
// unchanged. Same all-or-nothing commit discipline as Encode.
func (e *Engine) Decode(src *bpak.Package, dstPath string, origin *bpak.Package) (*bpak.Package, error) {
	dst, err := bpak.Open(dstPath, bpak.ModeCreate, e.logger)
	if err != nil {
		return nil, err
	}

	dst.Header.HashKind = src.Header.HashKind
	dst.Header.SignatureKind = src.Header.SignatureKind
	dst.Header.KeyID = src.Header.KeyID
	dst.Header.KeystoreID = src.Header.KeystoreID
	dst.Header.Alignment = src.Header.Alignment
	copyMeta(src.Header, dst.Header)

	var failure error
	var prevID uint32
	var prevDecoded []byte

	src.Header.ForeachPart(func(part *bpak.PartEntry) bool {
		id := part.ID
		encoded, rerr := src.ReadPart(id)
		if rerr != nil {
			failure = rerr
			return false
		}

		if part.Flags&bpak.FlagTransport == 0 {
			if err := dst.AddDecodedPart(id, encoded, part.Flags); err != nil {
				failure = err
				return false
			}
			prevID, prevDecoded = id, encoded
			return true
		}

		_, decodeAlg, ok := src.Header.GetTransportAlgorithms(id)
		if !ok || decodeAlg == 0 {
			failure = fmt.Errorf("transport: part 0x%08x flagged transport but has no decode algorithm", id)
			return false
		}
		dec, err := GetDecoder(decodeAlg)
		if err != nil {
			failure = err
			return false
		}

		var originBytes []byte
		switch decodeAlg {
		case AlgMerkleGenerate:
			originBytes = prevDecoded
		default:
			if origin != nil {
				if ob, oerr := origin.ReadPart(id); oerr == nil {
					originBytes = ob
				}
			}
		}

		hooks := newBufferHooks(int(part.Size))
		if err := dec.Decode(hooks, encoded, originBytes); err != nil {
			failure = fmt.Errorf("transport: decoding part 0x%08x with %s: %w", id, dec.Name(), err)
			return false
		}

		if err := dst.AddDecodedPart(id, hooks.buf, part.Flags&^bpak.FlagTransport); err != nil {
			failure = err
			return false
		}
		for _, m := range hooks.staged {
			scope := m.partRef
			if scope == 0 && prevID != 0 {
				scope = prevID
			}
			if err := dst.Header.SetMetaString(m.metaKey, scope, string(m.value)); err != nil {
				failure = err
				return false
			}
		}

		prevID, prevDecoded = id, hooks.buf
		return true
	})

	if failure != nil {
		dst.Close()
		os.Remove(dstPath)
		return nil, failure
	}

	if err := dst.RefreshPayloadHash(); err != nil {
		dst.Close()
		os.Remove(dstPath)
		return nil, err
	}
	if err := dst.WriteBack(); err != nil {
		dst.Close()
		os.Remove(dstPath)
		return nil, err
	}
	return dst, nil
}

// copyMeta copies every meta entry from src to dst verbatim except
// bpak-transport entries, which the encode/decode walk re-derives (or
// drops) per part since algorithm selection and transport state change
// across a pass.
func copyMeta(src, dst *bpak.Header) {
	src.ForeachMeta(func(m *bpak.MetaEntry) bool {
		if m.ID == bpak.MetaKeyTransport {
			return true
		}
		buf, err := src.GetMeta(m.ID, m.PartIDRef)
		if err != nil {
			return true
		}
		_ = dst.SetMetaString(m.ID, m.PartIDRef, string(buf))
		return true
	})
}
