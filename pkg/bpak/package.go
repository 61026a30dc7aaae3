package bpak

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// OpenMode controls how Open treats a missing or unparsable header.
type OpenMode int

const (
	ModeReadWrite OpenMode = iota
	ModeCreate
)

// Package is the runtime aggregate the façade (C8) operates on: an open
// random-access stream, the decoded header, and where that header was
// found. A Package owns its stream; callers must Close it on every exit
// path.
type Package struct {
	file     *os.File
	Header   *Header
	Location HeaderLocation
	logger   hclog.Logger
}

// Open opens path, locates its header (front or tail), and validates it.
// In ModeCreate the file is created fresh with an empty header-at-front
// layout using HashSHA256/SignatureEd25519; use CreateWithKinds for any
// other combination.
func Open(path string, mode OpenMode, logger hclog.Logger) (*Package, error) {
	if mode == ModeCreate {
		return CreateWithKinds(path, HashSHA256, SignatureEd25519, logger)
	}
	return openExisting(path, logger)
}

// CreateWithKinds creates a fresh archive at path with an empty
// header-at-front layout using the given hash and signature kinds.
func CreateWithKinds(path string, hashKind HashKind, sigKind SignatureKind, logger hclog.Logger) (*Package, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, newErr(KindWriteError, "Open", err)
	}
	h, err := NewHeader(hashKind, sigKind)
	if err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.WriteAt(h.Serialize(), 0); err != nil {
		f.Close()
		return nil, newErr(KindWriteError, "Open", err)
	}
	pkg := &Package{file: f, Header: h, Location: LocationFront, logger: logger}
	logger.Debug("created new package", "path", path)
	return pkg, nil
}

func openExisting(path string, logger hclog.Logger) (*Package, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, newErr(KindNotFound, "Open", err)
	}

	h, loc, err := locate(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	logger.Debug("opened package", "path", path, "location", loc)
	return &Package{file: f, Header: h, Location: loc, logger: logger}, nil
}

// locate implements C2's header-location policy: try the first 4096
// bytes, and if that doesn't validate, try the last 4096 bytes. When
// both candidates would validate, the front is preferred (§9).
func locate(f *os.File) (*Header, HeaderLocation, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, 0, newErr(KindReadError, "locate", err)
	}

	front := make([]byte, HeaderSize)
	if _, err := f.ReadAt(front, 0); err == nil {
		if h, verr := ValidateHeader(front); verr == nil {
			return h, LocationFront, nil
		}
	}

	if info.Size() >= HeaderSize {
		tail := make([]byte, HeaderSize)
		if _, err := f.ReadAt(tail, info.Size()-HeaderSize); err == nil {
			if h, verr := ValidateHeader(tail); verr == nil {
				return h, LocationTail, nil
			}
		}
	}

	return nil, 0, newErr(KindNotFound, "locate", nil)
}

// Close flushes pending writes and releases the underlying stream.
func (p *Package) Close() error {
	if p.file == nil {
		return nil
	}
	err := p.file.Close()
	p.file = nil
	if err != nil {
		return newErr(KindWriteError, "Close", err)
	}
	return nil
}

// Stream exposes the package's random-access stream for components
// (digest, transport, merkle) that need to read or seek it directly.
func (p *Package) Stream() *os.File { return p.file }

// partsEnd returns the file offset just past the last live part's
// padded end — i.e. where the next appended part's body begins.
func (p *Package) partsEnd() uint64 {
	end := uint64(0)
	if p.Location == LocationFront {
		end = HeaderSize
	}
	p.Header.ForeachPart(func(e *PartEntry) bool {
		e2 := e.Offset + e.onDiskSize() + uint64(e.PadBytes)
		if e2 > end {
			end = e2
		}
		return true
	})
	return end
}

// InstalledSize is the total size of the archive once fully extracted:
// the sum of each live part's nominal size plus its padding.
func (p *Package) InstalledSize() uint64 {
	var total uint64
	p.Header.ForeachPart(func(e *PartEntry) bool {
		total += e.Size + uint64(e.PadBytes)
		return true
	})
	return total
}

// OnDiskSize is the current byte footprint of the archive: the sum of
// each live part's on-disk size, plus the fixed header.
func (p *Package) OnDiskSize() uint64 {
	var total uint64
	p.Header.ForeachPart(func(e *PartEntry) bool {
		total += PartSize(e)
		return true
	})
	return total + HeaderSize
}

// writeBack re-serializes the header and writes it at its recorded
// location. For a tail header it writes the image directly after the
// last part's padded end and truncates the file there, so the header is
// always the file's final sizeof(header) bytes — it never seeks SEEK_END
// with a positive offset, which the reference implementation sometimes
// does and which silently appends past the true end of file (see
// SPEC_FULL.md §4.2 / spec.md §9).
func (p *Package) writeBack() error {
	image := p.Header.Serialize()
	offset := int64(0)
	if p.Location == LocationTail {
		offset = int64(p.partsEnd())
	}
	if _, err := p.file.WriteAt(image, offset); err != nil {
		return newErr(KindWriteError, "writeBack", err)
	}
	if p.Location == LocationTail {
		if err := p.file.Truncate(offset + HeaderSize); err != nil {
			return newErr(KindWriteError, "writeBack", err)
		}
	}
	return nil
}

// AddFile appends file bytes as a new part named partName, padded up to
// the header's alignment, refreshes the payload hash, and writes the
// header back.
func (p *Package) AddFile(path string, partName string, flags uint8) error {
	id, err := IDHash(partName)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return newErr(KindReadError, "AddFile", err)
	}

	return p.addPartBytes(id, data, flags)
}

func (p *Package) addPartBytes(id uint32, data []byte, flags uint8) error {
	if err := p.placePart(id, uint64(len(data)), data, flags); err != nil {
		return err
	}
	if err := UpdatePayloadHash(p.file, p.Header, p.Location); err != nil {
		return err
	}
	return p.writeBack()
}

// placePart appends a new part's on-disk bytes at the next aligned tail
// offset and fills in its table entry, without touching the payload
// hash or writing the header back — the shared primitive behind
// addPartBytes and the transport engine's multi-part encode/decode
// passes, which finalize the hash once after all parts are placed.
func (p *Package) placePart(id uint32, nominalSize uint64, onDiskBytes []byte, flags uint8) error {
	entry, err := p.Header.AddPart(id)
	if err != nil {
		return err
	}

	offset := p.partsEnd()
	pad := alignPad(uint64(len(onDiskBytes)), p.Header.Alignment)

	entry.Size = nominalSize
	if flags&FlagTransport != 0 {
		entry.TransportSize = uint64(len(onDiskBytes))
	}
	entry.Offset = offset
	entry.PadBytes = pad
	entry.Flags = flags

	if _, err := p.file.WriteAt(onDiskBytes, int64(offset)); err != nil {
		return newErr(KindWriteError, "placePart", err)
	}
	if pad > 0 {
		if _, err := p.file.WriteAt(make([]byte, pad), int64(offset)+int64(len(onDiskBytes))); err != nil {
			return newErr(KindWriteError, "placePart", err)
		}
	}
	return nil
}

// AddTransportPart appends an already transport-encoded part body
// (nominalSize is the original, pre-encode size; encoded is the bytes
// actually written to disk) and marks it BPAK_FLAG_TRANSPORT. Used by
// pkg/transport's encode pass; callers must call RefreshPayloadHash and
// WriteBack once after all parts have been placed.
func (p *Package) AddTransportPart(id uint32, nominalSize uint64, encoded []byte, flags uint8) error {
	return p.placePart(id, nominalSize, encoded, flags|FlagTransport)
}

// AddDecodedPart appends a fully reconstituted (non-transport) part
// body. Used by pkg/transport's decode pass; callers must call
// RefreshPayloadHash and WriteBack once after all parts have been
// placed.
func (p *Package) AddDecodedPart(id uint32, data []byte, flags uint8) error {
	return p.placePart(id, uint64(len(data)), data, flags&^FlagTransport)
}

// AddKey embeds a public key's DER body as a new part, given a codec
// that knows how to turn a PEM/raw key file into that DER body.
func (p *Package) AddKey(pubKeyPath string, partName string, flags uint8, decode func([]byte) ([]byte, error)) error {
	id, err := IDHash(partName)
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(pubKeyPath)
	if err != nil {
		return newErr(KindReadError, "AddKey", err)
	}
	der, err := decode(raw)
	if err != nil {
		return newErr(KindFailed, "AddKey", err)
	}
	return p.addPartBytes(id, der, flags)
}

// ReadPart reads a live part's on-disk body (PartSize bytes, without
// padding) back into memory, following BPAK_FLAG_TRANSPORT (it reads the
// on-disk bytes, which are
// transport-encoded if that flag is set; callers needing the original
// payload must decode first).
func (p *Package) ReadPart(id uint32) ([]byte, error) {
	entry, err := p.Header.GetPart(id)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, PartSize(entry))
	if _, err := p.file.ReadAt(buf, int64(entry.Offset)); err != nil && err != io.EOF {
		return nil, newErr(KindReadError, "ReadPart", err)
	}
	return buf, nil
}

// WriteBack exposes writeBack to callers outside the package that have
// mutated the header directly (e.g. after signing, or after attaching
// Merkle meta).
func (p *Package) WriteBack() error {
	return p.writeBack()
}

// RefreshPayloadHash recomputes and stores the payload hash without
// writing the header back; callers combine it with Sign + WriteBack.
func (p *Package) RefreshPayloadHash() error {
	return UpdatePayloadHash(p.file, p.Header, p.Location)
}
