package bpak

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"io"
)

// chunkSize bounds how much payload data the digest engine reads into
// memory at a time while hashing.
const chunkSize = 4096

func newDigest(kind HashKind) (hash.Hash, error) {
	switch kind {
	case HashSHA256:
		return sha256.New(), nil
	case HashSHA384:
		return sha512.New384(), nil
	case HashSHA512:
		return sha512.New(), nil
	default:
		return nil, newErr(KindUnsupportedHash, "newDigest", nil)
	}
}

// PayloadHash computes the payload digest of an archive: the header's
// chosen hash algorithm fed with every live part's on-disk bytes, in
// part-table order, skipping parts flagged EXCLUDE_FROM_HASH and never
// feeding alignment padding. stream must support both Read and Seek.
// location is not consulted: each part is read at its recorded absolute
// offset.
func PayloadHash(stream io.ReadSeeker, h *Header, location HeaderLocation) ([]byte, error) {
	d, err := newDigest(h.HashKind)
	if err != nil {
		return nil, err
	}
	_ = location

	buf := make([]byte, chunkSize)
	var rerr error
	h.ForeachPart(func(p *PartEntry) bool {
		if p.hasFlag(FlagExcludeFromHash) {
			return true
		}
		if _, err := stream.Seek(int64(p.Offset), io.SeekStart); err != nil {
			rerr = newErr(KindSeekError, "PayloadHash", err)
			return false
		}
		size := PartSize(p)
		remaining := size
		for remaining > 0 {
			n := chunkSize
			if uint64(n) > remaining {
				n = int(remaining)
			}
			if _, err := io.ReadFull(stream, buf[:n]); err != nil {
				rerr = newErr(KindReadError, "PayloadHash", err)
				return false
			}
			d.Write(buf[:n])
			remaining -= uint64(n)
		}
		return true
	})
	if rerr != nil {
		return nil, rerr
	}

	return d.Sum(nil), nil
}

// UpdatePayloadHash recomputes the payload hash and stores it into
// h.PayloadHash, zero-padding any unused tail bytes of the 64-byte slot.
func UpdatePayloadHash(stream io.ReadSeeker, h *Header, location HeaderLocation) error {
	sum, err := PayloadHash(stream, h, location)
	if err != nil {
		return err
	}
	if len(sum) > len(h.PayloadHash) {
		return newErr(KindSizeError, "UpdatePayloadHash", nil)
	}
	h.PayloadHash = [64]byte{}
	copy(h.PayloadHash[:], sum)
	return nil
}

// HeaderHash computes the value that gets signed: the hash of the full
// 4096-byte header image with the signature slot and signature_sz
// zeroed out. It is idempotent — h is restored to its original state
// before returning.
func HeaderHash(h *Header) ([]byte, error) {
	d, err := newDigest(h.HashKind)
	if err != nil {
		return nil, err
	}

	savedSig := h.Signature
	savedSz := h.SignatureSz
	h.Signature = [512]byte{}
	h.SignatureSz = 0

	image := h.Serialize()

	h.Signature = savedSig
	h.SignatureSz = savedSz

	d.Write(image)
	return d.Sum(nil), nil
}
