package bpak

import (
	"bytes"
	"io"
)

// Signer is the external collaborator that turns a header digest into a
// raw signature. Concrete backends (ECDSA, RSA, Ed25519...) live in
// pkg/keys; the core only ever calls this interface.
type Signer interface {
	Sign(headerDigest []byte) ([]byte, error)
}

// Verifier is the external collaborator that checks a raw signature
// against a header digest and public key material it already holds.
type Verifier interface {
	Verify(headerDigest []byte, signature []byte) error
}

// WriteSignature copies raw signature bytes into the header's signature
// slot, left-aligned with the remainder zeroed, and records their
// length. It does not write the header back to the stream — callers
// combine it with a façade write-back.
func WriteSignature(h *Header, signature []byte) error {
	if len(signature) > len(h.Signature) {
		return newErr(KindSizeError, "WriteSignature", nil)
	}
	h.Signature = [512]byte{}
	copy(h.Signature[:], signature)
	h.SignatureSz = uint16(len(signature))
	return nil
}

// Sign computes the header hash (after the caller has refreshed the
// payload hash) and asks signer to produce the raw signature bytes,
// then frames them into the header via WriteSignature.
func Sign(h *Header, signer Signer) error {
	digest, err := HeaderHash(h)
	if err != nil {
		return err
	}
	sig, err := signer.Sign(digest)
	if err != nil {
		return newErr(KindFailed, "Sign", err)
	}
	return WriteSignature(h, sig)
}

// VerifySignature recomputes the payload hash and compares it against
// the header's stored value, then recomputes the header hash (with the
// signature slot zeroed, as always) and asks verifier to check it.
func VerifySignature(stream io.ReadSeeker, h *Header, location HeaderLocation, verifier Verifier) error {
	sum, err := PayloadHash(stream, h, location)
	if err != nil {
		return err
	}
	want := h.PayloadHash[:len(sum)]
	if !bytes.Equal(sum, want) || anyNonZero(h.PayloadHash[len(sum):]) {
		return newErr(KindPayloadHashMismatch, "VerifySignature", nil)
	}

	digest, err := HeaderHash(h)
	if err != nil {
		return err
	}
	if err := verifier.Verify(digest, h.Signature[:h.SignatureSz]); err != nil {
		return newErr(KindInvalidSignature, "VerifySignature", err)
	}
	return nil
}

func anyNonZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return true
		}
	}
	return false
}
