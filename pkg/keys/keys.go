// Package keys is the external signer/verifier collaborator bpak's core
// calls through the bpak.Signer/bpak.Verifier interfaces. It owns all
// key I/O (PEM/DER parsing) and raw cryptographic primitives, exactly
// the boundary spec.md §1 draws around "Key I/O and raw cryptographic
// primitives" — the core never touches crypto/x509 or crypto/ecdsa
// itself.
package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/provide-io/bpak/pkg/bpak"
)

// Signer signs a header digest with a private key loaded from a PEM
// file, dispatching on the key's own type.
type Signer struct {
	private crypto.Signer
	kind    bpak.SignatureKind
}

// LoadSigner reads a PEM-encoded private key (PKCS8 or EC/RSA legacy
// form) and returns a Signer wrapping it, validating that the key's
// concrete type matches the requested signature kind.
func LoadSigner(path string, kind bpak.SignatureKind) (*Signer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keys: reading private key: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("keys: no PEM block in %s", path)
	}

	key, err := parsePrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("keys: key in %s is not usable as a signer", path)
	}
	if err := checkKind(signer.Public(), kind); err != nil {
		return nil, err
	}
	return &Signer{private: signer, kind: kind}, nil
}

func parsePrivateKey(der []byte) (any, error) {
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if len(der) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(der), nil
	}
	return nil, fmt.Errorf("keys: unrecognized private key encoding")
}

// Sign implements bpak.Signer.
func (s *Signer) Sign(headerDigest []byte) ([]byte, error) {
	switch s.kind {
	case bpak.SignatureEd25519:
		ed, ok := s.private.(ed25519.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("keys: signer is not an Ed25519 key")
		}
		return ed25519.Sign(ed, headerDigest), nil
	default:
		return s.private.Sign(rand.Reader, headerDigest, crypto.Hash(0))
	}
}

// Verifier checks a signature against a header digest using a public
// key loaded from DER or PEM.
type Verifier struct {
	public crypto.PublicKey
	kind   bpak.SignatureKind
}

// LoadVerifier reads a public key (PEM or raw DER, PKIX or raw Ed25519)
// and returns a Verifier for the given signature kind.
func LoadVerifier(path string, kind bpak.SignatureKind) (*Verifier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keys: reading public key: %w", err)
	}

	der := raw
	if block, _ := pem.Decode(raw); block != nil {
		der = block.Bytes
	}

	pub, err := parsePublicKey(der, kind)
	if err != nil {
		return nil, err
	}
	if err := checkKind(pub, kind); err != nil {
		return nil, err
	}
	return &Verifier{public: pub, kind: kind}, nil
}

func parsePublicKey(der []byte, kind bpak.SignatureKind) (crypto.PublicKey, error) {
	if key, err := x509.ParsePKIXPublicKey(der); err == nil {
		return key, nil
	}
	if kind == bpak.SignatureEd25519 && len(der) == ed25519.PublicKeySize {
		return ed25519.PublicKey(der), nil
	}
	return nil, fmt.Errorf("keys: unrecognized public key encoding")
}

// Verify implements bpak.Verifier.
func (v *Verifier) Verify(headerDigest []byte, signature []byte) error {
	switch pub := v.public.(type) {
	case ed25519.PublicKey:
		if !ed25519.Verify(pub, headerDigest, signature) {
			return fmt.Errorf("keys: ed25519 signature verification failed")
		}
		return nil
	case *ecdsa.PublicKey:
		if !ecdsa.VerifyASN1(pub, headerDigest, signature) {
			return fmt.Errorf("keys: ecdsa signature verification failed")
		}
		return nil
	case *rsa.PublicKey:
		return rsa.VerifyPKCS1v15(pub, crypto.Hash(0), headerDigest, signature)
	default:
		return fmt.Errorf("keys: unsupported public key type %T", pub)
	}
}

func checkKind(pub crypto.PublicKey, kind bpak.SignatureKind) error {
	switch kind {
	case bpak.SignatureEd25519:
		if _, ok := pub.(ed25519.PublicKey); !ok {
			return fmt.Errorf("keys: expected ed25519 key, got %T", pub)
		}
	case bpak.SignaturePrime256v1, bpak.SignatureSecp384r1, bpak.SignatureSecp521r1:
		ecPub, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return fmt.Errorf("keys: expected ECDSA key, got %T", pub)
		}
		want := curveFor(kind)
		if ecPub.Curve != want {
			return fmt.Errorf("keys: key curve %s does not match signature kind %s", ecPub.Curve.Params().Name, kind)
		}
	case bpak.SignatureRSA4096:
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return fmt.Errorf("keys: expected RSA key, got %T", pub)
		}
		if rsaPub.N.BitLen() != 4096 {
			return fmt.Errorf("keys: expected 4096-bit RSA key, got %d bits", rsaPub.N.BitLen())
		}
	}
	return nil
}

func curveFor(kind bpak.SignatureKind) elliptic.Curve {
	switch kind {
	case bpak.SignaturePrime256v1:
		return elliptic.P256()
	case bpak.SignatureSecp384r1:
		return elliptic.P384()
	case bpak.SignatureSecp521r1:
		return elliptic.P521()
	default:
		return nil
	}
}

// DecodePublicKeyDER parses a PEM or raw public key file and returns
// its DER body, for embedding a key as a bpak part via
// Package.AddKey.
func DecodePublicKeyDER(raw []byte) ([]byte, error) {
	if block, _ := pem.Decode(raw); block != nil {
		return block.Bytes, nil
	}
	return raw, nil
}
