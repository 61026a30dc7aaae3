package main

import (
	"fmt"
	"strings"

	"github.com/provide-io/bpak/pkg/bpak"
)

func parseHashKind(s string) (bpak.HashKind, error) {
	switch strings.ToLower(s) {
	case "", "sha256":
		return bpak.HashSHA256, nil
	case "sha384":
		return bpak.HashSHA384, nil
	case "sha512":
		return bpak.HashSHA512, nil
	default:
		return bpak.HashInvalid, fmt.Errorf("unknown hash kind %q", s)
	}
}

func parseSignatureKind(s string) (bpak.SignatureKind, error) {
	switch strings.ToLower(s) {
	case "", "ed25519":
		return bpak.SignatureEd25519, nil
	case "prime256v1", "p256", "secp256r1":
		return bpak.SignaturePrime256v1, nil
	case "secp384r1", "p384":
		return bpak.SignatureSecp384r1, nil
	case "secp521r1", "p521":
		return bpak.SignatureSecp521r1, nil
	case "rsa4096":
		return bpak.SignatureRSA4096, nil
	default:
		return bpak.SignatureInvalid, fmt.Errorf("unknown signature kind %q", s)
	}
}
