package bpak

import "hash/crc32"

// IDHash computes the deterministic 32-bit identifier bpak uses to refer
// to parts and meta keys by name. It is a reflected CRC-32 (the IEEE
// polynomial) over the UTF-8 bytes of name.
//
// IDs are not a trust boundary: two different names never need to be
// distinguishable under attack, only under accidental collision, so a
// fast non-cryptographic hash is the right tool. Tampering with a name
// changes what gets looked up, not what a signature covers.
func IDHash(name string) (uint32, error) {
	if name == "" {
		return 0, newErr(KindInvalidArgument, "IDHash", errEmptyName)
	}
	return crc32.ChecksumIEEE([]byte(name)), nil
}

// MustIDHash panics if name is empty; it exists for package-level id
// tables built from string literals known at compile time.
func MustIDHash(name string) uint32 {
	id, err := IDHash(name)
	if err != nil {
		panic(err)
	}
	return id
}

var errEmptyName = invalidArgument("empty name")

type invalidArgument string

func (e invalidArgument) Error() string { return string(e) }
