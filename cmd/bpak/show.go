package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/provide-io/bpak/pkg/bpak"
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <archive>",
		Short: "Print an archive's header, parts and meta entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive := args[0]

			pkg, err := bpak.Open(archive, bpak.ModeReadWrite, logger)
			if err != nil {
				return fmt.Errorf("show: %w", err)
			}
			defer pkg.Close()

			header := color.New(color.FgCyan, color.Bold)
			field := color.New(color.FgYellow)

			header.Println("header")
			fmt.Printf("  version:        %d\n", pkg.Header.Version)
			fmt.Printf("  hash_kind:      %s\n", pkg.Header.HashKind)
			fmt.Printf("  signature_kind: %s\n", pkg.Header.SignatureKind)
			fmt.Printf("  location:       %v\n", locationName(pkg.Location))
			fmt.Printf("  key_id:         0x%08x\n", pkg.Header.KeyID)
			fmt.Printf("  keystore_id:    0x%08x\n", pkg.Header.KeystoreID)
			fmt.Printf("  payload_hash:   %x\n", pkg.Header.PayloadHash[:hashLen(pkg.Header.HashKind)])

			header.Println("\nparts")
			pkg.Header.ForeachPart(func(p *bpak.PartEntry) bool {
				field.Printf("  id=0x%08x", p.ID)
				fmt.Printf(" size=%d transport_size=%d offset=%d pad=%d flags=0x%02x\n",
					p.Size, p.TransportSize, p.Offset, p.PadBytes, p.Flags)
				return true
			})

			header.Println("\nmeta")
			pkg.Header.ForeachMeta(func(m *bpak.MetaEntry) bool {
				field.Printf("  id=0x%08x", m.ID)
				fmt.Printf(" part_ref=0x%08x size=%d\n", m.PartIDRef, m.Size)
				return true
			})

			return nil
		},
	}
	return cmd
}

func locationName(loc bpak.HeaderLocation) string {
	if loc == bpak.LocationTail {
		return "tail"
	}
	return "front"
}

func hashLen(kind bpak.HashKind) int {
	switch kind {
	case bpak.HashSHA256:
		return 32
	case bpak.HashSHA384:
		return 48
	case bpak.HashSHA512:
		return 64
	default:
		return 0
	}
}
