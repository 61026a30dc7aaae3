package main

import (
	"bytes"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/provide-io/bpak/pkg/bpak"
)

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <archive-a> <archive-b>",
		Short: "Compare two archives part-by-part",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bpak.Open(args[0], bpak.ModeReadWrite, logger)
			if err != nil {
				return fmt.Errorf("compare: %w", err)
			}
			defer a.Close()

			b, err := bpak.Open(args[1], bpak.ModeReadWrite, logger)
			if err != nil {
				return fmt.Errorf("compare: %w", err)
			}
			defer b.Close()

			identical := true

			if a.Header.PartCount() != b.Header.PartCount() {
				identical = false
				fmt.Printf("part count differs: %d vs %d\n", a.Header.PartCount(), b.Header.PartCount())
			}

			a.Header.ForeachPart(func(pa *bpak.PartEntry) bool {
				pb, err := b.Header.GetPart(pa.ID)
				if err != nil {
					identical = false
					fmt.Printf("part 0x%08x missing from %s\n", pa.ID, args[1])
					return true
				}
				if pa.Size != pb.Size {
					identical = false
					fmt.Printf("part 0x%08x nominal size differs: %d vs %d\n", pa.ID, pa.Size, pb.Size)
				}

				da, err := a.ReadPart(pa.ID)
				if err != nil {
					identical = false
					return true
				}
				db, err := b.ReadPart(pb.ID)
				if err != nil {
					identical = false
					return true
				}
				if !bytes.Equal(da, db) {
					identical = false
					fmt.Printf("part 0x%08x on-disk bytes differ\n", pa.ID)
				}
				return true
			})

			if !bytes.Equal(a.Header.PayloadHash[:], b.Header.PayloadHash[:]) {
				identical = false
				fmt.Println("payload hash differs")
			}

			if identical {
				color.Green("archives are equivalent")
				return nil
			}
			color.Red("archives differ")
			return fmt.Errorf("archives differ")
		},
	}
	return cmd
}
