package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/provide-io/bpak/pkg/bpak"
)

func newAddCmd() *cobra.Command {
	var partName string
	var flagTransport, flagExclude, merkle bool

	cmd := &cobra.Command{
		Use:   "add <archive> <file>",
		Short: "Append a file as a new part",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, path := args[0], args[1]
			if partName == "" {
				partName = path
			}

			pkg, err := bpak.Open(archive, bpak.ModeReadWrite, logger)
			if err != nil {
				return fmt.Errorf("add: %w", err)
			}
			defer pkg.Close()

			var flags uint8
			if flagTransport {
				flags |= bpak.FlagTransport
			}
			if flagExclude {
				flags |= bpak.FlagExcludeFromHash
			}

			bar := progressbar.DefaultBytes(-1, fmt.Sprintf("adding %s", partName))
			defer bar.Close()

			if merkle {
				err = pkg.AddFileWithMerkleTree(path, partName, flags)
			} else {
				err = pkg.AddFile(path, partName, flags)
			}
			if err != nil {
				return fmt.Errorf("add: %w", err)
			}
			bar.Finish()

			logger.Info("added part", "name", partName, "merkle", merkle)
			return nil
		},
	}

	cmd.Flags().StringVar(&partName, "name", "", "part name (defaults to the file path)")
	cmd.Flags().BoolVar(&flagTransport, "transport", false, "set BPAK_FLAG_TRANSPORT on the new part")
	cmd.Flags().BoolVar(&flagExclude, "exclude-from-hash", false, "set BPAK_FLAG_EXCLUDE_FROM_HASH on the new part")
	cmd.Flags().BoolVar(&merkle, "merkle", false, "attach an authenticated Merkle hash tree companion part")
	return cmd
}
