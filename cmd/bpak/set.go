package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/provide-io/bpak/pkg/bpak"
)

func newSetCmd() *cobra.Command {
	var partName string

	cmd := &cobra.Command{
		Use:   "set <archive> <meta-key> <value>",
		Short: "Set a string meta entry, optionally scoped to a part",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, key, value := args[0], args[1], args[2]

			pkg, err := bpak.Open(archive, bpak.ModeReadWrite, logger)
			if err != nil {
				return fmt.Errorf("set: %w", err)
			}
			defer pkg.Close()

			keyID, err := bpak.IDHash(key)
			if err != nil {
				return fmt.Errorf("set: %w", err)
			}

			var partRef uint32
			if partName != "" {
				partRef, err = bpak.IDHash(partName)
				if err != nil {
					return fmt.Errorf("set: %w", err)
				}
			}

			if err := pkg.Header.SetMetaString(keyID, partRef, value); err != nil {
				return fmt.Errorf("set: %w", err)
			}
			if err := pkg.WriteBack(); err != nil {
				return fmt.Errorf("set: %w", err)
			}

			logger.Info("set meta", "key", key, "part", partName)
			return nil
		},
	}

	cmd.Flags().StringVar(&partName, "part", "", "scope this entry to a part by name (default: archive-global)")
	return cmd
}
