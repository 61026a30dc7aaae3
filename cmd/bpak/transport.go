package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/provide-io/bpak/pkg/bpak"
	"github.com/provide-io/bpak/pkg/transport"
)

func newTransportCmd() *cobra.Command {
	var originPath string
	var decode bool

	cmd := &cobra.Command{
		Use:   "transport <input> <output>",
		Short: "Transport-encode or transport-decode an archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath, outputPath := args[0], args[1]

			src, err := bpak.Open(inputPath, bpak.ModeReadWrite, logger)
			if err != nil {
				return fmt.Errorf("transport: %w", err)
			}
			defer src.Close()

			var origin *bpak.Package
			if originPath != "" {
				origin, err = bpak.Open(originPath, bpak.ModeReadWrite, logger)
				if err != nil {
					return fmt.Errorf("transport: %w", err)
				}
				defer origin.Close()
			}

			bar := progressbar.Default(int64(src.Header.PartCount()), "transporting parts")
			defer bar.Close()

			engine := transport.NewEngine(logger)
			var out *bpak.Package
			if decode {
				out, err = engine.Decode(src, outputPath, origin)
			} else {
				out, err = engine.Encode(src, outputPath, origin)
			}
			if err != nil {
				return fmt.Errorf("transport: %w", err)
			}
			defer out.Close()
			bar.Set(src.Header.PartCount())

			logger.Info("transport pass complete", "decode", decode, "output", outputPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&originPath, "origin", "", "origin archive for delta back-ends")
	cmd.Flags().BoolVar(&decode, "decode", false, "decode instead of encode")
	return cmd
}
