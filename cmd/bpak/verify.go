package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/provide-io/bpak/pkg/bpak"
	"github.com/provide-io/bpak/pkg/keys"
)

func newVerifyCmd() *cobra.Command {
	var publicKeyPath string

	cmd := &cobra.Command{
		Use:   "verify <archive>",
		Short: "Verify an archive's payload hash and signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive := args[0]

			pkg, err := bpak.Open(archive, bpak.ModeReadWrite, logger)
			if err != nil {
				return fmt.Errorf("verify: %w", err)
			}
			defer pkg.Close()

			verifier, err := keys.LoadVerifier(publicKeyPath, pkg.Header.SignatureKind)
			if err != nil {
				return fmt.Errorf("verify: %w", err)
			}

			if err := bpak.VerifySignature(pkg.Stream(), pkg.Header, pkg.Location, verifier); err != nil {
				color.Red("verification failed: %v", err)
				return err
			}

			color.Green("%s: signature and payload hash valid", archive)
			return nil
		},
	}

	cmd.Flags().StringVar(&publicKeyPath, "key", "", "path to a public key (required)")
	cmd.MarkFlagRequired("key")
	return cmd
}
