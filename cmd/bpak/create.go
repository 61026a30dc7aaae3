package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/provide-io/bpak/pkg/bpak"
)

func newCreateCmd() *cobra.Command {
	var hashKind, sigKind string

	cmd := &cobra.Command{
		Use:   "create <archive>",
		Short: "Create a new, empty BPAK archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hk, err := parseHashKind(hashKind)
			if err != nil {
				return err
			}
			sk, err := parseSignatureKind(sigKind)
			if err != nil {
				return err
			}

			pkg, err := bpak.CreateWithKinds(args[0], hk, sk, logger)
			if err != nil {
				return fmt.Errorf("create: %w", err)
			}
			defer pkg.Close()

			logger.Info("created archive", "path", args[0], "hash", hk, "signature", sk)
			return nil
		},
	}

	cmd.Flags().StringVar(&hashKind, "hash", "sha256", "payload/header hash algorithm (sha256, sha384, sha512)")
	cmd.Flags().StringVar(&sigKind, "signature", "ed25519", "signature algorithm (ed25519, prime256v1, secp384r1, secp521r1, rsa4096)")
	return cmd
}
