package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/provide-io/bpak/pkg/bpak"
	"github.com/provide-io/bpak/pkg/keys"
)

func newSignCmd() *cobra.Command {
	var privateKeyPath string
	var keyID, keystoreID uint32

	cmd := &cobra.Command{
		Use:   "sign <archive>",
		Short: "Sign an archive's header with a private key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive := args[0]

			pkg, err := bpak.Open(archive, bpak.ModeReadWrite, logger)
			if err != nil {
				return fmt.Errorf("sign: %w", err)
			}
			defer pkg.Close()

			signer, err := keys.LoadSigner(privateKeyPath, pkg.Header.SignatureKind)
			if err != nil {
				return fmt.Errorf("sign: %w", err)
			}

			pkg.Header.KeyID = keyID
			pkg.Header.KeystoreID = keystoreID

			if err := pkg.RefreshPayloadHash(); err != nil {
				return fmt.Errorf("sign: %w", err)
			}
			if err := bpak.Sign(pkg.Header, signer); err != nil {
				return fmt.Errorf("sign: %w", err)
			}
			if err := pkg.WriteBack(); err != nil {
				return fmt.Errorf("sign: %w", err)
			}

			logger.Info("signed archive", "path", archive, "signature", pkg.Header.SignatureKind)
			return nil
		},
	}

	cmd.Flags().StringVar(&privateKeyPath, "key", "", "path to a PEM-encoded private key (required)")
	cmd.Flags().Uint32Var(&keyID, "key-id", 0, "opaque key id recorded in the header")
	cmd.Flags().Uint32Var(&keystoreID, "keystore-id", 0, "opaque keystore id recorded in the header")
	cmd.MarkFlagRequired("key")
	return cmd
}
