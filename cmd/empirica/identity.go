package main

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
)

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Manage per-agent Ed25519 identities",
}

var identityCreateOverwrite bool

var identityCreateCmd = &cobra.Command{
	Use:   "create <ai-id>",
	Short: "Generate an Ed25519 key pair for an agent and print its public key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		aiID := args[0]
		pub, err := a.identities.CreateIdentity(aiID, identityCreateOverwrite)
		if err != nil {
			return fmt.Errorf("failed to create identity for %s: %w", aiID, err)
		}

		pem, err := a.identities.ExportPublicKeyPEM(aiID)
		if err != nil {
			return fmt.Errorf("identity created but failed to export public key: %w", err)
		}

		outputResult(map[string]string{
			"ai_id":            aiID,
			"public_key_b64":   base64.StdEncoding.EncodeToString(pub),
			"public_key_pem":   pem,
		})
		return nil
	},
}

var identityExportCmd = &cobra.Command{
	Use:   "export <ai-id>",
	Short: "Print an agent's public key as PKIX PEM",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pem, err := a.identities.ExportPublicKeyPEM(args[0])
		if err != nil {
			return fmt.Errorf("failed to export public key for %s: %w", args[0], err)
		}
		fmt.Print(pem)
		return nil
	},
}

func init() {
	identityCreateCmd.Flags().BoolVar(&identityCreateOverwrite, "overwrite", false, "Overwrite an existing identity's key material")
	identityCmd.AddCommand(identityCreateCmd, identityExportCmd)
	rootCmd.AddCommand(identityCmd)
}
