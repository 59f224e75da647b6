package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"custody/internal/platform/secrets"
)

var adminTokenCmd = &cobra.Command{
	Use:   "admin-token",
	Short: "Generate an admin token and the bcrypt hash to put in server.admin_token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		token, err := secrets.Generate()
		if err != nil {
			return err
		}
		hash, err := secrets.Hash(token)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "token: %s\n", token)
		fmt.Fprintf(out, "hash:  %s\n", hash)
		return nil
	},
}
