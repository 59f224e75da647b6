package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "custody/internal/jwt_token"
	"custody/internal/platform/config"
	id "custody/pkg/domain"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token <principal>",
	Short: "Issue a bearer token for a principal",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	principal, err := id.ParsePrincipalID(args[0])
	if err != nil {
		return err
	}
	svc := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	token, err := svc.GenerateAccessToken(principal, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
