package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/resona/api/internal/middleware"
	"github.com/resona/api/internal/model"
)

var (
	tokenUserID string
	tokenEmail  string
	tokenSecret string

	falKey       string
	minimaxKey   string
	replicateKey string
)

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user", "dev-user", "user ID claim")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "dev@localhost", "email claim")
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", os.Getenv("JWT_SECRET"), "signing secret (or JWT_SECRET)")

	keysCmd.Flags().StringVar(&falKey, "fal", "", "fal.ai API key ('-' clears)")
	keysCmd.Flags().StringVar(&minimaxKey, "minimax", "", "MiniMax API key ('-' clears)")
	keysCmd.Flags().StringVar(&replicateKey, "replicate", "", "Replicate API key ('-' clears)")
}

// tokenCmd mints a local HMAC token for development and testing. Production
// deployments issue tokens from their own identity provider.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development bearer token",
	Run: func(cmd *cobra.Command, args []string) {
		if tokenSecret == "" {
			fmt.Fprintln(os.Stderr, "a signing secret is required (--secret or JWT_SECRET)")
			os.Exit(1)
		}
		signed, err := middleware.NewAuthMiddleware(tokenSecret).GenerateToken(tokenUserID, tokenEmail)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(signed)
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Set provider API keys for the authenticated user",
	Run: func(cmd *cobra.Command, args []string) {
		res, err := api().UpdateAPIKeys(context.Background(), &model.UpdateAPIKeysRequest{
			FalAPIKey:       falKey,
			MiniMaxAPIKey:   minimaxKey,
			ReplicateAPIKey: replicateKey,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "update failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("fal=%v minimax=%v replicate=%v\n",
			res.FalConfigured, res.MiniMaxConfigured, res.ReplicateConfigured)
	},
}
