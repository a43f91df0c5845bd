package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/resona/api/internal/client"
)

var (
	serverURL string
	token     string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "resona",
	Short: "Command-line client for the Resona generation API",
	Long: `Command-line client for the Resona generation API.
- Submit music generation, voice clone, and voice conversion jobs
- Watch in-flight jobs until they finish
- Retry durable-storage migration for completed jobs`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("RESONA_SERVER", "http://localhost:8000"), "API server base URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("RESONA_TOKEN"), "bearer token (or RESONA_TOKEN)")

	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(cloneCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(keysCmd)
}

func api() *client.APIClient {
	return client.NewAPIClient(serverURL, token)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
