package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hoverbird/ingrid-core/internal/config"
	"github.com/hoverbird/ingrid-core/internal/server"
)

var (
	servePort               string
	serveWordlist           string
	serveMinScore           int
	serveMaxSharedSubstring int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the fill service as an HTTP + websocket server",
	Long: `Serve starts the same HTTP API cmd/fillserver exposes, reading the rest of
its configuration (database and redis URLs, JWT secret) from the environment
or a .env file, exactly like config.Load.

Example:
  fillctl serve --port 8080 --wordlist words.txt`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "port to listen on (overrides PORT env var)")
	serveCmd.Flags().StringVarP(&serveWordlist, "wordlist", "w", "", "path to the wordlist file (overrides WORDLIST_PATH env var)")
	serveCmd.Flags().IntVar(&serveMinScore, "min-score", 0, "default minimum word score (overrides MIN_SCORE env var)")
	serveCmd.Flags().IntVar(&serveMaxSharedSubstring, "max-shared-substring", 0, "default dupe threshold (overrides MAX_SHARED_SUBSTRING env var)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if servePort != "" {
		cfg.Port = servePort
	}
	if serveWordlist != "" {
		cfg.WordlistPath = serveWordlist
	}
	if serveMinScore != 0 {
		cfg.MinScore = serveMinScore
	}
	if serveMaxSharedSubstring != 0 {
		cfg.MaxSharedSubstring = serveMaxSharedSubstring
	}

	return server.Run(cfg)
}
