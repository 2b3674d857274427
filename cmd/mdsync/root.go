package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/klinge/mangadex-anilist-sync/pkg/auth"
	"github.com/klinge/mangadex-anilist-sync/pkg/config"
	"github.com/klinge/mangadex-anilist-sync/pkg/mangadex"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mdsync",
	Short: "Sync MangaDex reading progress to a tracker",
	Long: `Fetch your followed manga and read chapters from MangaDex and push the
latest read chapter per title to a tracking service.

Running mdsync with no subcommand performs one sync pass.`,
	Run: func(cmd *cobra.Command, args []string) {
		runSyncPass(false)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "mdsync.env", "path to the settings file")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore loads the settings file and builds the logger from LOG_LEVEL.
func openStore() (*config.FileStore, *config.Config, *slog.Logger, error) {
	store, err := config.NewFileStore(cfgFile)
	if err != nil {
		return nil, nil, nil, err
	}
	cfg := config.Load(store)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	return store, cfg, logger, nil
}

// newClient wires the token manager and API client from the settings file.
func newClient() (*mangadex.Client, *config.Config, *slog.Logger, error) {
	store, cfg, logger, err := openStore()
	if err != nil {
		return nil, nil, nil, err
	}
	tokens := auth.New(cfg, store, logger)
	return mangadex.New(cfg, tokens, logger), cfg, logger, nil
}

func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
