package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klinge/mangadex-anilist-sync/pkg/auth"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize with MangaDex",
	Long: `Run a full password-grant authorization against MangaDex using the
credentials from the settings file, regardless of any stored tokens.`,
	Run: func(cmd *cobra.Command, args []string) {
		store, cfg, logger, err := openStore()
		if err != nil {
			cobra.CheckErr(err)
		}

		m := auth.New(cfg, store, logger)
		if err := m.Authorize(); err != nil {
			cobra.CheckErr(fmt.Errorf("login failed: %w", err))
		}

		fmt.Println("✅ Authorized with MangaDex, tokens saved")
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
