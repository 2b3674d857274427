package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/klinge/mangadex-anilist-sync/pkg/app"
	"github.com/klinge/mangadex-anilist-sync/pkg/auth"
	"github.com/klinge/mangadex-anilist-sync/pkg/data"
	"github.com/klinge/mangadex-anilist-sync/pkg/mangadex"
	"github.com/klinge/mangadex-anilist-sync/pkg/services"
	"github.com/klinge/mangadex-anilist-sync/pkg/tracker"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass",
	Long:  "Fetch reading progress from MangaDex and push it to the configured tracker",
	Run: func(cmd *cobra.Command, args []string) {
		watch, _ := cmd.Flags().GetBool("watch")
		runSyncPass(watch)
	},
}

func init() {
	syncCmd.Flags().BoolP("watch", "w", false, "show a live progress view")
	rootCmd.AddCommand(syncCmd)
}

// runSyncPass performs one sync. A failed progress fetch is printed, not
// propagated; the process exits 0 either way.
func runSyncPass(watch bool) {
	store, cfg, logger, err := openStore()
	if err != nil {
		cobra.CheckErr(err)
	}

	tokens := auth.New(cfg, store, logger)
	client := mangadex.New(cfg, tokens, logger)
	sink := tracker.NewNoopSink(logger)

	var recorder services.Recorder
	repo, err := data.NewRepository(cfg.DBPath)
	if err != nil {
		logger.Warn("sync history disabled", "error", err)
	} else {
		defer repo.Close()
		recorder = repo
	}

	manager := services.NewSyncManager(client, sink, recorder, logger)

	if watch {
		if err := app.NewApp(manager).Run(); err != nil {
			cobra.CheckErr(err)
		}
		return
	}

	// Print per-title results as they stream in.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range manager.ProgressChannel() {
			switch update.Status {
			case services.StatusSynced:
				fmt.Printf("  [%d/%d] %s → chapter %s\n", update.Index, update.Total, update.Title, update.Chapter)
			default:
				if update.Err != nil {
					fmt.Printf("  [%d/%d] %s: %v\n", update.Index, update.Total, update.Title, update.Err)
				} else {
					fmt.Printf("  [%d/%d] %s: could not fetch chapters\n", update.Index, update.Total, update.Title)
				}
			}
		}
	}()

	summary := manager.Sync()
	<-done

	if summary.Err != nil {
		fmt.Printf("Error fetching MangaDex progress: %v\n", summary.Err)
		return
	}
	fmt.Printf("✅ Synced %d of %d titles (%d errors) in %s\n",
		summary.Pushed, summary.Total, summary.Errors, summary.Duration.Round(10*time.Millisecond))
}
