package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/klinge/mangadex-anilist-sync/pkg/mangadex"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Print the computed reading progress",
	Long:  "Fetch and print the latest read chapter per followed manga without pushing to a tracker or recording history",
	Run: func(cmd *cobra.Command, args []string) {
		client, _, _, err := newClient()
		if err != nil {
			cobra.CheckErr(err)
		}

		progress, err := client.ReadingProgress()
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to fetch reading progress: %w", err))
		}

		titles := make([]string, 0, len(progress))
		for title := range progress {
			titles = append(titles, title)
		}
		sort.Strings(titles)

		for _, title := range titles {
			chapter := progress[title]
			if chapter == mangadex.ProgressError {
				fmt.Printf("❌ %s: could not fetch chapters\n", title)
				continue
			}
			fmt.Printf("📖 %s: chapter %s\n", title, chapter)
		}
	},
}

func init() {
	rootCmd.AddCommand(progressCmd)
}
