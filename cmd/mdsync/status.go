package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/klinge/mangadex-anilist-sync/pkg/app/styles"
	"github.com/klinge/mangadex-anilist-sync/pkg/data"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last sync results",
	Long:  "Display the last-seen reading progress per title and a summary of the most recent sync run",
	Run: func(cmd *cobra.Command, args []string) {
		_, cfg, _, err := openStore()
		if err != nil {
			cobra.CheckErr(err)
		}

		repo, err := data.NewRepository(cfg.DBPath)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to open sync history: %w", err))
		}
		defer repo.Close()

		last, err := repo.LastRun()
		if err != nil {
			cobra.CheckErr(err)
		}
		if last == nil {
			fmt.Println("No sync has run yet. Use 'mdsync sync' first.")
			return
		}

		rows, err := repo.ListProgress()
		if err != nil {
			cobra.CheckErr(err)
		}

		fmt.Printf("\nLast sync: %s — %d titles, %d errors\n\n",
			last.FinishedAt.Format("2006-01-02 15:04:05"), last.Total, last.Errors)

		t := table.New().
			Border(lipgloss.HiddenBorder()).
			StyleFunc(func(row, col int) lipgloss.Style {
				switch {
				case row == table.HeaderRow:
					return styles.TableHeaderStyle
				default:
					return styles.TableCellStyle
				}
			}).
			Headers("Title", "Chapter", "Status", "Updated")

		for _, p := range rows {
			t.Row(truncateString(p.Title, 48), p.Chapter, p.Status, p.UpdatedAt.Format("2006-01-02 15:04"))
		}

		fmt.Println(t)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
