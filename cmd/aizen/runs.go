package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandevgo/aizen/internal/config"
	"github.com/sandevgo/aizen/internal/service/ui"
	"github.com/sandevgo/aizen/internal/storage/sqlite"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent task runs and their outcomes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
			return err
		}
		appCfg := config.NewAppConfig(ctx)

		db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := sqlite.NewRunsRepo(db).RecentRuns(ctx, runsLimit)
		if err != nil {
			return err
		}

		fmt.Println(ui.TitleStyle.Render("RECENT RUNS"))
		for _, run := range runs {
			line := fmt.Sprintf("  %s  %-16s  turns=%d  %s",
				run.StartedAt.Format("2006-01-02 15:04:05"),
				run.Outcome,
				run.Turns,
				truncate(run.TaskPrompt, 60),
			)
			fmt.Println(ui.UsageStyle.Render(line))
			if run.Error != "" {
				fmt.Println(ui.DescStyle.Render("    error: " + truncate(run.Error, 100)))
			}
		}
		return nil
	},
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "number of runs to show")
	rootCmd.AddCommand(runsCmd)
}
