package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandevgo/aizen/internal/config"
	"github.com/sandevgo/aizen/internal/core"
	"github.com/sandevgo/aizen/internal/providers/llm"
	"github.com/sandevgo/aizen/internal/service/ui"
)

type modelLister interface {
	Models(ctx context.Context) ([]core.Model, error)
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available from the configured engine provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
			return err
		}
		appCfg := config.NewAppConfig(ctx)

		engine, err := llm.NewEngine(ctx, appCfg)
		if err != nil {
			return err
		}

		lister, ok := engine.(modelLister)
		if !ok {
			return fmt.Errorf("provider %s does not support listing models", appCfg.EngineProvider)
		}

		models, err := lister.Models(ctx)
		if err != nil {
			return err
		}

		fmt.Println(ui.TitleStyle.Render("AVAILABLE MODELS"))
		for _, m := range models {
			fmt.Printf("  %s %s\n", ui.UsageStyle.Render(m.ID), ui.DescStyle.Render(m.Name))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
