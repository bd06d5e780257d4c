package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/sandevgo/aizen/pkg/log"
	"github.com/sandevgo/aizen/pkg/srv"
)

var (
	agentPath string
	tasksPath string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Aizen agent",
	Long:  `Loads the agent and task definitions and runs the scheduler until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		// logger setup
		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting aizen")

		services := NewServices(ctx, agentPath, tasksPath)

		srv.StartServices(ctx, services)

		// Wait for shutdown signal
		srv.ShutdownServices(ctx, services)
		logger.Info().Msg("aizen has been shut down gracefully")

		return nil
	},
}

func init() {
	startCmd.Flags().StringVar(&agentPath, "agent", "", "path to agent.yaml (default: <runtime>/agent.yaml)")
	startCmd.Flags().StringVar(&tasksPath, "tasks", "", "path to tasks.yaml (default: <runtime>/tasks.yaml)")
	rootCmd.AddCommand(startCmd)
}
