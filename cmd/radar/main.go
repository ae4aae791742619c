package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LJTian/FinRadar/internal/app"
	"github.com/LJTian/FinRadar/internal/config"
	"github.com/LJTian/FinRadar/internal/pipeline"
)

// 每个阶段都可单独执行；run 按固定顺序执行全部阶段，任一阶段失败即以非零退出
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:          "radar",
		Short:        "Daily financial news radar",
		Long:         "radar ingests financial feeds, scores the unseen headlines with a language model, and writes an executive briefing.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env", "", "path to a dotenv file (defaults to ./.env when present)")

	stageCmd := func(use, short string, s pipeline.Stage) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := build(cmd, envFile)
				if err != nil {
					return err
				}
				defer a.Close()
				return a.Pipeline.RunStage(cmd.Context(), s)
			},
		}
	}

	root.AddCommand(
		stageCmd("ingest", "Fetch all sources and write the unseen headlines", pipeline.StageIngest),
		stageCmd("score", "Score and rank the unseen headlines", pipeline.StageScore),
		stageCmd("brief", "Write the executive briefing for the top stories", pipeline.StageBrief),
		stageCmd("export", "Export the briefing as web_data.json", pipeline.StageExport),
		&cobra.Command{
			Use:   "run",
			Short: "Run ingest, score, brief and export in order",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := build(cmd, envFile)
				if err != nil {
					return err
				}
				defer a.Close()
				return a.Pipeline.Run(cmd.Context())
			},
		},
	)
	return root
}

func build(cmd *cobra.Command, envFile string) (*app.App, error) {
	cfg, err := config.LoadWithEnv(envFile)
	if err != nil {
		return nil, err
	}
	return app.Build(cfg, cmd.OutOrStdout())
}
