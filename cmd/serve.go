package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/livepane/internal/monitoring"
	"github.com/conneroisu/livepane/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve [exercise]",
	Aliases: []string{"s"},
	Short:   "Start the preview server",
	Long: `Start the preview server. The host page has one editor per buffer and a
sandboxed preview frame; each open page gets its own engine seeded from the
exercise, which is a directory, a .yaml/.json file, or the built-in starter.

Examples:
  livepane serve                    # Built-in starter exercise
  livepane serve lessons/flexbox    # Directory with index.html, style.css, script.js
  livepane serve lesson.yaml -p 3000 --headless`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: bindOnRun(mergeBindings(previewBindings, map[string]string{"server.port": "port", "server.host": "host"})),
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	addServerFlags(serveCmd.Flags())
	addPreviewFlags(serveCmd.Flags())
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}

	seed, err := loadSeed(cfg, args)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, seed, logger, monitoring.NewMetrics())
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Starting livepane at http://%s\n", cfg.Addr())
	return srv.Start(ctx)
}
