package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/livepane/internal/buffer"
	"github.com/conneroisu/livepane/internal/compose"
	"github.com/conneroisu/livepane/internal/config"
	"github.com/conneroisu/livepane/internal/engine"
	"github.com/conneroisu/livepane/internal/exercise"
	"github.com/conneroisu/livepane/internal/logging"
	"github.com/conneroisu/livepane/internal/sandbox"
	"github.com/conneroisu/livepane/internal/sandbox/headless"
	"github.com/conneroisu/livepane/internal/watcher"
)

// outputDir is created inside the watched directory.
const outputDir = ".livepane"

var watchCmd = &cobra.Command{
	Use:     "watch <dir>",
	Aliases: []string{"w"},
	Short:   "Preview an exercise directory as its files change",
	Long: `Watch a directory holding index.html, style.css and script.js. Every save
becomes an edit; after the debounce window the composite is written to
<dir>/.livepane/document.html and a sandboxed wrapper to
<dir>/.livepane/preview.html.

Examples:
  livepane watch lessons/flexbox
  livepane watch . --stdout --debounce 500ms`,
	Args:    cobra.ExactArgs(1),
	PreRunE: bindOnRun(previewBindings),
	RunE:    runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	addPreviewFlags(watchCmd.Flags())
	watchCmd.Flags().Bool("stdout", false, "Also print every composite document")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}

	dir, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving %s: %w", args[0], err)
	}
	seed, err := exercise.LoadDir(dir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files := sandbox.NewFileSurface(filepath.Join(dir, outputDir))
	if echo, _ := cmd.Flags().GetBool("stdout"); echo {
		files.Echo = cmd.OutOrStdout()
	}

	eng, closeSurfaces, err := newWatchEngine(cfg, logger, seed, files)
	if err != nil {
		return err
	}
	defer closeSurfaces()
	defer eng.Close()

	fw, err := watcher.NewFileWatcher(logger)
	if err != nil {
		return err
	}
	defer fw.Stop()

	fw.AddFilter(watcher.NoGitFilter)
	fw.AddFilter(watcher.NoHiddenFilter)
	fw.AddFilter(watcher.BufferFilter)
	fw.AddHandler(watcher.SyncBuffers(eng, cfg.Limits.MaxBufferBytes))
	if err := fw.AddPath(dir); err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}

	eng.Start(ctx)
	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s\nPreview: file://%s\n", dir, files.FramePath)

	<-ctx.Done()
	return nil
}

// newWatchEngine wires an engine to the file surface, plus the headless
// surface when enabled. The returned func releases the surfaces.
func newWatchEngine(cfg *config.Config, logger logging.Logger, seed buffer.Exercise, files sandbox.Surface) (*engine.Engine, func(), error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, nil, err
	}

	surface := files
	closeSurfaces := func() {}
	if cfg.Headless.Enabled {
		runner := headless.New(headless.Config{Timeout: cfg.Headless.Timeout}, logger, nil)
		surface = sandbox.MultiSurface(files, runner)
		closeSurfaces = func() { runner.Close() }
	}

	composer := compose.Composer{EscapeBoundaries: cfg.Preview.EscapeBoundaries}
	eng := engine.New(seed, sandbox.NewRenderer(surface, policy, logger), engine.Options{
		Delay:    cfg.Preview.Debounce,
		Composer: &composer,
		Logger:   logger,
	})
	return eng, closeSurfaces, nil
}
