package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/livepane/internal/buffer"
	"github.com/conneroisu/livepane/internal/debounce"
	"github.com/conneroisu/livepane/internal/exercise"
)

var initCmd = &cobra.Command{
	Use:     "init [dir]",
	Aliases: []string{"i"},
	Short:   "Create an exercise directory",
	Long: `Create an exercise directory holding the starter buffers as index.html,
style.css and script.js, plus a .livepane.yml with the default settings.
Existing files are kept unless --force is given.

Examples:
  livepane init              # Current directory
  livepane init lessons/one`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().Bool("force", false, "Overwrite existing files")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	force, _ := cmd.Flags().GetBool("force")

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	seed := exercise.Default()
	files := map[string]string{
		"index.html": seed.Get(buffer.KindMarkup),
		"style.css":  seed.Get(buffer.KindStyle),
		"script.js":  seed.Get(buffer.KindScript),
	}

	settings, err := yaml.Marshal(starterConfig())
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	files[".livepane.yml"] = string(settings)

	for _, name := range []string{"index.html", "style.css", "script.js", ".livepane.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil && !force {
			fmt.Fprintf(cmd.ErrOrStderr(), "Keeping existing %s\n", path)
			continue
		}
		if err := os.WriteFile(path, []byte(files[name]), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
	}

	return nil
}

// starterConfig is the config written by init: the defaults, with the
// exercise pointing at the directory the file sits in.
func starterConfig() map[string]interface{} {
	return map[string]interface{}{
		"server": map[string]interface{}{
			"host": "localhost",
			"port": 8080,
		},
		"preview": map[string]interface{}{
			"debounce":          debounce.DefaultDelay.String(),
			"escape_boundaries": true,
		},
		"exercise": map[string]interface{}{
			"path": ".",
		},
		"headless": map[string]interface{}{
			"enabled": false,
			"timeout": "2s",
		},
		"limits": map[string]interface{}{
			"edits_per_second": 30,
			"burst":            60,
			"max_buffer_bytes": 512 * 1024,
		},
		"log": map[string]interface{}{
			"level":  "info",
			"format": "text",
		},
	}
}
