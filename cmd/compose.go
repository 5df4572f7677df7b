package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/conneroisu/livepane/internal/compose"
	"github.com/conneroisu/livepane/internal/config"
	"github.com/conneroisu/livepane/internal/sandbox"
)

var composeCmd = &cobra.Command{
	Use:     "compose [exercise]",
	Aliases: []string{"c"},
	Short:   "Print the composite document for an exercise",
	Long: `Compose an exercise once and print the result. With --frame the output is
a standalone page that shows the composite in a sandboxed iframe.

Examples:
  livepane compose lessons/flexbox
  livepane compose lesson.yaml --frame -o preview.html`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCompose,
}

func init() {
	rootCmd.AddCommand(composeCmd)

	composeCmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	composeCmd.Flags().Bool("frame", false, "Wrap the document in a sandboxed iframe page")
}

func runCompose(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	seed, err := loadSeed(cfg, args)
	if err != nil {
		return err
	}

	composer := compose.Composer{EscapeBoundaries: cfg.Preview.EscapeBoundaries}
	document := composer.ComposeExercise(seed)

	if framed, _ := cmd.Flags().GetBool("frame"); framed {
		policy, err := cfg.Policy()
		if err != nil {
			return err
		}
		document = sandbox.FramePage(sandbox.Frame{Sequence: 1, Document: document, Policy: policy})
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), document)
		return err
	}
	if err := os.WriteFile(output, []byte(document), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	return nil
}
