package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/conneroisu/livepane/internal/debounce"
)

// bindFlags binds each config key to the named flag of fs.
func bindFlags(fs *pflag.FlagSet, bindings map[string]string) error {
	for key, name := range bindings {
		flag := fs.Lookup(name)
		if flag == nil {
			return fmt.Errorf("flag %q is not defined", name)
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding flag %q to %q: %w", name, key, err)
		}
	}
	return nil
}

// bindOnRun binds flags when the command runs, so commands that share flag
// names do not overwrite each other's bindings.
func bindOnRun(bindings map[string]string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd.Flags(), bindings)
	}
}

func addServerFlags(fs *pflag.FlagSet) {
	fs.IntP("port", "p", 8080, "Port to serve on")
	fs.String("host", "localhost", "Host to bind to")
}

// addPreviewFlags adds the flags every engine-running command shares.
func addPreviewFlags(fs *pflag.FlagSet) {
	fs.Duration("debounce", debounce.DefaultDelay, "Quiescence window before a recompute")
	fs.Bool("headless", false, "Run script blocks in a headless surface and log their console")
}

var previewBindings = map[string]string{
	"preview.debounce": "debounce",
	"headless.enabled": "headless",
}

func mergeBindings(sets ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, set := range sets {
		for k, v := range set {
			merged[k] = v
		}
	}
	return merged
}
