// Package cmd provides the command-line interface for livepane.
//
// Configuration is read from, in order of precedence: command-line flags,
// LIVEPANE_<SECTION>_<KEY> environment variables, and a YAML file. The file
// is the --config flag, else LIVEPANE_CONFIG_FILE, else .livepane.yml in the
// working directory.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/livepane/internal/buffer"
	"github.com/conneroisu/livepane/internal/config"
	"github.com/conneroisu/livepane/internal/exercise"
	"github.com/conneroisu/livepane/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "livepane",
	Short: "Live preview for markup, style and script exercises",
	Long: `livepane composes three source buffers (markup, style, script) into one
document and renders it in a sandboxed frame after every burst of edits.

Quick Start:
  livepane init lesson            Create an exercise directory
  livepane serve lesson           Edit in the browser with live preview
  livepane watch lesson           Edit files, preview in lesson/.livepane
  livepane compose lesson         Print the composite document`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .livepane.yml, can also use LIVEPANE_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	cobra.CheckErr(bindFlags(rootCmd.PersistentFlags(), map[string]string{
		"log.level":  "log-level",
		"log.format": "log-format",
	}))
}

// initConfig points viper at the config file and enables LIVEPANE_
// environment overrides. A missing file is not an error.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("LIVEPANE_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".livepane")
	}

	viper.SetEnvPrefix("LIVEPANE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadRuntime loads the configuration and builds the logger every command
// uses.
func loadRuntime() (*config.Config, logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.NewLogger(cfg.LoggerConfig()), nil
}

// loadSeed resolves the exercise from the first argument, falling back to
// exercise.path and then the built-in starter.
func loadSeed(cfg *config.Config, args []string) (buffer.Exercise, error) {
	path := cfg.Exercise.Path
	if len(args) > 0 {
		path = args[0]
	}
	return exercise.Load(path)
}
