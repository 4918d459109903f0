package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "0.1.0"

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "localcode",
		Short: "Local LLM server for coding agents",
		Long: `localcode downloads model weights, starts a llama-swap server container
exposing an OpenAI-compatible endpoint, and reports its loading progress.`,
		Version:      version,
		SilenceUsage: true,
	}
)

func Execute() {
	rootCmd.SilenceErrors = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "setup file (default: ./localcode.{json,yaml,yml,toml}, then ~/.config/localcode/)")
	pf.String("log-level", "", "log level: trace, debug, info, warn, error, off (default warn)")
	pf.String("log-format", "console", "log format: console or json")
	pf.String("runtime", "", "container backend: cli or engine")
	pf.String("models-dir", "", "weights directory")
	pf.Int("port", 0, "host port of the server")
	for _, name := range []string{"log-level", "log-format", "runtime", "models-dir", "port"} {
		cobra.CheckErr(viper.BindPFlag(name, pf.Lookup(name)))
	}

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(configCmd)
}

// initConfig binds LOCALCODE_* environment variables, e.g. LOCALCODE_LOG_LEVEL.
func initConfig() {
	viper.SetEnvPrefix("LOCALCODE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
