// Command saunafs-chunkserver is a thin entrypoint over this module's core
// components (job pool, trash manager, read engine, disk energy manager,
// chunk reader): it resolves configuration, wires up logging and metrics,
// and runs the maintenance loop. The wire protocol and on-disk chunk store
// a production chunkserver needs around this core are out of scope here.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/leil-io/saunafs-chunkserver-core/internal/cfg"
)

var (
	cfgFile string
	bindErr error
)

var rootCmd = &cobra.Command{
	Use:   "saunafs-chunkserver",
	Short: "Run the SaunaFS chunkserver core's trash maintenance service",
	Long: `saunafs-chunkserver hosts the chunkserver core's background
services: the trash manager's garbage-collection tick, after a startup
check of the disk energy manager's placement policy. It does not start
the job pool, chunk reader or read engine, and it does not itself speak
the chunkserver wire protocol.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to an optional YAML config file")
	bindErr = cfg.BindFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(serveCmd)
}

func loadConfig(flags *pflag.FlagSet) (cfg.Config, error) {
	if bindErr != nil {
		return cfg.Config{}, bindErr
	}
	path := cfgFile
	if path != "" {
		resolved, err := resolvePath(path)
		if err != nil {
			return cfg.Config{}, fmt.Errorf("resolving config file path: %w", err)
		}
		path = resolved
	}
	return cfg.Load(path, viper.GetViper())
}

func resolvePath(path string) (string, error) {
	abs, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if os.IsPathSeparator(path[0]) {
		return path, nil
	}
	return abs + string(os.PathSeparator) + path, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
