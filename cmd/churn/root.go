package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/churn/pkg/churn/config"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "churn [path]",
		Short: "Generate continuous filesystem activity",
		Long: `Churn generates synthetic, continuous filesystem activity against a
bounded directory tree: random creation, growth, rewriting, and deletion
of files and directories, held under configurable ceilings.

It is intended for load- and stress-testing filesystems, backup tooling,
and sync agents that need a perpetually changing tree to chew on.

Examples:
  churn                           # Run against the default root
  churn /var/tmp/churn/data       # Run against a specific tree
  churn -w 4                      # Four workers on the same tree
  churn --max-bytes 2G --max-dirs 500
  churn --dashboard               # Live stats instead of the action stream
  churn history                   # View past runs`,
		Args: cobra.MaximumNArgs(1),
		RunE: runChurn,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/churn/config.yaml)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress the per-action stream")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	rootCmd.Flags().IntP("workers", "w", 0, "number of concurrent workers")
	rootCmd.Flags().Int("max-dirs", 0, "directory-count ceiling")
	rootCmd.Flags().String("max-bytes", "", "disk-usage ceiling (e.g. 500M, 10G)")
	rootCmd.Flags().Duration("max-sleep", 0, "upper bound on the random sleep between actions")
	rootCmd.Flags().Bool("isolate", true, "confine the filesystem view to the root before starting")
	rootCmd.Flags().Bool("dashboard", false, "show a live stats dashboard instead of the action stream")

	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("workers", rootCmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("max_dirs", rootCmd.Flags().Lookup("max-dirs"))
	_ = viper.BindPFlag("max_bytes", rootCmd.Flags().Lookup("max-bytes"))
	_ = viper.BindPFlag("max_sleep", rootCmd.Flags().Lookup("max-sleep"))
	_ = viper.BindPFlag("isolate", rootCmd.Flags().Lookup("isolate"))
	_ = viper.BindPFlag("dashboard", rootCmd.Flags().Lookup("dashboard"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			viper.AddConfigPath(filepath.Join(xdgConfigHome, "churn"))
		}

		homeDir, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(homeDir, ".config", "churn"))
		}
	}

	viper.SetEnvPrefix("CHURN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
