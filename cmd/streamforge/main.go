// Package main provides the streamforge entry point
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "streamforge",
	Short: "Remote media to HLS conversion service",
	Long: "StreamForge downloads remote media, analyzes its streams and " +
		"repackages a caller-selected subset into an HLS rendition.",
	Version: "1.0.0",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")
}

// initConfig points viper at the config file; defaults and environment
// overrides are handled by the config package
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		return
	}

	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")
	viper.SetConfigType("yaml")
	viper.SetConfigName("config")
}
