package main

import (
	"os"

	"github.com/kegliz/qkqest/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	debug   bool
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "qkqest",
	Short: "Surface-code resource-estimation and routing simulator",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetDebug(debug)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (optional)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug-level logging")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
