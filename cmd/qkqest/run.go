package main

import (
	"fmt"
	"os"

	"github.com/kegliz/qkqest/internal/config"
	"github.com/kegliz/qkqest/internal/format"
	"github.com/kegliz/qkqest/internal/pipeline"
	"github.com/kegliz/qkqest/internal/runstore"
	"github.com/spf13/cobra"
)

var store = runstore.New()

var runCmd = &cobra.Command{
	Use:   "run <benchmark-path>",
	Short: "Schedule and simulate a benchmark's LPFS/FREQ pair and print its KQ report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}

		report, err := pipeline.Run(cfg, store, args[0])
		if err != nil {
			return err
		}

		w := format.NewWriter(report.Final)
		if err := w.WriteKQ(os.Stdout); err != nil {
			return err
		}
		fmt.Printf("run id %s\n", report.RunID)
		return nil
	},
}

func init() {
	config.BindFlags(v, runCmd.Flags())
	rootCmd.AddCommand(runCmd)
}
