package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kegliz/qkqest/internal/api"
	"github.com/kegliz/qkqest/internal/config"
	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only HTTP introspection server over completed runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv := api.New(store)
		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe(servePort) }()

		fmt.Printf("serving run reports on :%d\n", servePort)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case err := <-errCh:
			return err
		case <-sigCh:
			return nil
		}
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", config.Defaults().APIPort, "introspection server port")
	rootCmd.AddCommand(serveCmd)
}
