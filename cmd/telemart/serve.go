package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/telemart/telemart"
	"github.com/telemart/telemart/pkg/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the storefront",
	Long:  `Starts the storefront: restores snapshots, runs the background loops and serves the ops HTTP listener until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		addr, _ := cmd.Flags().GetString("listen")

		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		if addr != "" {
			cfg.ListenAddr = addr
		}

		app, err := telemart.New(cfg)
		if err != nil {
			fmt.Printf("Error initializing telemart: %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := app.Run(ctx); err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Ops listener address (overrides config)")
}
