package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "telemart",
	Short: "Telemart is a conversational storefront",
	Long:  `Telemart runs a chat-driven shop: catalog, cart, wallet and order lifecycle behind a dialogue engine.`,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "telemart.yaml", "Path to the configuration file")
}
