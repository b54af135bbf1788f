package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/telemart/telemart"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of telemart",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("telemart version %s\n", strings.TrimSpace(telemart.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
