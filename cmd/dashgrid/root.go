package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dashgrid",
	Short: "dashgrid is the layout service for a self-hosted dashboard",
	Long: `dashgrid maintains the ordered placement of dashboard shortcuts across
user-defined sections and reconciles drag-and-drop edits with a persistence
backend (memory, file, sqlite or redis).`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "dashgrid.yaml", "Path to the configuration file")
}
