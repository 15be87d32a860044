package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the build version, overridable via -ldflags.
var Version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the dashgrid version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("dashgrid", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
