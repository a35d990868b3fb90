package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X clipscribe/cmd.Version=..."
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the clipscribe version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(DefaultOutput, "clipscribe %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
