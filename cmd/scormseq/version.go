package main

import (
	"fmt"
	"strings"

	sequencer "github.com/scormlab/sequencer"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of scormseq",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("scormseq version %s\n", strings.TrimSpace(sequencer.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
