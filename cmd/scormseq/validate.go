package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/scormlab/sequencer/pkg/manifest"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <manifest.xml>",
	Short: "Check a SCORM manifest for consistency",
	Long:  `Parses a SCORM 2004 manifest and reports structural problems such as missing organizations, duplicate activity identifiers or unresolvable resource references.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(args[0]); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Manifest is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	tree, err := manifest.Parse(data, courseIDFromPath(path))
	if err != nil {
		return err
	}

	fmt.Printf("Course %q: %d activities, %d deliverable leaves\n",
		tree.Title, tree.Count(), len(tree.Leaves()))
	return nil
}

// courseIDFromPath derives a course identifier from the manifest filename.
func courseIDFromPath(path string) string {
	base := filepath.Base(filepath.Dir(path))
	if base == "." || base == string(filepath.Separator) {
		base = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return base
}
