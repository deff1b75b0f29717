package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/scormlab/sequencer/pkg/activity"
	"github.com/scormlab/sequencer/pkg/manifest"
	"github.com/spf13/cobra"
)

var outlineCmd = &cobra.Command{
	Use:   "outline <manifest.xml>",
	Short: "Print the activity tree of a manifest",
	Long:  `Parses a SCORM 2004 manifest and prints its activity tree in document order, marking leaves with their launch href.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runOutline(args[0]); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(outlineCmd)
}

func runOutline(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	tree, err := manifest.Parse(data, courseIDFromPath(path))
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", tree.Title, tree.CourseID)
	printNode(tree.Root, 0)
	return nil
}

func printNode(node *activity.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	if node.IsLeaf() {
		fmt.Printf("%s- %s [%s] -> %s\n", indent, node.Title, node.ID, node.Href)
	} else {
		fmt.Printf("%s+ %s [%s]\n", indent, node.Title, node.ID)
	}
	for _, child := range node.Children {
		printNode(child, depth+1)
	}
}
