package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"osintgraph/internal/extract"
)

var extractSummary bool

var extractCmd = &cobra.Command{
	Use:   "extract <text-file|->",
	Short: "Extract named entities from free text",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().BoolVar(&extractSummary, "summary", false, "also print an analyst summary of the text")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	text, err := readText(args[0])
	if err != nil {
		return err
	}

	result, err := a.session.ExtractEntities(cmd.Context(), text, false)
	if err != nil {
		return err
	}
	if result.Status != extract.StatusOK {
		fmt.Println(result.Message)
	} else if err := printJSON(os.Stdout, result.Entities); err != nil {
		return err
	}

	if extractSummary {
		summary, _, err := a.session.Insights(cmd.Context(), text)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(summary)
	}
	return nil
}
