package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"osintgraph/internal/timeline"
)

var (
	timelineMaxGap time.Duration
	timelineJSON   bool
)

var timelineCmd = &cobra.Command{
	Use:   "timeline <events.json|->",
	Short: "Order events and print adjacent same-actor pairs",
	Args:  cobra.ExactArgs(1),
	RunE:  runTimeline,
}

func init() {
	timelineCmd.Flags().DurationVar(&timelineMaxGap, "max-gap", 0, "drop pairs further apart than this (default from config, 0 keeps all)")
	timelineCmd.Flags().BoolVar(&timelineJSON, "json", false, "print pairs as JSON")
	rootCmd.AddCommand(timelineCmd)
}

func runTimeline(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	events, err := readEvents(args[0])
	if err != nil {
		return err
	}

	pairs := a.session.CorrelateTimeline(events)
	if cmd.Flags().Changed("max-gap") {
		pairs = timeline.Correlator{MaxGap: timelineMaxGap}.Correlate(events)
	}

	if timelineJSON {
		return printJSON(os.Stdout, pairs)
	}

	if len(pairs) == 0 {
		fmt.Println("No correlated events.")
		return nil
	}
	for _, p := range pairs {
		fmt.Printf("%s: %s -> %s (%s)\n", p.Earlier.Actor, p.Earlier.Timestamp, p.Later.Timestamp, p.Gap)
	}
	return nil
}
