package cmd

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mihaisavezi/llmpanel/internal/features"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent translations",
	RunE:  runHistoryList,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget all saved translations",
	RunE:  runHistoryClear,
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "List recorded feedback",
	RunE:  runFeedbackList,
}

var feedbackAddCmd = &cobra.Command{
	Use:   "add <feature> <rating 1-5> [comment]",
	Short: "Rate a feature result",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runFeedbackAdd,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of entries to show")
	historyCmd.AddCommand(historyClearCmd)
	feedbackCmd.AddCommand(feedbackAddCmd)
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	entries, err := a.core.History.Recent(historyLimit)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		color.Yellow("No translations yet.")
		return nil
	}

	w := cmd.OutOrStdout()

	for _, e := range entries {
		fmt.Fprintf(w, "%s %s\n", color.New(color.Faint).Sprint(e.Timestamp.Format("2006-01-02 15:04")), e.Input)
		fmt.Fprintf(w, "  → %s\n", e.Output)
	}

	return nil
}

func runHistoryClear(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if err := a.core.History.Clear(); err != nil {
		return err
	}

	color.Green("Translation history cleared.")

	return nil
}

func runFeedbackAdd(_ *cobra.Command, args []string) error {
	rating, err := strconv.Atoi(args[1])
	if err != nil {
		return features.ErrInvalidRating
	}

	entry := features.FeedbackEntry{Feature: args[0], Rating: rating}
	if len(args) == 3 {
		entry.Comment = args[2]
	}

	a, err := newApp()
	if err != nil {
		return err
	}

	if err := a.core.Feedback.Record(entry); err != nil {
		return err
	}

	color.Green("Thanks, feedback recorded.")

	return nil
}

func runFeedbackList(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	entries, err := a.core.Feedback.List()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()

	for _, e := range entries {
		fmt.Fprintf(w, "%s %-9s %d/5 %s\n", e.Timestamp.Format("2006-01-02 15:04"), e.Feature, e.Rating, e.Comment)
	}

	return nil
}
