package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect a session's checkpoint history",
}

var checkpointListCmd = &cobra.Command{
	Use:   "list <session-id-or-alias>",
	Short: "List every checkpoint for a session, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := a.checkpoints.List(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to list checkpoints: %w", err)
		}
		outputResult(records)
		return nil
	},
}

var checkpointLatestCmd = &cobra.Command{
	Use:   "latest <session-id-or-alias>",
	Short: "Show the most recent checkpoint for a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		aiFilter, _ := cmd.Flags().GetString("ai-id")
		rec, err := a.checkpoints.Latest(cmd.Context(), args[0], aiFilter)
		if err != nil {
			return fmt.Errorf("failed to load latest checkpoint: %w", err)
		}
		outputResult(rec)
		return nil
	},
}

var checkpointDiffCmd = &cobra.Command{
	Use:   "diff <session-id-or-alias> <index-a> <index-b>",
	Short: "Diff two checkpoints from the same session's history",
	Long: `diff takes the 0-based position of two checkpoints in a session's
append-ordered history (as printed by "checkpoint list") and reports the
componentwise score delta (b minus a) plus the symmetric difference of
their metadata keys.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := a.checkpoints.List(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to list checkpoints: %w", err)
		}

		ia, err := indexArg(args[1], len(records))
		if err != nil {
			return err
		}
		ib, err := indexArg(args[2], len(records))
		if err != nil {
			return err
		}

		deltas, diffKeys, err := a.checkpoints.Diff(records[ia], records[ib])
		if err != nil {
			return fmt.Errorf("failed to diff checkpoints: %w", err)
		}

		outputResult(map[string]any{
			"delta":       deltas,
			"diff_keys":   diffKeys,
			"checkpoint_a": records[ia],
			"checkpoint_b": records[ib],
		})
		return nil
	},
}

func indexArg(s string, n int) (int, error) {
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return 0, fmt.Errorf("invalid checkpoint index %q: %w", s, err)
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("checkpoint index %d out of range [0,%d)", i, n)
	}
	return i, nil
}

func init() {
	checkpointLatestCmd.Flags().String("ai-id", "", "Restrict to checkpoints recorded by this agent")
	checkpointCmd.AddCommand(checkpointListCmd, checkpointLatestCmd, checkpointDiffCmd)
	rootCmd.AddCommand(checkpointCmd)
}
