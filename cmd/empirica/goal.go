package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nubaeon/empirica/pkg/goal"
)

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Discover and resume goals shared across agents",
}

var (
	goalDiscoverAIID  string
	goalDiscoverScope string
)

var goalDiscoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List goal ids visible to other agents via the goal note ref",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := a.goals.Discover(cmd.Context(), goalDiscoverAIID, goal.Scope(goalDiscoverScope))
		if err != nil {
			return fmt.Errorf("failed to discover goals: %w", err)
		}
		outputResult(ids)
		return nil
	},
}

var goalResumeAIID string

var goalResumeCmd = &cobra.Command{
	Use:   "resume <goal-id>",
	Short: "Resume a goal as this agent, appending a lineage entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if goalResumeAIID == "" {
			return fmt.Errorf("resume requires --ai-id")
		}
		g, err := a.goals.Resume(cmd.Context(), args[0], goalResumeAIID)
		if err != nil {
			return fmt.Errorf("failed to resume goal %s: %w", args[0], err)
		}
		outputResult(g)
		return nil
	},
}

var goalShowCmd = &cobra.Command{
	Use:   "show <goal-id>",
	Short: "Print a goal's current state without changing its lineage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := a.goals.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load goal %s: %w", args[0], err)
		}
		outputResult(g)
		return nil
	},
}

func init() {
	goalDiscoverCmd.Flags().StringVar(&goalDiscoverAIID, "ai-id", "", "Restrict to goals created by this agent (empty means any)")
	goalDiscoverCmd.Flags().StringVar(&goalDiscoverScope, "scope", string(goal.ScopeProjectWide), "Restrict to this scope: single-task, session, or project-wide")
	goalResumeCmd.Flags().StringVar(&goalResumeAIID, "ai-id", "", "Resuming agent identifier (required)")

	goalCmd.AddCommand(goalDiscoverCmd, goalResumeCmd, goalShowCmd)
	rootCmd.AddCommand(goalCmd)
}
