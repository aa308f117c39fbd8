package main

import (
	"fmt"
	"strings"

	"github.com/fitvcs/fit/pkg/repo"
	"github.com/spf13/cobra"
)

func newStashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stash [push|list|pop]",
		Short: "Stash away and restore uncommitted changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Bare "fit stash" is a push.
			return runStashPush(cmd, "")
		},
	}

	cmd.AddCommand(newStashPushCmd())
	cmd.AddCommand(newStashListCmd())
	cmd.AddCommand(newStashPopCmd())

	return cmd
}

func newStashPushCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Snapshot uncommitted changes and restore the clean HEAD state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStashPush(cmd, message)
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "stash description")
	return cmd
}

func runStashPush(cmd *cobra.Command, message string) error {
	r, err := repo.Open(".")
	if err != nil {
		return err
	}

	entry, err := r.StashPush(message)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "saved working directory and index state on %s (%s)\n",
		stashLocation(entry), shortHash(entry.Parent))
	return nil
}

func newStashListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stash entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			entries, err := r.StashList()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, e := range entries {
				fmt.Fprintf(out, "stash@{%d}: %s\n", i, stashDescription(e))
			}
			return nil
		},
	}
}

func newStashPopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pop",
		Short: "Apply the newest stash entry and drop it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			entry, err := r.StashPop()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "popped %s\n", stashDescription(*entry))
			return nil
		},
	}
}

func stashLocation(e *repo.StashEntry) string {
	if strings.TrimSpace(e.Branch) != "" {
		return e.Branch
	}
	return "detached HEAD"
}

func stashDescription(e repo.StashEntry) string {
	desc := fmt.Sprintf("on %s: %s", stashLocation(&e), shortHash(e.Parent))
	if strings.TrimSpace(e.Message) != "" {
		desc += " " + e.Message
	}
	return desc
}
