package main

import (
	"fmt"

	"github.com/fitvcs/fit/pkg/repo"
	"github.com/spf13/cobra"
)

func newCheckoutCmd() *cobra.Command {
	var createBranch bool
	var force bool

	cmd := &cobra.Command{
		Use:   "checkout <branch|tag|commit>",
		Short: "Switch branches or detach HEAD at a commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]

			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			if createBranch {
				if err := r.CheckoutNew(target); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "switched to new branch '%s'\n", target)
				return nil
			}

			if err := r.Checkout(target, force); err != nil {
				return err
			}

			if branch, err := r.CurrentBranch(); err == nil && branch != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "switched to branch '%s'\n", branch)
			} else {
				h, _ := r.ResolveRef("HEAD")
				fmt.Fprintf(cmd.OutOrStdout(), "detached HEAD at %s\n", shortHash(h))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&createBranch, "branch", "b", false, "create and switch to a new branch")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "discard uncommitted changes")

	return cmd
}
