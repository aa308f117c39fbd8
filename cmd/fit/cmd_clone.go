package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCloneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clone <url> [directory]",
		Short: "Clone a repository (not implemented)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("clone is not implemented: fit has no network transport")
		},
	}
}
