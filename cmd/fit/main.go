package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fitvcs/fit/pkg/object"
	"github.com/fitvcs/fit/pkg/repo"
	"github.com/fitvcs/fit/pkg/trace"
)

func main() {
	trace.Init()

	root := &cobra.Command{
		Use:           "fit",
		Short:         "Local content-addressed version control",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newCloneCmd())
	root.AddCommand(newAddCmd())
	root.AddCommand(newRmCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newCommitCmd())
	root.AddCommand(newLogCmd())
	root.AddCommand(newCatFileCmd())
	root.AddCommand(newDiffCmd())
	root.AddCommand(newResetCmd())
	root.AddCommand(newStashCmd())
	root.AddCommand(newBranchCmd())
	root.AddCommand(newCheckoutCmd())
	root.AddCommand(newTagCmd())
	root.AddCommand(newReflogCmd())
	root.AddCommand(newVerifyCmd())
	root.AddCommand(newFsckCmd())
	root.AddCommand(newConfigCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the documented exit code, checking sentinels
// in taxonomy order. Anything unclassified exits 1.
func exitCode(err error) int {
	switch {
	case errors.Is(err, repo.ErrRepositoryNotInitialized):
		return 2
	case errors.Is(err, object.ErrObjectNotFound):
		return 3
	case errors.Is(err, object.ErrCorruptObject):
		return 4
	case errors.Is(err, repo.ErrPathNotFound):
		return 5
	case errors.Is(err, repo.ErrPathNotStaged):
		return 6
	case errors.Is(err, repo.ErrNothingToCommit):
		return 7
	case errors.Is(err, repo.ErrBranchExists):
		return 8
	case errors.Is(err, repo.ErrBranchNotFound):
		return 9
	case errors.Is(err, repo.ErrCannotDeleteCurrentBranch):
		return 10
	case errors.Is(err, repo.ErrUncommittedChanges):
		return 11
	case errors.Is(err, repo.ErrStashEmpty):
		return 12
	case errors.Is(err, repo.ErrStashConflict):
		return 13
	case errors.Is(err, repo.ErrNothingToStash):
		return 14
	case errors.Is(err, repo.ErrConcurrentUpdate), errors.Is(err, repo.ErrRefLockTimeout):
		return 15
	default:
		return 1
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("fit 0.1.0-dev")
		},
	}
}

// shortHash abbreviates a hash to 8 characters for display.
func shortHash(h object.Hash) string {
	s := string(h)
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
