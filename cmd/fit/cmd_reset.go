package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fitvcs/fit/pkg/repo"
	"github.com/spf13/cobra"
)

func newResetCmd() *cobra.Command {
	var soft bool
	var hard bool

	cmd := &cobra.Command{
		Use:   "reset [--soft|--hard] [<commit>] | reset <path>...",
		Short: "Move HEAD to a commit, or unstage paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			if soft && hard {
				return fmt.Errorf("reset: --soft and --hard are mutually exclusive")
			}

			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			mode := repo.ResetMixed
			if soft {
				mode = repo.ResetSoft
			}
			if hard {
				mode = repo.ResetHard
			}

			// With a mode flag the argument is always a revision.
			if soft || hard {
				rev := "HEAD"
				if len(args) > 0 {
					if len(args) > 1 {
						return fmt.Errorf("reset: expected at most one revision with --soft/--hard")
					}
					rev = args[0]
				}
				return r.ResetTo(rev, mode)
			}

			if len(args) == 0 {
				return r.ResetTo("HEAD", repo.ResetMixed)
			}

			// A single argument that does not name a worktree file or index
			// entry is treated as a revision; everything else is a path list.
			if len(args) == 1 && !isKnownPath(r, args[0]) {
				if err := r.ResetTo(args[0], repo.ResetMixed); err == nil {
					return nil
				}
			}
			return r.ResetPaths(args)
		},
	}

	cmd.Flags().BoolVar(&soft, "soft", false, "move the branch pointer only")
	cmd.Flags().BoolVar(&hard, "hard", false, "move the pointer and rewrite index and working tree")

	return cmd
}

// isKnownPath reports whether arg names an existing worktree file or a
// staged entry, which takes precedence over revision interpretation.
func isKnownPath(r *repo.Repo, arg string) bool {
	if _, err := os.Stat(filepath.Join(r.RootDir, filepath.FromSlash(arg))); err == nil {
		return true
	}
	stg, err := r.ReadStaging()
	if err != nil {
		return false
	}
	if _, ok := stg.Entries[filepath.ToSlash(arg)]; ok {
		return true
	}
	return false
}
