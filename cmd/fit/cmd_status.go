package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/fitvcs/fit/pkg/diff"
	"github.com/fitvcs/fit/pkg/repo"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show working tree status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			report, err := r.Status()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			switch {
			case report.Detached:
				fmt.Fprintf(out, "detached HEAD at %s\n", shortHash(report.HeadCommit))
			case report.HeadCommit == "":
				fmt.Fprintf(out, "on %s (no commits yet)\n", report.Branch)
			default:
				fmt.Fprintf(out, "on %s\n", report.Branch)
			}

			if len(report.Staged) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "staged:")
				printChangeSection(out, report.Staged, color.GreenString)
			}

			if len(report.Unstaged) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "unstaged:")
				printChangeSection(out, report.Unstaged, color.RedString)
			}

			if len(report.Untracked) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "untracked:")
				for _, p := range report.Untracked {
					fmt.Fprintf(out, "  %s\n", color.RedString(p))
				}
			}

			if report.Clean() && len(report.Untracked) == 0 {
				fmt.Fprintln(out, "nothing to commit, working tree clean")
			}

			return nil
		},
	}
}

// printChangeSection writes one line per change with a + ~ - marker.
func printChangeSection(out io.Writer, changes []diff.PathChange, paint func(string, ...interface{}) string) {
	for _, c := range changes {
		var marker string
		switch c.Type {
		case diff.Added:
			marker = "+"
		case diff.Modified:
			marker = "~"
		case diff.Deleted:
			marker = "-"
		}
		fmt.Fprintf(out, "  %s\n", paint("%s %s", marker, c.Path))
	}
}
