package main

import (
	"fmt"
	"sort"

	"github.com/fitvcs/fit/pkg/object"
	"github.com/fitvcs/fit/pkg/repo"
	"github.com/spf13/cobra"
)

func newFsckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fsck",
		Short: "Verify integrity of all reachable objects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			report, err := r.Fsck()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if report.OK() {
				fmt.Fprintf(out, "ok: verified %d object(s)\n", report.Checked)
				return nil
			}

			for _, h := range sortedHashKeys(report.Missing) {
				ref := report.Missing[h]
				if ref == "" {
					fmt.Fprintf(out, "missing %s (root)\n", h)
				} else {
					fmt.Fprintf(out, "missing %s (referenced by %s)\n", h, ref)
				}
			}
			for _, h := range sortedCorruptKeys(report.Corrupt) {
				fmt.Fprintf(out, "corrupt %s: %v\n", h, report.Corrupt[h])
			}

			// Corruption dominates the exit code over plain absence.
			if len(report.Corrupt) > 0 {
				return fmt.Errorf("fsck: %d corrupt, %d missing: %w",
					len(report.Corrupt), len(report.Missing), object.ErrCorruptObject)
			}
			return fmt.Errorf("fsck: %d missing: %w", len(report.Missing), object.ErrObjectNotFound)
		},
	}
}

func sortedHashKeys(m map[object.Hash]object.Hash) []object.Hash {
	keys := make([]object.Hash, 0, len(m))
	for h := range m {
		keys = append(keys, h)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedCorruptKeys(m map[object.Hash]error) []object.Hash {
	keys := make([]object.Hash, 0, len(m))
	for h := range m {
		keys = append(keys, h)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
