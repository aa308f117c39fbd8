package main

import (
	"fmt"

	"github.com/fitvcs/fit/pkg/repo"
	"github.com/spf13/cobra"
)

func newCatFileCmd() *cobra.Command {
	var showType bool
	var showSize bool

	cmd := &cobra.Command{
		Use:   "cat-file [-t|-s] <hash-or-prefix>",
		Short: "Show object type, size, or content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if showType && showSize {
				return fmt.Errorf("cat-file: -t and -s are mutually exclusive")
			}

			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			h, err := r.Store.ResolvePrefix(args[0])
			if err != nil {
				return err
			}
			objType, data, err := r.Store.Read(h)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case showType:
				fmt.Fprintln(out, objType)
			case showSize:
				fmt.Fprintln(out, len(data))
			default:
				// Canonical encodings are printable for every type; blobs
				// are the raw file bytes.
				out.Write(data)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&showType, "type", "t", false, "print the object type")
	cmd.Flags().BoolVarP(&showSize, "size", "s", false, "print the content size in bytes")

	return cmd
}
