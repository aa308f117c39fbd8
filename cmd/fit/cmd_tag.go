package main

import (
	"fmt"
	"strings"

	"github.com/fitvcs/fit/pkg/object"
	"github.com/fitvcs/fit/pkg/repo"
	"github.com/spf13/cobra"
)

func newTagCmd() *cobra.Command {
	var annotate bool
	var message string
	var deleteTag string
	var force bool

	cmd := &cobra.Command{
		Use:   "tag [-a -m <msg>] [name] [target]",
		Short: "List, create, or delete tags",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			if strings.TrimSpace(deleteTag) != "" {
				if len(args) > 0 {
					return fmt.Errorf("tag --delete does not accept positional args")
				}
				return r.DeleteTag(deleteTag)
			}

			if len(args) == 0 {
				tags, err := r.ListTags()
				if err != nil {
					return err
				}
				for _, name := range tags {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			name := args[0]
			var target object.Hash
			if len(args) == 2 {
				target, err = resolveTagTarget(r, args[1])
				if err != nil {
					return err
				}
			} else {
				target, err = r.ResolveRef("HEAD")
				if err != nil {
					return fmt.Errorf("resolve HEAD: %w", err)
				}
			}

			if annotate {
				if strings.TrimSpace(message) == "" {
					return fmt.Errorf("annotated tag requires a message (-m)")
				}
				_, err := r.CreateAnnotatedTag(name, target, r.DefaultAuthor(), message, force)
				return err
			}
			return r.CreateTag(name, target, force)
		},
	}

	cmd.Flags().BoolVarP(&annotate, "annotate", "a", false, "create an annotated tag object")
	cmd.Flags().StringVarP(&message, "message", "m", "", "annotated tag message")
	cmd.Flags().StringVarP(&deleteTag, "delete", "d", "", "delete the named tag")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing tag")

	return cmd
}

func resolveTagTarget(r *repo.Repo, raw string) (object.Hash, error) {
	raw = strings.TrimSpace(raw)
	if resolved, err := r.ResolveRef(raw); err == nil {
		return resolved, nil
	}
	resolved, err := r.Store.ResolvePrefix(raw)
	if err != nil {
		return "", fmt.Errorf("tag: unknown target %q: %w", raw, err)
	}
	return resolved, nil
}
