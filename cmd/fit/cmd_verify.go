package main

import (
	"fmt"
	"strings"

	"github.com/fitvcs/fit/pkg/object"
	"github.com/fitvcs/fit/pkg/repo"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <commit>",
		Short: "Verify the SSH signature on a commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			h, err := r.ResolveRef(args[0])
			if err != nil {
				h, err = r.Store.ResolvePrefix(args[0])
				if err != nil {
					return fmt.Errorf("verify: unknown revision %q: %w", args[0], err)
				}
			}

			commit, err := r.Store.ReadCommit(h)
			if err != nil {
				return err
			}
			if strings.TrimSpace(commit.Signature) == "" {
				return fmt.Errorf("verify: commit %s is not signed", shortHash(h))
			}

			pub, sig, err := parseCommitSignature(commit.Signature)
			if err != nil {
				return fmt.Errorf("verify: commit %s: %w", shortHash(h), err)
			}

			payload := object.CommitSigningPayload(commit)
			if err := pub.Verify(payload, sig); err != nil {
				return fmt.Errorf("verify: commit %s: bad signature: %w", shortHash(h), err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "good signature on %s by %s (%s)\n",
				shortHash(h), ssh.FingerprintSHA256(pub), pub.Type())
			return nil
		},
	}
}
