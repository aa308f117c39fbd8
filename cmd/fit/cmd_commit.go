package main

import (
	"fmt"
	"strings"

	"github.com/fitvcs/fit/pkg/repo"
	"github.com/spf13/cobra"
)

func newCommitCmd() *cobra.Command {
	var message string
	var author string
	var sign bool
	var signingKey string

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Record changes to the repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" {
				return fmt.Errorf("commit message is required (-m)")
			}

			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			if author == "" {
				author = r.DefaultAuthor()
			}

			cfg, err := r.ReadConfig()
			if err != nil {
				return err
			}
			if cfg.Commit.Sign {
				sign = true
			}
			if signingKey == "" {
				signingKey = cfg.Commit.SigningKey
			}

			var signer repo.CommitSigner
			if sign {
				s, _, err := newSSHCommitSigner(signingKey)
				if err != nil {
					return err
				}
				signer = s
			}

			h, err := r.CommitWithSigner(message, author, signer)
			if err != nil {
				return err
			}

			// Branch name for output; detached HEAD shows as "HEAD".
			branch := "HEAD"
			head, err := r.Head()
			if err == nil && strings.HasPrefix(head, "refs/heads/") {
				branch = strings.TrimPrefix(head, "refs/heads/")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "[%s %s] %s\n", branch, shortHash(h), message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().StringVar(&author, "author", "", "override author (default: config user, then $USER)")
	cmd.Flags().BoolVarP(&sign, "sign", "s", false, "sign the commit with an SSH key")
	cmd.Flags().StringVar(&signingKey, "signing-key", "", "path to the SSH private key used for signing")

	return cmd
}
