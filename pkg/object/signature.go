package object

// CommitSigningPayload returns the canonical bytes signed for a commit.
// The payload excludes the signature field itself, so signing and verifying
// marshal the same bytes.
func CommitSigningPayload(c *CommitObj) []byte {
	if c == nil {
		return nil
	}
	copyCommit := *c
	copyCommit.Signature = ""
	return MarshalCommit(&copyCommit)
}
