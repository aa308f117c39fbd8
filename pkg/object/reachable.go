package object

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// VerifyReport summarizes an integrity walk over the object graph.
type VerifyReport struct {
	Checked int            // objects read and digest-verified
	Missing map[Hash]Hash  // absent object -> the object that referenced it ("" for a root)
	Corrupt map[Hash]error // unreadable or digest-mismatched object -> failure
}

// OK reports whether the walk found no problems.
func (r *VerifyReport) OK() bool {
	return len(r.Missing) == 0 && len(r.Corrupt) == 0
}

type verifyItem struct {
	hash     Hash
	referrer Hash
}

// VerifyReachable walks every object reachable from roots and re-reads each
// one, so the store's digest check runs over the whole graph. The walk uses
// an explicit work stack; depth is bounded by memory, not the call stack.
// Corrupt objects are reported and not descended into.
func (s *Store) VerifyReachable(roots []Hash) *VerifyReport {
	report := &VerifyReport{
		Missing: make(map[Hash]Hash),
		Corrupt: make(map[Hash]error),
	}

	stack := make([]verifyItem, 0, len(roots))
	for _, h := range uniqueNormalizedHashes(roots) {
		stack = append(stack, verifyItem{hash: h})
	}

	seen := make(map[Hash]struct{}, len(stack))
	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		h := item.hash
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}

		objType, data, err := s.Read(h)
		if err != nil {
			if errors.Is(err, ErrObjectNotFound) {
				report.Missing[h] = item.referrer
			} else {
				report.Corrupt[h] = err
			}
			continue
		}

		refs, err := referencedHashes(objType, data)
		if err != nil {
			report.Corrupt[h] = fmt.Errorf("parse %s %s: %w", objType, h, err)
			continue
		}
		report.Checked++

		for _, ref := range refs {
			stack = append(stack, verifyItem{hash: ref, referrer: h})
		}
	}

	return report
}

// referencedHashes extracts the outgoing references of a decoded object.
func referencedHashes(objType ObjectType, data []byte) ([]Hash, error) {
	switch objType {
	case TypeBlob:
		return nil, nil
	case TypeTag:
		tag, err := UnmarshalTag(data)
		if err != nil {
			return nil, err
		}
		return []Hash{tag.TargetHash}, nil
	case TypeCommit:
		commit, err := UnmarshalCommit(data)
		if err != nil {
			return nil, err
		}
		refs := make([]Hash, 0, 1+len(commit.Parents))
		refs = append(refs, commit.TreeHash)
		refs = append(refs, commit.Parents...)
		return refs, nil
	case TypeTree:
		tree, err := UnmarshalTree(data)
		if err != nil {
			return nil, err
		}
		refs := make([]Hash, 0, len(tree.Entries))
		for _, e := range tree.Entries {
			refs = append(refs, e.Target)
		}
		return refs, nil
	default:
		return nil, fmt.Errorf("unsupported object type %q", objType)
	}
}

func uniqueNormalizedHashes(in []Hash) []Hash {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[Hash]struct{}, len(in))
	out := make([]Hash, 0, len(in))
	for _, h := range in {
		h = Hash(strings.TrimSpace(string(h)))
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
