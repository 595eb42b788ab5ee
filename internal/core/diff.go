package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const diffLineWidth = 60

// DiffSequence returns a unified diff of two versions of a sequence wrapped
// at 60 bases per line. Identical inputs give an empty string.
func DiffSequence(name, before, after string) (string, error) {
	if before == after {
		return "", nil
	}
	diff := difflib.UnifiedDiff{
		A:        wrapBases(before),
		B:        wrapBases(after),
		FromFile: name + " (authoritative)",
		ToFile:   name + " (working copy)",
		Context:  1,
	}
	return difflib.GetUnifiedDiffString(diff)
}

func wrapBases(seq string) []string {
	lines := make([]string, 0, len(seq)/diffLineWidth+1)
	for len(seq) > diffLineWidth {
		lines = append(lines, seq[:diffLineWidth]+"\n")
		seq = seq[diffLineWidth:]
	}
	if seq != "" {
		lines = append(lines, seq+"\n")
	}
	return lines
}

// Preview diffs every sequence the run changed against the authoritative
// store. Sequences without changes are omitted.
func (s *Service) Preview(result RunResult) (map[string]string, error) {
	if result.WorkingCopy == nil {
		return nil, fmt.Errorf("run %s has no working copy", result.RunID)
	}
	ids := make([]string, 0, len(result.WorkingCopy.Sequences))
	for id := range result.WorkingCopy.Sequences {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make(map[string]string)
	for _, id := range ids {
		before, _ := s.state.Sequence(id)
		diff, err := DiffSequence(id, before, result.WorkingCopy.Sequences[id])
		if err != nil {
			return nil, fmt.Errorf("diff %s: %w", id, err)
		}
		if strings.TrimSpace(diff) != "" {
			out[id] = diff
		}
	}
	return out, nil
}
