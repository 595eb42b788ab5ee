package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// DetectConflicts groups pending actions by sequence and reports every pair
// whose target regions overlap. It never mutates its input.
func DetectConflicts(actions []Action) []Conflict {
	groups := make(map[string][]Action)
	for _, a := range actions {
		if a.Status != StatusPending {
			continue
		}
		groups[a.Region.SequenceID] = append(groups[a.Region.SequenceID], a)
	}
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var conflicts []Conflict
	for _, seqID := range ids {
		group := groups[seqID]
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Region.Start == group[j].Region.Start {
				return group[i].ID < group[j].ID
			}
			return group[i].Region.Start < group[j].Region.Start
		})
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				if !a.Region.Overlaps(b.Region) {
					continue
				}
				conflicts = append(conflicts, Conflict{
					ActionA:      a.ID,
					ActionB:      b.ID,
					SequenceID:   seqID,
					OverlapStart: max(a.Region.Start, b.Region.Start),
					OverlapEnd:   min(a.Region.End, b.Region.End),
					Severity:     ConflictSeverity(a.Kind, b.Kind),
					Description: fmt.Sprintf("%s action %d overlaps %s action %d on %s:%d-%d",
						a.Kind, a.ID, b.Kind, b.ID, seqID, max(a.Region.Start, b.Region.Start), min(a.Region.End, b.Region.End)),
				})
			}
		}
	}
	return conflicts
}

// ConflictSeverity grades an overlapping pair of action kinds.
func ConflictSeverity(a, b ActionKind) Severity {
	switch {
	case a.Removes() || b.Removes():
		return SeverityHigh
	case rewrites(a) && additive(b), rewrites(b) && additive(a):
		return SeverityMedium
	case additive(a) && additive(b):
		return SeverityLow
	default:
		return SeverityMedium
	}
}

func rewrites(k ActionKind) bool { return k == ActionReplace || k == ActionEdit }

func additive(k ActionKind) bool { return k == ActionInsert || k == ActionPaste }

// MaxSeverity returns the highest severity among conflicts, or "" when none.
func MaxSeverity(conflicts []Conflict) Severity {
	var out Severity
	for _, c := range conflicts {
		if c.Severity.Rank() > out.Rank() {
			out = c.Severity
		}
	}
	return out
}

// ConflictDecision is the caller's answer to a non-empty conflict report.
type ConflictDecision int

const (
	DecisionAbort ConflictDecision = iota
	DecisionProceed
)

// ConflictResolver decides whether a batch with conflicts may run.
type ConflictResolver interface {
	Resolve(ctx context.Context, conflicts []Conflict) ConflictDecision
}

// ConflictResolverFunc adapts a function to ConflictResolver.
type ConflictResolverFunc func(ctx context.Context, conflicts []Conflict) ConflictDecision

// Resolve implements ConflictResolver.
func (f ConflictResolverFunc) Resolve(ctx context.Context, conflicts []Conflict) ConflictDecision {
	return f(ctx, conflicts)
}

// ConflictPolicy is a named, configuration friendly resolver.
type ConflictPolicy string

const (
	ConflictAbort       ConflictPolicy = "abort"
	ConflictProceed     ConflictPolicy = "proceed"
	ConflictAbortOnHigh ConflictPolicy = "abort-on-high"
)

// ParseConflictPolicy maps a configuration value to a policy. Empty selects
// ConflictAbort.
func ParseConflictPolicy(value string) (ConflictPolicy, error) {
	switch p := ConflictPolicy(strings.ToLower(strings.TrimSpace(value))); p {
	case "":
		return ConflictAbort, nil
	case ConflictAbort, ConflictProceed, ConflictAbortOnHigh:
		return p, nil
	default:
		return "", fmt.Errorf("unknown conflict policy %q", value)
	}
}

// Resolve implements ConflictResolver.
func (p ConflictPolicy) Resolve(_ context.Context, conflicts []Conflict) ConflictDecision {
	switch p {
	case ConflictProceed:
		return DecisionProceed
	case ConflictAbortOnHigh:
		if MaxSeverity(conflicts) == SeverityHigh {
			return DecisionAbort
		}
		return DecisionProceed
	default:
		return DecisionAbort
	}
}
