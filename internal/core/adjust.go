package core

import (
	"fmt"
	"strings"
)

// AdjustFeature folds mods, in the order they were applied, over a copy of
// feature. mods must all target the feature's sequence. It returns false
// when the feature is invalidated; the source feature is never modified.
func AdjustFeature(feature Feature, mods []SequenceModification) (Feature, bool) {
	start, end := feature.Start, feature.End
	var sources []string
	for _, mod := range mods {
		var outcome intervalOutcome
		start, end, outcome = moveInterval(start, end, shiftOf(mod))
		switch outcome {
		case intervalRemoved, intervalPartiallyRemoved:
			return Feature{}, false
		case intervalShifted, intervalResized:
			sources = append(sources, fmt.Sprintf("%s by action %d", mod.Kind, mod.SourceActionID))
		}
	}
	if start <= 0 || end <= 0 || start > end {
		return Feature{}, false
	}
	out := feature.Clone()
	if start == feature.Start && end == feature.End {
		return out, true
	}
	out.Start, out.End = start, end
	out.Notes = append(out.Notes, fmt.Sprintf("coordinates adjusted from %d-%d to %d-%d (%s)",
		feature.Start, feature.End, start, end, strings.Join(sources, ", ")))
	return out, true
}

// FeatureAdjustment counts what AdjustFeatures did.
type FeatureAdjustment struct {
	Adjusted int
	Removed  int
}

// AdjustFeatures runs AdjustFeature over every feature and returns the
// survivors in their original order.
func AdjustFeatures(features []Feature, mods []SequenceModification) ([]Feature, FeatureAdjustment) {
	var stats FeatureAdjustment
	out := make([]Feature, 0, len(features))
	for _, f := range features {
		adjusted, ok := AdjustFeature(f, mods)
		if !ok {
			stats.Removed++
			continue
		}
		if adjusted.Start != f.Start || adjusted.End != f.End {
			stats.Adjusted++
		}
		out = append(out, adjusted)
	}
	return out, stats
}

// ModificationLog is the append-only record of mutations applied during a
// batch, kept per sequence in application order.
type ModificationLog struct {
	seq   int
	bySeq map[string][]SequenceModification
	all   []SequenceModification
}

// NewModificationLog returns an empty log.
func NewModificationLog() *ModificationLog {
	return &ModificationLog{bySeq: make(map[string][]SequenceModification)}
}

// Append records mod and returns it with its sequence number assigned.
func (l *ModificationLog) Append(mod SequenceModification) SequenceModification {
	l.seq++
	mod.Seq = l.seq
	l.bySeq[mod.SequenceID] = append(l.bySeq[mod.SequenceID], mod)
	l.all = append(l.all, mod)
	return mod
}

// For returns a copy of the modifications recorded for a sequence.
func (l *ModificationLog) For(sequenceID string) []SequenceModification {
	return append([]SequenceModification(nil), l.bySeq[sequenceID]...)
}

// All returns a copy of every modification in application order.
func (l *ModificationLog) All() []SequenceModification {
	return append([]SequenceModification(nil), l.all...)
}

// Len returns the number of recorded modifications.
func (l *ModificationLog) Len() int { return len(l.all) }
