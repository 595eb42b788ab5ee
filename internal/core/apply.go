package core

import (
	"fmt"

	"seqedit/internal/infra/persistence/memory"
	"seqedit/internal/nucleotide"
	"seqedit/pkg/domain"
)

// batch is the state owned by one in-flight run: the working copy, the
// working clipboard, the modification log and the cloned action list.
type batch struct {
	working *memory.Store
	clip    *Clipboard
	mods    *ModificationLog
	actions []Action
}

func newBatch(state Snapshot, clip *Clipboard, actions []Action) *batch {
	cloned := make([]Action, len(actions))
	for i, a := range actions {
		cloned[i] = a.Clone()
	}
	return &batch{
		working: memory.NewStoreFromSnapshot(state),
		clip:    clip.clone(),
		mods:    NewModificationLog(),
		actions: cloned,
	}
}

// execute runs action i against the working copy, then propagates its shift
// to the actions after it and adjusts the features of its sequence. A
// returned error is an ActionExecutionError and has already been recorded on
// the action.
func (b *batch) execute(i int) error {
	a := &b.actions[i]
	a.Status = StatusExecuting
	res, err := b.mutate(i)
	if err != nil {
		execErr := domain.ActionExecutionError{ActionID: a.ID, Kind: a.Kind, Err: err}
		a.Status = StatusFailed
		a.FailureReason = execErr.Error()
		return execErr
	}
	a.Status = StatusCompleted
	a.FailureReason = ""
	a.Result = &res
	return nil
}

func (b *batch) mutate(i int) (ActionResult, error) {
	a := &b.actions[i]
	res := ActionResult{Kind: a.Kind}
	region := a.Region
	if err := region.Validate(); err != nil {
		return res, err
	}
	if _, ok := b.working.SequenceLength(region.SequenceID); !ok {
		return res, domain.ErrNotFound{Entity: domain.EntitySequence, ID: region.SequenceID}
	}

	var (
		mod     SequenceModification
		pasted  []Feature
		removed int
	)
	switch a.Kind {
	case ActionCopy:
		entry, err := b.capture(*a)
		if err != nil {
			return res, err
		}
		b.clip.Set(entry)
		return res, nil
	case ActionCut:
		entry, err := b.capture(*a)
		if err != nil {
			return res, err
		}
		if _, err := b.working.DeleteBases(region.SequenceID, region.Start, region.End); err != nil {
			return res, err
		}
		b.clip.Set(entry)
		removed = b.dropOverlapping(region)
		mod = SequenceModification{Kind: ModDelete, Start: region.Start, End: region.End, OriginalLength: region.Len()}
	case ActionDelete:
		if _, err := b.working.DeleteBases(region.SequenceID, region.Start, region.End); err != nil {
			return res, err
		}
		mod = SequenceModification{Kind: ModDelete, Start: region.Start, End: region.End, OriginalLength: region.Len()}
	case ActionInsert:
		text := nucleotide.Orient(a.Payload, region.Strand)
		if err := b.working.InsertBases(region.SequenceID, region.Start, text); err != nil {
			return res, err
		}
		mod = SequenceModification{Kind: ModInsert, Start: region.Start, End: region.Start, InsertedLength: len(text)}
	case ActionReplace, ActionEdit:
		text := nucleotide.Orient(a.Payload, region.Strand)
		if _, err := b.working.ReplaceBases(region.SequenceID, region.Start, region.End, text); err != nil {
			return res, err
		}
		mod = SequenceModification{Kind: ModReplace, Start: region.Start, End: region.End, InsertedLength: len(text), OriginalLength: region.Len()}
	case ActionPaste:
		entry, ok := b.clip.Get()
		if !ok {
			return res, domain.ErrClipboardEmpty
		}
		text := nucleotide.Orient(entry.Sequence, region.Strand)
		if a.PasteMode() == ModInsert {
			if err := b.working.InsertBases(region.SequenceID, region.Start, text); err != nil {
				return res, err
			}
			mod = SequenceModification{Kind: ModInsert, Start: region.Start, End: region.Start, InsertedLength: len(text)}
		} else {
			if _, err := b.working.ReplaceBases(region.SequenceID, region.Start, region.End, text); err != nil {
				return res, err
			}
			mod = SequenceModification{Kind: ModReplace, Start: region.Start, End: region.End, InsertedLength: len(text), OriginalLength: region.Len()}
		}
		pasted = remapClipboardFeatures(entry, region.Start, a.ID)
	default:
		return res, fmt.Errorf("unsupported action kind %q", a.Kind)
	}

	mod.SequenceID = region.SequenceID
	mod.SourceActionID = a.ID
	mod = b.mods.Append(mod)
	res.RemovedLength = mod.OriginalLength
	res.InsertedLength = mod.InsertedLength
	res.Delta = mod.Delta()

	if shift, ok := ShiftFor(*a, mod); ok {
		prop := propagateShift(shift, b.actions[i+1:])
		res.ShiftedActions = prop.shifted
		res.InvalidatedIDs = prop.invalidated
	}

	features, stats := AdjustFeatures(b.working.GetFeatures(region.SequenceID), []SequenceModification{mod})
	res.FeaturesAdjusted = stats.Adjusted
	res.FeaturesRemoved = stats.Removed + removed
	if len(pasted) > 0 {
		features = mergePasted(features, pasted)
		res.FeaturesAdded = len(pasted)
	}
	b.working.SetFeatures(region.SequenceID, features)
	return res, nil
}

// capture builds the clipboard entry for a copy or cut: the region text in
// the requested orientation plus copies of every feature overlapping it.
func (b *batch) capture(a Action) (ClipboardEntry, error) {
	text, err := b.working.GetSequence(a.Region.SequenceID, a.Region.Start, a.Region.End, a.Region.Strand)
	if err != nil {
		return ClipboardEntry{}, err
	}
	var snapshot []Feature
	for _, f := range b.working.GetFeatures(a.Region.SequenceID) {
		if f.Intersects(a.Region.Start, a.Region.End) {
			snapshot = append(snapshot, f)
		}
	}
	return ClipboardEntry{
		Kind:           a.Kind,
		Sequence:       text,
		SourceRegion:   a.Region,
		Features:       snapshot,
		SourceActionID: a.ID,
	}, nil
}

// dropOverlapping removes every feature touching region from the working
// annotations and reports how many were removed.
func (b *batch) dropOverlapping(region Region) int {
	features := b.working.GetFeatures(region.SequenceID)
	kept := features[:0]
	for _, f := range features {
		if !f.Intersects(region.Start, region.End) {
			kept = append(kept, f)
		}
	}
	removed := len(features) - len(kept)
	b.working.SetFeatures(region.SequenceID, kept)
	return removed
}

// remapClipboardFeatures places the clipboard's feature snapshot relative to
// the paste target. Features that would land before position 1 are skipped.
func remapClipboardFeatures(entry ClipboardEntry, targetStart int, actionID int64) []Feature {
	out := make([]Feature, 0, len(entry.Features))
	for _, f := range entry.Features {
		offset := targetStart - entry.SourceRegion.Start
		cp := f.Clone()
		cp.Start = f.Start + offset
		cp.End = f.End + offset
		if cp.Start < 1 || cp.End < cp.Start {
			continue
		}
		cp.Notes = append(cp.Notes, fmt.Sprintf("pasted from %s by action %d", entry.SourceRegion, actionID))
		out = append(out, cp)
	}
	return out
}

// mergePasted appends pasted features, renaming ids that collide with the
// features already on the sequence.
func mergePasted(existing, pasted []Feature) []Feature {
	taken := make(map[string]struct{}, len(existing)+len(pasted))
	for _, f := range existing {
		taken[f.ID] = struct{}{}
	}
	for _, f := range pasted {
		id := f.ID
		if _, clash := taken[id]; clash {
			id = f.ID + "_copy"
			for n := 2; ; n++ {
				if _, clash := taken[id]; !clash {
					break
				}
				id = fmt.Sprintf("%s_copy%d", f.ID, n)
			}
		}
		f.ID = id
		taken[id] = struct{}{}
		existing = append(existing, f)
	}
	return existing
}
