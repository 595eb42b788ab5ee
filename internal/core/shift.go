package core

import "fmt"

// Shift is the signed delta an executed mutation imposes on coordinates
// downstream of its target. Start and End are the mutated range in the
// coordinates the mutation was applied to; for inserts both equal the
// insertion point.
type Shift struct {
	SequenceID     string
	Kind           ModificationKind
	Start          int
	End            int
	InsertedLength int
	Delta          int
	SourceActionID int64
}

// ShiftFor returns the shift produced by an executed action and its recorded
// modification. Copy produces no shift.
func ShiftFor(action Action, mod SequenceModification) (Shift, bool) {
	shift := Shift{
		SequenceID:     mod.SequenceID,
		Kind:           mod.Kind,
		Start:          mod.Start,
		End:            mod.End,
		InsertedLength: mod.InsertedLength,
		SourceActionID: action.ID,
	}
	switch action.Kind {
	case ActionCopy:
		return Shift{}, false
	case ActionDelete, ActionCut:
		shift.Delta = -(mod.End - mod.Start + 1)
	case ActionInsert:
		shift.Delta = mod.InsertedLength
	case ActionReplace, ActionEdit:
		shift.Delta = mod.InsertedLength - (mod.End - mod.Start + 1)
	case ActionPaste:
		if mod.Kind == ModInsert {
			shift.Delta = mod.InsertedLength
		} else {
			shift.Delta = mod.InsertedLength - (mod.End - mod.Start + 1)
		}
	default:
		return Shift{}, false
	}
	return shift, true
}

// shiftOf rebuilds the shift of a recorded modification.
func shiftOf(mod SequenceModification) Shift {
	return Shift{
		SequenceID:     mod.SequenceID,
		Kind:           mod.Kind,
		Start:          mod.Start,
		End:            mod.End,
		InsertedLength: mod.InsertedLength,
		Delta:          mod.Delta(),
		SourceActionID: mod.SourceActionID,
	}
}

// intervalOutcome classifies what a shift did to an interval.
type intervalOutcome int

const (
	intervalUnchanged intervalOutcome = iota
	intervalShifted
	intervalResized
	intervalRemoved
	intervalPartiallyRemoved
)

// moveInterval applies one shift to the inclusive interval [start,end]. It is
// shared by pending-action propagation and feature adjustment so both follow
// the same boundary convention: an insertion point binds to intervals whose
// start is at or after it, and a removal or replacement swallows intervals
// that start inside its range.
func moveInterval(start, end int, s Shift) (int, int, intervalOutcome) {
	if s.Kind == ModInsert {
		switch {
		case start >= s.Start:
			return start + s.Delta, end + s.Delta, intervalShifted
		case end >= s.Start:
			return start, end + s.Delta, intervalResized
		default:
			return start, end, intervalUnchanged
		}
	}
	switch {
	case start >= s.Start && end <= s.End:
		return start, end, intervalRemoved
	case start > s.End:
		return start + s.Delta, end + s.Delta, intervalShifted
	case start >= s.Start:
		return start, end, intervalPartiallyRemoved
	case end > s.End:
		return start, end + s.Delta, intervalResized
	case end >= s.Start:
		if s.Kind == ModReplace {
			return start, s.Start + s.InsertedLength - 1, intervalResized
		}
		return start, s.Start - 1, intervalResized
	default:
		return start, end, intervalUnchanged
	}
}

// propagation summarises what a shift did to the remaining pending actions.
type propagation struct {
	shifted     int
	invalidated []int64
}

// propagateShift moves or fails every pending action in rest that targets
// the shifted sequence. An action fails when its region lies inside the
// range of a delete, cut, replace, edit or paste-replace, and also when its
// region starts inside that range but runs past its end. Regions that start
// before the range and reach into it are clipped instead.
func propagateShift(s Shift, rest []Action) propagation {
	var out propagation
	for i := range rest {
		a := &rest[i]
		if a.Status != StatusPending || a.Region.SequenceID != s.SequenceID {
			continue
		}
		start, end, outcome := moveInterval(a.Region.Start, a.Region.End, s)
		switch outcome {
		case intervalShifted, intervalResized:
			a.Region.Start, a.Region.End = start, end
			out.shifted++
		case intervalRemoved:
			a.Status = StatusFailed
			a.FailureReason = fmt.Sprintf("target %s by action %d", removalVerb(s.Kind), s.SourceActionID)
			out.invalidated = append(out.invalidated, a.ID)
		case intervalPartiallyRemoved:
			a.Status = StatusFailed
			a.FailureReason = fmt.Sprintf("target partially %s by action %d", removalVerb(s.Kind), s.SourceActionID)
			out.invalidated = append(out.invalidated, a.ID)
		}
	}
	return out
}

func removalVerb(kind ModificationKind) string {
	if kind == ModReplace {
		return "replaced"
	}
	return "deleted"
}
