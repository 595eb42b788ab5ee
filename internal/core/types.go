package core

import "seqedit/pkg/domain"

type (
	Region               = domain.Region
	Strand               = domain.Strand
	Action               = domain.Action
	ActionKind           = domain.ActionKind
	ActionStatus         = domain.ActionStatus
	ActionResult         = domain.ActionResult
	Feature              = domain.Feature
	Conflict             = domain.Conflict
	Severity             = domain.Severity
	SequenceModification = domain.SequenceModification
	ModificationKind     = domain.ModificationKind
	ClipboardEntry       = domain.ClipboardEntry
	Checkpoint           = domain.Checkpoint
	Snapshot             = domain.Snapshot
)

const (
	ActionCopy    = domain.ActionCopy
	ActionCut     = domain.ActionCut
	ActionPaste   = domain.ActionPaste
	ActionDelete  = domain.ActionDelete
	ActionInsert  = domain.ActionInsert
	ActionReplace = domain.ActionReplace
	ActionEdit    = domain.ActionEdit
)

const (
	StatusPending   = domain.StatusPending
	StatusExecuting = domain.StatusExecuting
	StatusCompleted = domain.StatusCompleted
	StatusFailed    = domain.StatusFailed
)

const (
	SeverityLow    = domain.SeverityLow
	SeverityMedium = domain.SeverityMedium
	SeverityHigh   = domain.SeverityHigh
)

const (
	ModInsert  = domain.ModInsert
	ModDelete  = domain.ModDelete
	ModReplace = domain.ModReplace
)
