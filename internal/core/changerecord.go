package core

// ChangeRecord is a single emitted DDL fragment tagged with the priority
// bucket PlanAssembler sorts on. EmissionIndex is filled in by whichever
// differ pass appends the record and is only ever used to break ties
// within a priority bucket (stable sort key is (-Priority, EmissionIndex)).
type ChangeRecord struct {
	SQL           string
	Priority      int
	EmissionIndex int
}

// Priority buckets, highest first in final plan output. Priority 7 is
// intentionally unused — reserved by the bucket table this scheme is
// ported from.
const (
	PriorityViewPlaceholder    = 9
	PriorityDropOrOptionsOrPK  = 8
	PriorityFKDropOrAddColumn  = 6
	PriorityCreateOrChange     = 5
	PriorityDropPrimaryKey     = 4
	PriorityAddPKOrIndex       = 3
	PriorityDropColumn         = 2
	PriorityAddFKOrInlinePK    = 1
	PriorityReinstallOrCleanup = 0
)
