package diff

import (
	"mysqldiffplan/internal/core"
	"mysqldiffplan/internal/workaround"
)

// TableDiffer compares one pair of same-named tables, running the five
// sub-passes in order against a fresh DifferContext: fields, indexes,
// primary key, foreign keys, options.
type TableDiffer struct {
	Options    Options
	Workaround *workaround.Facility
}

// Diff compares oldT against newT and returns the ChangeRecords needed to
// bring oldT's structure to newT's.
func (d *TableDiffer) Diff(oldT, newT *core.Table) []core.ChangeRecord {
	if oldT.Def == newT.Def {
		return nil
	}

	ctx := NewDifferContext(d.Workaround)
	var records []core.ChangeRecord

	diffFields(oldT, newT, ctx, d.Options, &records)
	diffIndexes(oldT, newT, ctx, d.Options, &records)
	diffPrimaryKey(oldT, newT, ctx, &records)
	diffForeignKeys(oldT, newT, ctx, &records)
	diffOptions(oldT, newT, ctx, d.Options, &records)

	return records
}
