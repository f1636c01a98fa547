package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mysqldiffplan/internal/core"
	"mysqldiffplan/internal/workaround"
)

func TestDiffIndexesAddedAndDropped(t *testing.T) {
	oldT := &core.Table{
		Name: "widgets",
		Indices: []*core.Index{
			{Name: "idx_old", Columns: "(`old_col`)"},
		},
	}
	newT := &core.Table{
		Name: "widgets",
		Indices: []*core.Index{
			{Name: "idx_new", Columns: "(`new_col`)", Unique: true},
		},
	}

	ctx := NewDifferContext(workaround.New("seed"))
	var records []core.ChangeRecord
	diffIndexes(oldT, newT, ctx, Options{}, &records)

	assert.True(t, containsSubstring(records, "DROP INDEX `idx_old`"))
	assert.True(t, containsSubstring(records, "ADD UNIQUE INDEX `idx_new`"))
	assert.True(t, ctx.Workaround.Used())
}

func TestDiffIndexesUnchangedSkipped(t *testing.T) {
	oldT := &core.Table{
		Name:    "widgets",
		Indices: []*core.Index{{Name: "idx_same", Columns: "(`col`)"}},
	}
	newT := &core.Table{
		Name:    "widgets",
		Indices: []*core.Index{{Name: "idx_same", Columns: "(`col`)"}},
	}

	ctx := NewDifferContext(workaround.New("seed"))
	var records []core.ChangeRecord
	diffIndexes(oldT, newT, ctx, Options{}, &records)

	assert.Empty(t, records)
	assert.False(t, ctx.Workaround.Used())
}

func TestDiffIndexesSkipsDropWhenAllColumnsAlreadyDropped(t *testing.T) {
	oldT := &core.Table{
		Name:    "widgets",
		Indices: []*core.Index{{Name: "idx_gone", Columns: "(`removed_col`)"}},
	}
	newT := &core.Table{Name: "widgets"}

	ctx := NewDifferContext(workaround.New("seed"))
	ctx.DroppedColumns["removed_col"] = true

	var records []core.ChangeRecord
	diffIndexes(oldT, newT, ctx, Options{}, &records)

	assert.Empty(t, records)
}

func TestDiffIndexesFKCoupledDropAddsCoverIndexFirst(t *testing.T) {
	oldT := &core.Table{
		Name:        "orders",
		Indices:     []*core.Index{{Name: "fk_customer", Columns: "(`customer_id`)"}},
		ForeignKeys: []*core.ForeignKey{{Name: "fk_customer", Clause: "FOREIGN KEY (`customer_id`) REFERENCES `customers` (`id`)"}},
	}
	newT := &core.Table{Name: "orders"}

	ctx := NewDifferContext(workaround.New("seed"))
	var records []core.ChangeRecord
	diffIndexes(oldT, newT, ctx, Options{}, &records)

	require := assert.New(t)
	require.True(containsSubstring(records, "CREATE INDEX"))
	require.True(containsSubstring(records, "DROP INDEX `fk_customer`"))
}
