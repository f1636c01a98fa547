package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mysqldiffplan/internal/core"
	"mysqldiffplan/internal/workaround"
)

func TestDiffPrimaryKeyAddedFromNone(t *testing.T) {
	oldT := &core.Table{Name: "widgets"}
	newT := &core.Table{Name: "widgets", PrimaryKey: "(`id`)"}

	ctx := NewDifferContext(workaround.New("seed"))
	var records []core.ChangeRecord
	diffPrimaryKey(oldT, newT, ctx, &records)

	assert.True(t, containsSubstring(records, "ADD PRIMARY KEY (`id`)"))
	assert.Equal(t, core.PriorityAddPKOrIndex, records[0].Priority)
}

func TestDiffPrimaryKeySkippedWhenAlreadyHandledByFieldsPass(t *testing.T) {
	oldT := &core.Table{Name: "widgets"}
	newT := &core.Table{Name: "widgets", PrimaryKey: "(`id`)"}

	ctx := NewDifferContext(workaround.New("seed"))
	ctx.AddedPK = true

	var records []core.ChangeRecord
	diffPrimaryKey(oldT, newT, ctx, &records)

	assert.Empty(t, records)
}

func TestDiffPrimaryKeyDroppedOnly(t *testing.T) {
	oldT := &core.Table{Name: "widgets", PrimaryKey: "(`id`)"}
	newT := &core.Table{Name: "widgets"}

	ctx := NewDifferContext(workaround.New("seed"))
	var records []core.ChangeRecord
	diffPrimaryKey(oldT, newT, ctx, &records)

	assert.True(t, containsSubstring(records, "DROP PRIMARY KEY"))
	assert.False(t, containsSubstring(records, "ADD PRIMARY KEY"))
	assert.Equal(t, core.PriorityDropPrimaryKey, records[0].Priority)
}

func TestDiffPrimaryKeyChangedColumns(t *testing.T) {
	oldT := &core.Table{Name: "widgets", PrimaryKey: "(`id`)"}
	newT := &core.Table{Name: "widgets", PrimaryKey: "(`id`, `tenant_id`)"}

	ctx := NewDifferContext(workaround.New("seed"))
	var records []core.ChangeRecord
	diffPrimaryKey(oldT, newT, ctx, &records)

	assert.True(t, containsSubstring(records, "DROP PRIMARY KEY"))
	assert.True(t, containsSubstring(records, "ADD PRIMARY KEY (`id`, `tenant_id`)"))
}
