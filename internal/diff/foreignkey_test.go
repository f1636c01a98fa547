package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mysqldiffplan/internal/core"
	"mysqldiffplan/internal/workaround"
)

func TestDiffForeignKeysDropped(t *testing.T) {
	oldT := &core.Table{
		Name:        "orders",
		ForeignKeys: []*core.ForeignKey{{Name: "fk_customer", Clause: "FOREIGN KEY (`customer_id`) REFERENCES `customers` (`id`)"}},
	}
	newT := &core.Table{Name: "orders"}

	ctx := NewDifferContext(workaround.New("seed"))
	var records []core.ChangeRecord
	diffForeignKeys(oldT, newT, ctx, &records)

	assert.True(t, containsSubstring(records, "DROP FOREIGN KEY `fk_customer`"))
	assert.Equal(t, core.PriorityFKDropOrAddColumn, records[0].Priority)
}

func TestDiffForeignKeysAdded(t *testing.T) {
	oldT := &core.Table{Name: "orders"}
	newT := &core.Table{
		Name:        "orders",
		ForeignKeys: []*core.ForeignKey{{Name: "fk_customer", Clause: "FOREIGN KEY (`customer_id`) REFERENCES `customers` (`id`)"}},
	}

	ctx := NewDifferContext(workaround.New("seed"))
	var records []core.ChangeRecord
	diffForeignKeys(oldT, newT, ctx, &records)

	assert.True(t, containsSubstring(records, "ADD CONSTRAINT `fk_customer`"))
	assert.Equal(t, core.PriorityAddFKOrInlinePK, records[0].Priority)
}

func TestDiffForeignKeysChangedSplitsPriorityWhenReferencedColumnDropped(t *testing.T) {
	oldT := &core.Table{
		Name:        "orders",
		ForeignKeys: []*core.ForeignKey{{Name: "fk_customer", Clause: "FOREIGN KEY (`customer_id`) REFERENCES `customers` (`id`)"}},
	}
	newT := &core.Table{
		Name:        "orders",
		ForeignKeys: []*core.ForeignKey{{Name: "fk_customer", Clause: "FOREIGN KEY (`customer_id`) REFERENCES `customers` (`uuid`)"}},
	}

	ctx := NewDifferContext(workaround.New("seed"))
	ctx.DroppedColumns["uuid"] = true

	var records []core.ChangeRecord
	diffForeignKeys(oldT, newT, ctx, &records)

	require := assert.New(t)
	require.Len(records, 2)
	require.Equal(core.PriorityFKDropOrAddColumn, records[0].Priority)
	require.Equal(core.PriorityCreateOrChange, records[1].Priority)
}

func TestDiffForeignKeysChangedUsesAddedForFKWeight(t *testing.T) {
	oldT := &core.Table{
		Name:        "orders",
		ForeignKeys: []*core.ForeignKey{{Name: "fk_customer", Clause: "FOREIGN KEY (`customer_id`) REFERENCES `customers` (`id`)"}},
	}
	newT := &core.Table{
		Name:        "orders",
		ForeignKeys: []*core.ForeignKey{{Name: "fk_customer", Clause: "FOREIGN KEY (`customer_id`) REFERENCES `customers` (`id`) ON DELETE CASCADE"}},
	}

	ctx := NewDifferContext(workaround.New("seed"))
	ctx.AddedForFK["fk_customer"] = core.PriorityAddFKOrInlinePK

	var records []core.ChangeRecord
	diffForeignKeys(oldT, newT, ctx, &records)

	for _, r := range records {
		assert.Equal(t, core.PriorityAddFKOrInlinePK, r.Priority)
	}
}
