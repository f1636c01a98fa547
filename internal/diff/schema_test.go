package diff

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mysqldiffplan/internal/core"
)

func TestSchemaDifferDropsRemovedTable(t *testing.T) {
	source := &core.Schema{Tables: []*core.Table{{Name: "legacy", Def: "CREATE TABLE `legacy` (id int);"}}}
	target := &core.Schema{}

	d := New(Options{}, "source|target")
	records := d.Diff(source, target)

	require.NotEmpty(t, records)
	assert.True(t, containsSubstring(records, "DROP TABLE `legacy`"))
}

func TestSchemaDifferCreatesNewTableAndFK(t *testing.T) {
	source := &core.Schema{}
	target := &core.Schema{
		Tables: []*core.Table{
			{
				Name:        "orders",
				Def:         "CREATE TABLE `orders` (`id` int, `customer_id` int);",
				ForeignKeys: []*core.ForeignKey{{Name: "fk_customer", Clause: "FOREIGN KEY (`customer_id`) REFERENCES `customers` (`id`)"}},
			},
		},
	}

	d := New(Options{}, "source|target")
	records := d.Diff(source, target)

	assert.True(t, containsSubstring(records, "CREATE TABLE `orders`"))
	assert.True(t, containsSubstring(records, "ADD CONSTRAINT `fk_customer`"))
	for _, r := range records {
		if strings.Contains(r.SQL, "CREATE TABLE `orders`") {
			assert.Equal(t, core.PriorityFKDropOrAddColumn, r.Priority)
		}
	}
}

func TestSchemaDifferOnlyBothSkipsDrop(t *testing.T) {
	source := &core.Schema{Tables: []*core.Table{{Name: "legacy", Def: "CREATE TABLE `legacy` (id int);"}}}
	target := &core.Schema{}

	d := New(Options{OnlyBoth: true}, "source|target")
	records := d.Diff(source, target)

	assert.Empty(t, records)
}

func TestSchemaDifferSuppressesDropWhenTableBecameView(t *testing.T) {
	source := &core.Schema{Tables: []*core.Table{{Name: "orders_view", Def: "CREATE TABLE `orders_view` (id int);"}}}
	target := &core.Schema{Views: []*core.View{{Name: "orders_view", Fields: "(`id`)", Select: "SELECT id FROM orders", Def: "CREATE VIEW `orders_view` AS SELECT id FROM orders;"}}}

	d := New(Options{}, "source|target")
	records := d.Diff(source, target)

	assert.False(t, containsSubstring(records, "DROP TABLE `orders_view`;"))
	assert.True(t, containsSubstring(records, "CREATE TABLE `orders_view`"))
	assert.True(t, containsSubstring(records, "DROP TABLE IF EXISTS `orders_view`;"))
	assert.True(t, containsSubstring(records, "CREATE VIEW `orders_view`"))

	sorted := append([]core.ChangeRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return sorted[i].EmissionIndex < sorted[j].EmissionIndex
	})
	var order []string
	for _, r := range sorted {
		order = append(order, r.SQL)
	}
	placeholderIdx, dropIdx, createIdx := -1, -1, -1
	for i, sql := range order {
		switch {
		case strings.Contains(sql, "CREATE TABLE `orders_view`"):
			placeholderIdx = i
		case strings.Contains(sql, "DROP TABLE IF EXISTS `orders_view`"):
			dropIdx = i
		case strings.Contains(sql, "CREATE VIEW `orders_view`"):
			createIdx = i
		}
	}
	require.True(t, placeholderIdx >= 0 && dropIdx >= 0 && createIdx >= 0)
	assert.True(t, placeholderIdx < dropIdx, "placeholder CREATE TABLE must run before DROP TABLE IF EXISTS")
	assert.True(t, dropIdx < createIdx, "DROP TABLE IF EXISTS must run before CREATE VIEW")
}

func TestSchemaDifferOnlyBothSkipsNewObjectCreates(t *testing.T) {
	source := &core.Schema{}
	target := &core.Schema{
		Tables:   []*core.Table{{Name: "orders", Def: "CREATE TABLE `orders` (`id` int);"}},
		Views:    []*core.View{{Name: "orders_view", Fields: "(`id`)", Select: "SELECT id FROM orders", Def: "CREATE VIEW `orders_view` AS SELECT id FROM orders;"}},
		Routines: []*core.Routine{{Name: "recalc", Type: "PROCEDURE", Def: "CREATE PROCEDURE `recalc`() BEGIN END"}},
	}

	d := New(Options{OnlyBoth: true}, "source|target")
	records := d.Diff(source, target)

	assert.Empty(t, records)
}

func TestSchemaDifferKeepOldTablesSuppressesViewAndRoutineDrops(t *testing.T) {
	source := &core.Schema{
		Views:    []*core.View{{Name: "stale_view", Fields: "(`id`)", Select: "SELECT id FROM orders", Def: "CREATE VIEW `stale_view` AS SELECT id FROM orders;"}},
		Routines: []*core.Routine{{Name: "stale_proc", Type: "PROCEDURE", Def: "CREATE PROCEDURE `stale_proc`() BEGIN END"}},
	}
	target := &core.Schema{}

	d := New(Options{KeepOldTables: true}, "source|target")
	records := d.Diff(source, target)

	assert.False(t, containsSubstring(records, "DROP VIEW `stale_view`"))
	assert.False(t, containsSubstring(records, "DROP PROCEDURE IF EXISTS `stale_proc`"))
}

func TestSchemaDifferRefsWalksTransitiveClosure(t *testing.T) {
	schema := &core.Schema{
		Tables: []*core.Table{
			{Name: "orders", ForeignKeys: []*core.ForeignKey{{Name: "fk_customer", Clause: "FOREIGN KEY (`customer_id`) REFERENCES `customers` (`id`)"}}},
			{Name: "customers", ForeignKeys: []*core.ForeignKey{{Name: "fk_region", Clause: "FOREIGN KEY (`region_id`) REFERENCES `regions` (`id`)"}}},
			{Name: "regions"},
		},
	}

	d := New(Options{}, "seed")
	refs := d.Refs(schema, []string{"orders"})

	assert.Equal(t, []string{"orders", "customers", "regions"}, refs)
}

func TestSchemaDifferRefsHandlesCycles(t *testing.T) {
	schema := &core.Schema{
		Tables: []*core.Table{
			{Name: "a", ForeignKeys: []*core.ForeignKey{{Name: "fk_b", Clause: "FOREIGN KEY (`b_id`) REFERENCES `b` (`id`)"}}},
			{Name: "b", ForeignKeys: []*core.ForeignKey{{Name: "fk_a", Clause: "FOREIGN KEY (`a_id`) REFERENCES `a` (`id`)"}}},
		},
	}

	d := New(Options{}, "seed")
	refs := d.Refs(schema, []string{"a"})

	assert.ElementsMatch(t, []string{"a", "b"}, refs)
}
