package plan

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mysqldiffplan/internal/core"
	"mysqldiffplan/internal/workaround"
)

func TestAssembleStableSortByPriorityThenEmission(t *testing.T) {
	records := []core.ChangeRecord{
		{SQL: "-- low a", Priority: 1, EmissionIndex: 0},
		{SQL: "-- high a", Priority: 5, EmissionIndex: 1},
		{SQL: "-- high b", Priority: 5, EmissionIndex: 2},
		{SQL: "-- low b", Priority: 1, EmissionIndex: 3},
	}

	a := &Assembler{Version: "test"}
	out := a.Assemble(records, nil)

	iHighA := strings.Index(out, "high a")
	iHighB := strings.Index(out, "high b")
	iLowA := strings.Index(out, "low a")
	iLowB := strings.Index(out, "low b")

	require.True(t, iHighA < iHighB)
	require.True(t, iHighB < iLowA)
	require.True(t, iLowA < iLowB)
}

func TestAssembleRendersBanner(t *testing.T) {
	a := &Assembler{Version: "1.0.0"}
	banner := &Banner{
		RunTime:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		OptionsEcho: "--tolerant",
		SourceLabel: "source.sql",
		TargetLabel: "target.sql",
	}
	out := a.Assemble(nil, banner)

	assert.Contains(t, out, "## mysqldiff 1.0.0")
	assert.Contains(t, out, "--- source.sql")
	assert.Contains(t, out, "+++ target.sql")
}

func TestAssembleSuppressesBannerInListTablesMode(t *testing.T) {
	a := &Assembler{Version: "1.0.0", ListTables: true}
	banner := &Banner{SourceLabel: "s", TargetLabel: "t"}
	out := a.Assemble(nil, banner)

	assert.NotContains(t, out, "## mysqldiff")
}

func TestAssembleWrapsWorkaroundProcedureWhenUsed(t *testing.T) {
	wa := workaround.New("seed")
	wa.Call("widgets", "idx_a", "CREATE INDEX idx_a ON widgets (a)", "create")

	a := &Assembler{Workaround: wa, Version: "1.0.0"}
	records := []core.ChangeRecord{{SQL: "ALTER TABLE `widgets` ADD COLUMN `a` int;", Priority: 5}}
	out := a.Assemble(records, nil)

	assert.Contains(t, out, wa.CreateProcedure())
	assert.Contains(t, out, wa.DropProcedure())
}

func TestAssembleOmitsWorkaroundWhenUnused(t *testing.T) {
	wa := workaround.New("seed")
	a := &Assembler{Workaround: wa, Version: "1.0.0"}
	out := a.Assemble(nil, nil)

	assert.NotContains(t, out, "workaround_")
}

func TestListTablesHeaderFormats(t *testing.T) {
	a := &Assembler{ListTables: true, Version: "1.0.0"}
	records := []core.ChangeRecord{
		{SQL: "CREATE TABLE `orders` (`id` int);", Priority: 9},
		{SQL: "ALTER TABLE `orders` ADD CONSTRAINT `fk_c` FOREIGN KEY (`customer_id`) REFERENCES `customers` (`id`);", Priority: 1},
		{SQL: "DROP TABLE `legacy`;", Priority: 8},
	}
	out := a.Assemble(records, nil)

	assert.Contains(t, out, `"name": "orders", "action_type": "create"`)
	assert.Contains(t, out, `"referenced_tables": ["customers"]`)
	assert.Contains(t, out, `"name": "legacy", "action_type": "drop"`)
}
