package diff

import (
	"fmt"
	"sort"

	"mysqldiffplan/internal/core"
)

// diffPrimaryKey runs the primary-key pass: §4.5.
func diffPrimaryKey(oldT, newT *core.Table, ctx *DifferContext, records *[]core.ChangeRecord) {
	table := quoteIdent(newT.Name)

	if oldT.PrimaryKey == "" && newT.PrimaryKey != "" && !ctx.AddedPK {
		ctx.emit(records, fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY %s;", table, newT.PrimaryKey), core.PriorityAddPKOrIndex)
		return
	}

	if oldT.PrimaryKey == newT.PrimaryKey || ctx.AddedPK {
		return
	}

	oldParts := oldT.PrimaryParts()
	for _, col := range keys(oldParts) {
		if f := oldT.Field(col); f != nil && hasAutoIncrement(f.Def) {
			idxName := autoColIndexName(newT.Name, col)
			stmt := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", quoteIdent(idxName), table, quoteIdent(col))
			call := ctx.Workaround.Call(newT.Name, idxName, stmt, "create")
			ctx.emit(records, call, core.PriorityAddPKOrIndex)
		}
	}
	for _, col := range keys(oldParts) {
		if hasAnyFK(oldT, newT, col) {
			addTempCoverIndex(ctx, records, table, tempCoverName(col, "pk"), col, core.PriorityAddPKOrIndex)
		}
	}

	allOldPartsDropped := allDropped(ctx, keys(oldParts))

	dropSQL := ""
	if !allOldPartsDropped {
		if ctx.ChangedPKAutoCol != "" {
			dropSQL = fmt.Sprintf("ALTER TABLE %s DROP PRIMARY KEY, %s;", table, ctx.ChangedPKAutoCol)
		} else {
			dropSQL = fmt.Sprintf("ALTER TABLE %s DROP PRIMARY KEY;", table)
		}
	}

	if newT.PrimaryKey == "" {
		if dropSQL != "" {
			ctx.emit(records, dropSQL, core.PriorityDropPrimaryKey)
		}
		return
	}

	addSQL := fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY %s;", table, newT.PrimaryKey)

	switch {
	case dropSQL == "":
		ctx.emit(records, addSQL, core.PriorityReinstallOrCleanup)
	case ctx.AddedPKCol != "":
		ctx.emit(records, dropSQL, core.PriorityDropOrOptionsOrPK)
		ctx.emit(records, addSQL, core.PriorityDropOrOptionsOrPK)
	default:
		ctx.emit(records, dropSQL, core.PriorityDropPrimaryKey)
		ctx.emit(records, addSQL, core.PriorityAddPKOrIndex)
	}
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
