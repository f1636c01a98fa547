package diff

import (
	"crypto/md5"
	"fmt"
	"strings"

	"mysqldiffplan/internal/core"
)

// diffIndexes runs the indexes pass: §4.4.
func diffIndexes(oldT, newT *core.Table, ctx *DifferContext, opts Options, records *[]core.ChangeRecord) {
	table := quoteIdent(newT.Name)

	for _, oldIdx := range oldT.Indices {
		newIdx := newT.Index(oldIdx.Name)

		fkCoupled, coupledCol := fkCoupling(oldT, newT, oldIdx.Name)
		if fkCoupled {
			coverName := tempCoverName(coupledCol, "change")
			if newIdx == nil {
				coverName = tempCoverName(coupledCol, "drop")
			}
			weight := 6
			if ctx.AddedPKCol == coupledCol {
				weight = core.PriorityAddFKOrInlinePK
			} else if _, ok := ctx.AddedForFK[oldIdx.Name]; ok {
				weight = core.PriorityCreateOrChange
			}
			addTempCoverIndex(ctx, records, table, coverName, coupledCol, weight)
			dropCall := ctx.Workaround.Call(newT.Name, oldIdx.Name, fmt.Sprintf("ALTER TABLE %s DROP INDEX %s;", table, quoteIdent(oldIdx.Name)), "drop")
			ctx.emit(records, dropCall, weight)
		}

		for _, col := range parenCols(oldIdx.Columns) {
			if hasAnyFK(oldT, newT, col) && newT.HasField(col) {
				addTempCoverIndex(ctx, records, table, tempCoverName(col, "fk"), col, core.PriorityCreateOrChange)
			}
		}

		weight := core.PriorityAddPKOrIndex
		for _, col := range parenCols(oldIdx.Columns) {
			if ctx.Timestamps[col] {
				weight = core.PriorityAddFKOrInlinePK
			}
		}

		if newIdx == nil {
			if allDropped(ctx, parenCols(oldIdx.Columns)) {
				continue
			}
			call := ctx.Workaround.Call(newT.Name, oldIdx.Name, fmt.Sprintf("DROP INDEX %s ON %s", quoteIdent(oldIdx.Name), table), "drop")
			ctx.emit(records, call, weight)
			continue
		}

		if indexChanged(oldIdx, newIdx) {
			if allDropped(ctx, parenCols(oldIdx.Columns)) {
				continue
			}
			dropCall := ctx.Workaround.Call(newT.Name, oldIdx.Name, fmt.Sprintf("DROP INDEX %s ON %s", quoteIdent(oldIdx.Name), table), "drop")
			ctx.emit(records, dropCall, weight)
			addCall := ctx.Workaround.Call(newT.Name, newIdx.Name, addIndexStmt(table, newIdx), "create")
			ctx.emit(records, addCall, weight)
			maybeAddAutoColumnIndex(ctx, records, newT, newIdx, weight)
		}
	}

	for _, newIdx := range newT.Indices {
		if oldT.Index(newIdx.Name) != nil {
			continue
		}
		if fk := oldT.ForeignKey(newIdx.Name); fk != nil {
			if newFK := newT.ForeignKey(newIdx.Name); newFK != nil && newFK.Clause == fk.Clause {
				continue
			}
		}
		weight := core.PriorityAddPKOrIndex
		for _, col := range parenCols(newIdx.Columns) {
			if newT.IsaPrimary(col) || ctx.Timestamps[col] {
				weight = core.PriorityAddFKOrInlinePK
			}
		}
		call := ctx.Workaround.Call(newT.Name, newIdx.Name, addIndexStmt(table, newIdx), "create")
		ctx.emit(records, call, weight)
		maybeAddAutoColumnIndex(ctx, records, newT, newIdx, weight)
	}

	if ctx.AddedIndexField != "" {
		col := ctx.AddedIndexField
		idxName := autoColIndexName(newT.Name, col)
		stmt := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", quoteIdent(idxName), table, quoteIdent(col))
		call := ctx.Workaround.Call(newT.Name, idxName, stmt, "create")
		ctx.emit(records, call, core.PriorityFKDropOrAddColumn)
		if ctx.AddedIndexIsNew {
			f := newT.Field(col)
			if f != nil {
				ctx.emit(records, fmt.Sprintf("ALTER TABLE %s CHANGE COLUMN %s %s %s;", table, quoteIdent(col), quoteIdent(col), f.Def), core.PriorityCreateOrChange)
			}
		} else if ctx.ChangedPKAutoCol != "" {
			ctx.emit(records, fmt.Sprintf("ALTER TABLE %s %s;", table, ctx.ChangedPKAutoCol), core.PriorityCreateOrChange)
		}
	}
}

func indexChanged(oldIdx, newIdx *core.Index) bool {
	return oldIdx.Columns != newIdx.Columns ||
		oldIdx.Unique != newIdx.Unique ||
		oldIdx.Fulltext != newIdx.Fulltext ||
		oldIdx.Opts != newIdx.Opts
}

func addIndexStmt(table string, idx *core.Index) string {
	kind := "INDEX"
	if idx.Unique {
		kind = "UNIQUE INDEX"
	} else if idx.Fulltext {
		kind = "FULLTEXT INDEX"
	}
	stmt := fmt.Sprintf("ALTER TABLE %s ADD %s %s %s", table, kind, quoteIdent(idx.Name), idx.Columns)
	if idx.Opts != "" {
		stmt += " " + idx.Opts
	}
	return stmt + ";"
}

func maybeAddAutoColumnIndex(ctx *DifferContext, records *[]core.ChangeRecord, t *core.Table, idx *core.Index, weight int) {
	for _, col := range parenCols(idx.Columns) {
		f := t.Field(col)
		if f != nil && hasAutoIncrement(f.Def) {
			table := quoteIdent(t.Name)
			idxName := autoColIndexName(t.Name, col)
			stmt := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", quoteIdent(idxName), table, quoteIdent(col))
			call := ctx.Workaround.Call(t.Name, idxName, stmt, "create")
			ctx.emit(records, call, weight)
		}
	}
}

func autoColIndexName(table, col string) string {
	return fmt.Sprintf("mysqldiff_%s_%s", table, col)
}

func fkCoupling(oldT, newT *core.Table, indexName string) (coupled bool, col string) {
	oldFK := oldT.ForeignKey(indexName)
	newFK := newT.ForeignKey(indexName)
	if oldFK == nil && newFK == nil {
		return false, ""
	}
	if oldFK != nil && newFK != nil && oldFK.Clause == newFK.Clause {
		return false, ""
	}
	fk := oldFK
	if fk == nil {
		fk = newFK
	}
	cols := fk.Columns()
	if len(cols) > 0 {
		return true, cols[0]
	}
	return true, ""
}

func hasAnyFK(oldT, newT *core.Table, col string) bool {
	return len(oldT.GetFKByCol(col)) > 0 || len(newT.GetFKByCol(col)) > 0
}

func tempCoverName(col, kind string) string {
	sum := md5.Sum([]byte(col))
	return fmt.Sprintf("rc_temp_%x_%s", sum, kind)
}

func addTempCoverIndex(ctx *DifferContext, records *[]core.ChangeRecord, table, name, col string, weight int) {
	if _, exists := ctx.TemporaryIndexes[name]; exists {
		return
	}
	ctx.TemporaryIndexes[name] = col
	stmt := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", quoteIdent(name), table, quoteIdent(col))
	call := ctx.Workaround.Call(strings.Trim(table, "`"), name, stmt, "create")
	ctx.emit(records, call, weight)
}

func allDropped(ctx *DifferContext, cols []string) bool {
	if len(cols) == 0 {
		return false
	}
	for _, c := range cols {
		if !ctx.DroppedColumns[c] {
			return false
		}
	}
	return true
}

func parenCols(paren string) []string {
	inner := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(paren), "("), ")")
	var out []string
	for _, p := range strings.Split(inner, ",") {
		p = strings.TrimSpace(p)
		p = strings.Trim(p, "`\"")
		if idx := strings.IndexAny(p, "( "); idx > 0 {
			p = p[:idx]
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
