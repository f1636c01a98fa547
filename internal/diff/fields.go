package diff

import (
	"fmt"
	"sort"
	"strings"

	"mysqldiffplan/internal/core"
)

// diffFields runs the fields pass: §4.3. It compares oldT's columns
// against newT's, folding PK transitions and auto-increment handling into
// the emitted ALTER statements, and records in ctx (AddedPK, AddedPKCol)
// which column became a PK column here so later passes can see it.
func diffFields(oldT, newT *core.Table, ctx *DifferContext, opts Options, records *[]core.ChangeRecord) {
	table := quoteIdent(newT.Name)
	newPrimaryParts := newT.PrimaryParts()

	oldOrder := oldT.FieldsOrder()
	sortedOld := append([]*core.Field(nil), oldT.Fields...)
	sort.SliceStable(sortedOld, func(i, j int) bool {
		iAuto := hasAutoIncrement(fieldOr(newT, sortedOld[i].Name, sortedOld[i].Def))
		jAuto := hasAutoIncrement(fieldOr(newT, sortedOld[j].Name, sortedOld[j].Def))
		if iAuto != jAuto {
			return !iAuto
		}
		return oldOrder[sortedOld[i].Name] < oldOrder[sortedOld[j].Name]
	})

	var newColumns []*core.Field
	for _, f := range newT.Fields {
		if !oldT.HasField(f.Name) {
			newColumns = append(newColumns, f)
		}
	}
	sort.SliceStable(newColumns, func(i, j int) bool {
		return hasAutoIncrement(newColumns[i].Def) == false && hasAutoIncrement(newColumns[j].Def) == true
	})

	lastNewPKCol := ""
	for _, f := range newT.Fields {
		if newPrimaryParts[f.Name] {
			lastNewPKCol = f.Name
		}
	}

	for _, oldF := range sortedOld {
		newF := newT.Field(oldF.Name)
		if newF == nil {
			ctx.emit(records, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", table, quoteIdent(oldF.Name)), core.PriorityDropColumn)
			ctx.DroppedColumns[oldF.Name] = true
			continue
		}
		if fieldsEqual(oldF.Def, newF.Def, opts.Tolerant) {
			continue
		}

		becomesPK := newPrimaryParts[oldF.Name] && !oldT.IsaPrimary(oldF.Name)
		if becomesPK {
			if len(newPrimaryParts) == 1 {
				ctx.emit(records, withOldDefComment(fmt.Sprintf("ALTER TABLE %s CHANGE COLUMN %s %s %s PRIMARY KEY;", table, quoteIdent(oldF.Name), quoteIdent(oldF.Name), newF.Def), oldF.Def, opts.NoOldDefs), core.PriorityAddFKOrInlinePK)
				ctx.AddedPK = true
				ctx.AddedPKCol = oldF.Name
				continue
			}
			if oldF.Name == lastNewPKCol {
				ctx.emit(records, withOldDefComment(fmt.Sprintf("ALTER TABLE %s CHANGE COLUMN %s %s %s, ADD PRIMARY KEY %s;", table, quoteIdent(oldF.Name), quoteIdent(oldF.Name), newF.Def, newT.PrimaryKey), oldF.Def, opts.NoOldDefs), core.PriorityAddFKOrInlinePK)
				ctx.AddedPK = true
				ctx.AddedPKCol = oldF.Name
				continue
			}
		}

		if oldT.IsaPrimary(oldF.Name) && strings.Contains(strings.ToUpper(newF.Def), "DEFAULT NULL") {
			ctx.emit(records, withOldDefComment(fmt.Sprintf("ALTER TABLE %s CHANGE COLUMN %s %s %s;", table, quoteIdent(oldF.Name), quoteIdent(oldF.Name), newF.Def), oldF.Def, opts.NoOldDefs), 3)
			continue
		}
		if oldT.IsaPrimary(oldF.Name) && hasAutoIncrement(oldF.Def) {
			ctx.ChangedPKAutoCol = fmt.Sprintf("CHANGE COLUMN %s %s %s", quoteIdent(oldF.Name), quoteIdent(oldF.Name), stripAutoIncrement(newF.Def))
			continue
		}
		if !oldT.IsaPrimary(oldF.Name) && hasAutoIncrement(newF.Def) {
			ctx.AddedIndexField = oldF.Name
			ctx.AddedIndexIsNew = false
		}
		if isCharZero(newF.Def) {
			ctx.ChangedToEmptyCharField = oldF.Name
			ctx.ChangedToEmptyCharWeight = 1
		}

		weight := core.PriorityCreateOrChange
		if isTimestampDefault(newF.Def) {
			weight = core.PriorityAddFKOrInlinePK
		}
		pkSuffix := ""
		if oldT.IsaPrimary(oldF.Name) && newPrimaryParts[oldF.Name] {
			pkSuffix = ""
		}
		sql := fmt.Sprintf("ALTER TABLE %s CHANGE COLUMN %s %s %s%s;", table, quoteIdent(oldF.Name), quoteIdent(oldF.Name), newF.Def, pkSuffix)
		ctx.emit(records, withOldDefComment(sql, oldF.Def, opts.NoOldDefs), weight)
	}

	for _, newF := range newColumns {
		ctx.AddedCols[newF.Name] = true
		prev, _ := newT.FieldsLinks(newF.Name)
		position := "FIRST"
		if prev != "" {
			position = "AFTER " + quoteIdent(prev)
		}

		def := newF.Def
		weight := core.PriorityFKDropOrAddColumn
		suffix := ""

		if newPrimaryParts[newF.Name] {
			if newF.Name == lastNewPKCol && len(newPrimaryParts) > 1 {
				suffix = ", ADD PRIMARY KEY " + newT.PrimaryKey
			} else if len(newPrimaryParts) == 1 {
				suffix = " PRIMARY KEY"
			}
			ctx.AddedPK = true
			ctx.AddedPKCol = newF.Name
			weight = core.PriorityAddFKOrInlinePK
		}

		if hasAutoIncrement(def) && !newPrimaryParts[newF.Name] {
			def = stripAutoIncrement(def)
			ctx.AddedIndexField = newF.Name
			ctx.AddedIndexIsNew = true
		}

		if isTimestampDefault(def) {
			weight = core.PriorityAddFKOrInlinePK
			ctx.Timestamps[newF.Name] = true
		}

		for fk, w := range fkColumnWeights(newT, newF.Name) {
			_ = w
			ctx.AddedForFK[fk] = weight
		}

		ctx.emit(records, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s %s%s;", table, quoteIdent(newF.Name), def, position, suffix), weight)
	}
}

// withOldDefComment appends a trailing "# was <old definition>" comment
// line to a CHANGE COLUMN statement so a reader can see what the column
// used to be, unless --no-old-defs suppressed it.
func withOldDefComment(sql, oldDef string, noOldDefs bool) string {
	if noOldDefs {
		return sql
	}
	return sql + "\n# was " + oldDef
}

func fieldOr(t *core.Table, name, fallback string) string {
	if f := t.Field(name); f != nil {
		return f.Def
	}
	return fallback
}

func fkColumnWeights(t *core.Table, col string) map[string]int {
	out := make(map[string]int)
	for fkName := range t.GetFKByCol(col) {
		out[fkName] = 0
	}
	return out
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
