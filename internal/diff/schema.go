package diff

import (
	"fmt"
	"sort"
	"strings"

	"mysqldiffplan/internal/core"
	"mysqldiffplan/internal/workaround"
)

// SchemaDiffer is the top-level driver: it walks both schemas' tables,
// views, and routines and either produces a full diff plan or, in refs
// mode, a dependency-closure listing of tables reachable from the ones
// named on the command line.
type SchemaDiffer struct {
	Options    Options
	Workaround *workaround.Facility
}

// New builds a SchemaDiffer with its own workaround facility, seeded from
// seed (the CLI passes the source and target labels joined by "|", or the
// schema text in refs mode) so the procedure name is deterministic across
// runs of the same input pair.
func New(opts Options, seed string) *SchemaDiffer {
	return &SchemaDiffer{Options: opts, Workaround: workaround.New(seed)}
}

// Diff computes the full migration plan turning source into target.
func (d *SchemaDiffer) Diff(source, target *core.Schema) []core.ChangeRecord {
	var records []core.ChangeRecord
	counter := 0
	emit := func(sql string, priority int) {
		if strings.TrimSpace(sql) == "" {
			return
		}
		records = append(records, core.ChangeRecord{SQL: sql, Priority: priority, EmissionIndex: counter})
		counter++
	}

	td := &TableDiffer{Options: d.Options, Workaround: d.Workaround}

	for _, srcTable := range source.Tables {
		if d.Options.TableRe != nil && !d.Options.TableRe.MatchString(srcTable.Name) {
			continue
		}
		if tgtTable := target.Table(srcTable.Name); tgtTable != nil {
			for _, rec := range td.Diff(srcTable, tgtTable) {
				rec.EmissionIndex = counter
				records = append(records, rec)
				counter++
			}
			continue
		}
		if target.View(srcTable.Name) != nil {
			continue // suppressed: the second pass's CREATE VIEW handles it
		}
		if d.Options.OnlyBoth || d.Options.KeepOldTables {
			continue
		}
		emit(fmt.Sprintf("DROP TABLE %s;", quoteIdent(srcTable.Name)), core.PriorityDropOrOptionsOrPK)
	}

	for _, srcRoutine := range source.Routines {
		if target.Routine(srcRoutine.Name) == nil {
			if d.Options.OnlyBoth || d.Options.KeepOldTables {
				continue
			}
			emit(fmt.Sprintf("DROP %s IF EXISTS %s;", srcRoutine.Type, quoteIdent(srcRoutine.Name)), core.PriorityDropOrOptionsOrPK)
		}
	}
	for _, srcView := range source.Views {
		if target.View(srcView.Name) == nil && target.Table(srcView.Name) == nil {
			if d.Options.OnlyBoth || d.Options.KeepOldTables {
				continue
			}
			emit(fmt.Sprintf("DROP VIEW %s;", quoteIdent(srcView.Name)), core.PriorityDropOrOptionsOrPK)
		}
	}

	for _, tgtTable := range target.Tables {
		if source.Table(tgtTable.Name) != nil {
			continue
		}
		if d.Options.OnlyBoth {
			continue
		}
		emit(tgtTable.Def, core.PriorityFKDropOrAddColumn)
		for _, fk := range tgtTable.ForeignKeys {
			emit(fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s;", quoteIdent(tgtTable.Name), quoteIdent(fk.Name), fk.Clause), core.PriorityAddFKOrInlinePK)
		}
	}

	for _, tgtView := range target.Views {
		if source.View(tgtView.Name) != nil {
			if changed := diffView(source.View(tgtView.Name), tgtView); changed != "" {
				emit(changed, core.PriorityCreateOrChange)
			}
			continue
		}
		if d.Options.OnlyBoth {
			continue
		}
		emit(target.ViewTemp(tgtView.Name), core.PriorityViewPlaceholder)
		emit(fmt.Sprintf("DROP TABLE IF EXISTS %s;", quoteIdent(tgtView.Name)), core.PriorityCreateOrChange)
		emit(tgtView.Def, core.PriorityCreateOrChange)
	}

	for _, tgtRoutine := range target.Routines {
		srcRoutine := source.Routine(tgtRoutine.Name)
		if srcRoutine == nil {
			if d.Options.OnlyBoth {
				continue
			}
			emit(wrapDelimiter(tgtRoutine.Def), core.PriorityCreateOrChange)
			continue
		}
		if srcRoutine.Options == tgtRoutine.Options && srcRoutine.Body == tgtRoutine.Body && srcRoutine.Params == tgtRoutine.Params {
			continue
		}
		emit(fmt.Sprintf("DROP %s IF EXISTS %s;", tgtRoutine.Type, quoteIdent(tgtRoutine.Name)), core.PriorityDropOrOptionsOrPK)
		emit(wrapDelimiter(tgtRoutine.Def), core.PriorityCreateOrChange)
	}

	return records
}

// Refs computes the transitive FK-referenced-table closure starting from
// the given seed table names, walking `fk_tables` recursively.
func (d *SchemaDiffer) Refs(schema *core.Schema, seed []string) []string {
	used := make(map[string]bool)
	var order []string

	var visit func(name string)
	visit = func(name string) {
		if used[name] {
			return
		}
		t := schema.Table(name)
		if t == nil {
			return
		}
		used[name] = true
		order = append(order, name)
		refs := make([]string, 0, len(t.FKTables()))
		for ref := range t.FKTables() {
			refs = append(refs, ref)
		}
		sort.Strings(refs)
		for _, ref := range refs {
			visit(ref)
		}
	}
	for _, name := range seed {
		visit(name)
	}
	return order
}

func wrapDelimiter(def string) string {
	return "DELIMITER ;;\n" + def + "\nDELIMITER ;"
}

func diffView(oldV, newV *core.View) string {
	if oldV.Fields == newV.Fields &&
		oldV.Select == newV.Select &&
		oldV.Options.Algorithm == newV.Options.Algorithm &&
		oldV.Options.Security == newV.Options.Security &&
		oldV.Options.Trail == newV.Options.Trail {
		return ""
	}
	security := newV.Options.Security
	if security == "" {
		security = "DEFINER"
	}
	algo := newV.Options.Algorithm
	if algo == "" {
		algo = "UNDEFINED"
	}
	return fmt.Sprintf("ALTER ALGORITHM=%s DEFINER=CURRENT_USER SQL SECURITY %s VIEW %s AS %s%s;", algo, security, quoteIdent(newV.Name), newV.Select, newV.Options.Trail)
}
