package diff

import (
	"fmt"

	"mysqldiffplan/internal/core"
)

// diffForeignKeys runs the foreign-key pass: §4.6.
func diffForeignKeys(oldT, newT *core.Table, ctx *DifferContext, records *[]core.ChangeRecord) {
	table := quoteIdent(newT.Name)

	for _, oldFK := range oldT.ForeignKeys {
		newFK := newT.ForeignKey(oldFK.Name)
		if newFK == nil {
			ctx.emit(records, fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s;", table, quoteIdent(oldFK.Name)), core.PriorityFKDropOrAddColumn)
			continue
		}
		if oldFK.Clause == newFK.Clause {
			continue
		}

		weight, hasOverride := ctx.AddedForFK[oldFK.Name]
		if !hasOverride {
			weight = core.PriorityCreateOrChange
		}

		if intersectsDropped(newFK.ReferencedColumns(), ctx.DroppedColumns) {
			ctx.emit(records, fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s;", table, quoteIdent(oldFK.Name)), core.PriorityFKDropOrAddColumn)
			ctx.emit(records, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s;", table, quoteIdent(newFK.Name), newFK.Clause), core.PriorityCreateOrChange)
			continue
		}

		ctx.emit(records, fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s;", table, quoteIdent(oldFK.Name)), weight)
		ctx.emit(records, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s;", table, quoteIdent(newFK.Name), newFK.Clause), weight)
	}

	for _, newFK := range newT.ForeignKeys {
		if oldT.ForeignKey(newFK.Name) != nil {
			continue
		}
		weight, ok := ctx.AddedForFK[newFK.Name]
		if !ok {
			weight = core.PriorityAddFKOrInlinePK
		}
		ctx.emit(records, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s;", table, quoteIdent(newFK.Name), newFK.Clause), weight)
	}
}

func intersectsDropped(cols []string, dropped map[string]bool) bool {
	for _, c := range cols {
		if dropped[c] {
			return true
		}
	}
	return false
}
