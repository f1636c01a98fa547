package diff

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"mysqldiffplan/internal/core"
)

var rePartitionBy = regexp.MustCompile(`(?i)\bPARTITION\s+BY\b.*$`)

func splitPartitionClause(opts string) (rest, partition string) {
	loc := rePartitionBy.FindStringIndex(opts)
	if loc == nil {
		return opts, ""
	}
	return strings.TrimSpace(opts[:loc[0]]), strings.TrimSpace(opts[loc[0]:])
}

var reCommentOpt = regexp.MustCompile(`(?i)COMMENT\s*=\s*'`)

// diffOptions runs the options-and-partitions pass: §4.7, plus dropping
// any surviving temporary cover index whose column was not itself
// dropped in this pass.
func diffOptions(oldT, newT *core.Table, ctx *DifferContext, opts Options, records *[]core.ChangeRecord) {
	table := quoteIdent(newT.Name)

	tempNames := make([]string, 0, len(ctx.TemporaryIndexes))
	for name := range ctx.TemporaryIndexes {
		tempNames = append(tempNames, name)
	}
	sort.Strings(tempNames)
	for _, name := range tempNames {
		if ctx.DroppedColumns[ctx.TemporaryIndexes[name]] {
			continue
		}
		call := ctx.Workaround.Call(newT.Name, name, fmt.Sprintf("DROP INDEX %s ON %s", quoteIdent(name), table), "drop")
		ctx.emit(records, call, core.PriorityReinstallOrCleanup)
	}

	if optionsEqual(oldT.Options, newT.Options, opts.Tolerant) {
		return
	}

	target := newT.Options
	if !reCommentOpt.MatchString(target) {
		target = strings.TrimSpace("COMMENT='' " + target)
	}

	oldRest, oldPartition := splitPartitionClause(oldT.Options)
	newRest, newPartition := splitPartitionClause(target)
	_ = oldRest

	if oldPartition != "" && newPartition == "" || (oldPartition != "" && newPartition != "" && oldPartition != newPartition) {
		ctx.emit(records, fmt.Sprintf("ALTER TABLE %s REMOVE PARTITIONING;", table), core.PriorityDropOrOptionsOrPK)
	}

	ctx.emit(records, fmt.Sprintf("ALTER TABLE %s %s;", table, newRest), core.PriorityDropOrOptionsOrPK)

	if newPartition != "" {
		ctx.emit(records, fmt.Sprintf("ALTER TABLE %s %s;", table, strings.TrimSpace(newT.Options)), core.PriorityReinstallOrCleanup)
	}
}
