// Package diff implements the schema-differencing and migration-planning
// engine: for a pair of tables it runs five ordered sub-passes (fields,
// indexes, primary key, foreign keys, options) that share a DifferContext,
// and at the schema level it walks both schemas' tables, views, and
// routines to build the full plan or, in refs mode, a dependency closure.
package diff

import (
	"regexp"
	"strings"

	"mysqldiffplan/internal/core"
	"mysqldiffplan/internal/workaround"
)

// Options controls the differ's behaviour; it mirrors the CLI's recognized
// options that affect core plan generation (spec.md's "recognized
// options" table, core-affecting subset).
type Options struct {
	Tolerant      bool
	OnlyBoth      bool
	KeepOldTables bool
	NoOldDefs     bool
	TableRe       *regexp.Regexp
	Refs          bool
	SaveQuotes    bool
}

// DifferContext is per-table-pair scratch state threaded through the five
// TableDiffer passes. It is reset at the start of every table pair.
type DifferContext struct {
	// ChangedPKAutoCol is a deferred CHANGE COLUMN tail (stripping
	// AUTO_INCREMENT) applied when the PK is dropped, or "" if unset.
	ChangedPKAutoCol string

	AddedPK    bool
	AddedPKCol string

	DroppedColumns map[string]bool

	// ChangedToEmptyCharField/ChangedToEmptyCharWeight record a CHAR(0)
	// conversion made by the fields pass; no later pass reads them.
	ChangedToEmptyCharField  string
	ChangedToEmptyCharWeight int

	// AddedIndexField/AddedIndexIsNew/AddedIndexDesc describe an
	// auto-increment column whose backing index has yet to be created.
	AddedIndexField string
	AddedIndexIsNew bool
	AddedIndexDesc  string

	// AddedForFK maps a new FK constraint name to the weight of the
	// column addition that introduced it; the FK recreate inherits it.
	AddedForFK map[string]int

	// TemporaryIndexes maps a scaffolding index name to the column it
	// covers; the options pass drops every entry at priority 0 (the end
	// of the plan) unless that column was itself dropped.
	TemporaryIndexes map[string]string

	AddedCols  map[string]bool
	Timestamps map[string]bool

	Workaround *workaround.Facility

	emissionCounter int
}

// NewDifferContext resets scratch state for a new table pair. The
// workaround facility is shared across the whole plan, not reset per pair.
func NewDifferContext(wa *workaround.Facility) *DifferContext {
	return &DifferContext{
		DroppedColumns:   make(map[string]bool),
		AddedForFK:       make(map[string]int),
		TemporaryIndexes: make(map[string]string),
		AddedCols:        make(map[string]bool),
		Timestamps:       make(map[string]bool),
		Workaround:       wa,
	}
}

// emit appends a ChangeRecord with the next emission index, preserving
// intra-bucket order for PlanAssembler's stable sort.
func (c *DifferContext) emit(records *[]core.ChangeRecord, sql string, priority int) {
	if strings.TrimSpace(sql) == "" {
		return
	}
	*records = append(*records, core.ChangeRecord{
		SQL:           sql,
		Priority:      priority,
		EmissionIndex: c.emissionCounter,
	})
	c.emissionCounter++
}

var reTimestampDefault = regexp.MustCompile(`(?i)\b(CURRENT_TIMESTAMP|NOW|LOCALTIME|LOCALTIMESTAMP)\s*(\(\s*\))?`)

func isTimestampDefault(def string) bool {
	return reTimestampDefault.MatchString(def)
}

var reCharZero = regexp.MustCompile(`(?i)\bCHAR\(0\)`)

func isCharZero(def string) bool { return reCharZero.MatchString(def) }

var reAutoIncrement = regexp.MustCompile(`(?i)\bAUTO_INCREMENT\b`)

func hasAutoIncrement(def string) bool { return reAutoIncrement.MatchString(def) }

func stripAutoIncrement(def string) string {
	return strings.TrimSpace(reAutoIncrement.ReplaceAllString(def, ""))
}
