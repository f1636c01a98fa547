// Package plan assembles the final ordered DDL text from the ChangeRecords
// a SchemaDiffer produced: a stable sort by descending priority, an
// optional banner, and the workaround procedure's CREATE/DROP wrapping.
package plan

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"mysqldiffplan/internal/core"
	"mysqldiffplan/internal/workaround"
)

// Assembler renders a sorted list of ChangeRecords into the final plan
// text.
type Assembler struct {
	Workaround *workaround.Facility
	ListTables bool
	Refs       bool
	Version    string
}

// Banner carries the header fields printed above the plan unless
// list-tables or refs mode suppresses it.
type Banner struct {
	RunTime     time.Time
	OptionsEcho string
	SourceLabel string
	TargetLabel string
}

// Assemble stable-sorts records by (-priority, emission_index), then
// renders the plan text.
func (a *Assembler) Assemble(records []core.ChangeRecord, banner *Banner) string {
	sorted := append([]core.ChangeRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return sorted[i].EmissionIndex < sorted[j].EmissionIndex
	})

	var b strings.Builder

	if banner != nil && !a.ListTables && !a.Refs {
		fmt.Fprintf(&b, "## mysqldiff %s\n", a.Version)
		fmt.Fprintf(&b, "# run: %s\n", banner.RunTime.Format(time.RFC3339))
		fmt.Fprintf(&b, "# options: %s\n", banner.OptionsEcho)
		fmt.Fprintf(&b, "--- %s\n", banner.SourceLabel)
		fmt.Fprintf(&b, "+++ %s\n\n", banner.TargetLabel)
	}

	if a.Workaround != nil && a.Workaround.Used() {
		b.WriteString(a.Workaround.CreateProcedure())
		b.WriteString("\n\n")
	}

	for _, rec := range sorted {
		if a.ListTables {
			if header := listTablesHeader(rec.SQL); header != "" {
				b.WriteString(header)
				b.WriteString("\n")
			}
		}
		b.WriteString(rec.SQL)
		b.WriteString("\n\n")
	}

	if a.Workaround != nil && a.Workaround.Used() {
		b.WriteString(a.Workaround.DropProcedure())
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

var (
	reAlterTable  = regexp.MustCompile("(?is)^ALTER TABLE\\s+[`\"]?([A-Za-z0-9_]+)[`\"]?")
	reCreateTable = regexp.MustCompile("(?is)^CREATE TABLE\\s+[`\"]?([A-Za-z0-9_]+)[`\"]?")
	reDropTable   = regexp.MustCompile("(?is)^DROP TABLE\\s+[`\"]?([A-Za-z0-9_]+)[`\"]?")
	reRefTable    = regexp.MustCompile("(?is)REFERENCES\\s+[`\"]?([A-Za-z0-9_]+)[`\"]?")
)

// listTablesHeader renders the `-- {"name": ..., "action_type": ...,
// "referenced_tables": [...]}` comment for one ChangeRecord's SQL, or ""
// if the SQL isn't a table-affecting statement.
func listTablesHeader(sql string) string {
	trimmed := strings.TrimSpace(sql)
	var name, action string
	switch {
	case reCreateTable.MatchString(trimmed):
		name = reCreateTable.FindStringSubmatch(trimmed)[1]
		action = "create"
	case reDropTable.MatchString(trimmed):
		name = reDropTable.FindStringSubmatch(trimmed)[1]
		action = "drop"
	case reAlterTable.MatchString(trimmed):
		name = reAlterTable.FindStringSubmatch(trimmed)[1]
		action = "alter"
	default:
		return ""
	}

	var refs []string
	seen := make(map[string]bool)
	for _, m := range reRefTable.FindAllStringSubmatch(trimmed, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			refs = append(refs, m[1])
		}
	}

	refsJSON := "[]"
	if len(refs) > 0 {
		quoted := make([]string, len(refs))
		for i, r := range refs {
			quoted[i] = fmt.Sprintf("%q", r)
		}
		refsJSON = "[" + strings.Join(quoted, ", ") + "]"
	}

	return fmt.Sprintf(`-- {"name": %q, "action_type": %q, "referenced_tables": %s}`, name, action, refsJSON)
}
