// Package core contains the schema model the differencing engine consumes:
// read-only accessors over parsed tables, views, and routines, plus the
// small data types (ChangeRecord, priority buckets) the rest of the engine
// threads through.
package core

import (
	"regexp"
	"strings"
)

// Schema holds the three ordered object kinds a MySQL database is made of.
// Declaration order is the slice order; nothing here reorders it, so
// diffing always walks objects in their original source order.
type Schema struct {
	Tables   []*Table
	Views    []*View
	Routines []*Routine
}

// Table looks up a table by name, or nil if absent.
func (s *Schema) Table(name string) *Table {
	for _, t := range s.Tables {
		if strings.EqualFold(t.Name, name) {
			return t
		}
	}
	return nil
}

// View looks up a view by name, or nil if absent.
func (s *Schema) View(name string) *View {
	for _, v := range s.Views {
		if strings.EqualFold(v.Name, name) {
			return v
		}
	}
	return nil
}

// Routine looks up a routine by name, or nil if absent.
func (s *Schema) Routine(name string) *Routine {
	for _, r := range s.Routines {
		if strings.EqualFold(r.Name, name) {
			return r
		}
	}
	return nil
}

// HasTable reports whether name exists as either a table or a view.
func (s *Schema) HasTable(name string) bool { return s.Table(name) != nil || s.View(name) != nil }

// Field is a single column: its name and canonical "type-and-clauses"
// text, exactly as MySQL would echo it back (e.g. "int(11) NOT NULL
// DEFAULT '0'").
type Field struct {
	Name string
	Def  string
}

// Index is a secondary index: its name, parenthesized column list text
// (e.g. "(a, b)"), option suffix (e.g. "USING BTREE"), and kind flags.
type Index struct {
	Name     string
	Columns  string
	Opts     string
	Unique   bool
	Fulltext bool
}

// ForeignKey is a named FK constraint and its full clause text, e.g.
// `FOREIGN KEY (customer_id) REFERENCES customers (id) ON DELETE CASCADE`.
type ForeignKey struct {
	Name   string
	Clause string
}

// Table is the read-only accessor surface the differ needs for one table.
// Fields, Indices, and ForeignKeys are kept in declaration order; every
// map/set view spec'd against a table (fields_order, indices_parts,
// get_fk_by_col, ...) is computed on demand from these slices instead of
// being stored redundantly.
type Table struct {
	Name        string
	Fields      []*Field
	PrimaryKey  string // parenthesized column list, "" if the table has no PK
	Indices     []*Index
	ForeignKeys []*ForeignKey
	Options     string
	Def         string
}

// Field looks up a column definition by name.
func (t *Table) Field(name string) *Field {
	for _, f := range t.Fields {
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

// HasField reports whether the table declares the named column.
func (t *Table) HasField(name string) bool { return t.Field(name) != nil }

// FieldsMap returns column name -> canonical definition text.
func (t *Table) FieldsMap() map[string]string {
	m := make(map[string]string, len(t.Fields))
	for _, f := range t.Fields {
		m[f.Name] = f.Def
	}
	return m
}

// FieldsOrder returns column name -> declaration ordinal (0-based).
func (t *Table) FieldsOrder() map[string]int {
	m := make(map[string]int, len(t.Fields))
	for i, f := range t.Fields {
		m[f.Name] = i
	}
	return m
}

// FieldsLinks returns the previous and next column names in declaration
// order relative to col. Either return value is "" at the ends.
func (t *Table) FieldsLinks(col string) (prev, next string) {
	for i, f := range t.Fields {
		if !strings.EqualFold(f.Name, col) {
			continue
		}
		if i > 0 {
			prev = t.Fields[i-1].Name
		}
		if i+1 < len(t.Fields) {
			next = t.Fields[i+1].Name
		}
		return
	}
	return "", ""
}

var reParenColumns = regexp.MustCompile("[`\"]?([A-Za-z0-9_]+)[`\"]?(?:\\([0-9]+\\))?(?:\\s+(?:ASC|DESC))?")

// parenColumnNames extracts bare column names from a parenthesized column
// list such as "(`a`, `b`(10) DESC)" -> ["a", "b"].
func parenColumnNames(paren string) []string {
	inner := strings.TrimSpace(paren)
	inner = strings.TrimPrefix(inner, "(")
	inner = strings.TrimSuffix(inner, ")")
	if inner == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(inner, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		m := reParenColumns.FindStringSubmatch(part)
		if len(m) < 2 {
			continue
		}
		out = append(out, m[1])
	}
	return out
}

// PrimaryParts returns the set of columns participating in the PK.
func (t *Table) PrimaryParts() map[string]bool {
	set := make(map[string]bool)
	for _, c := range parenColumnNames(t.PrimaryKey) {
		set[c] = true
	}
	return set
}

// IsaPrimary reports whether col participates in the table's PK.
func (t *Table) IsaPrimary(col string) bool {
	return t.PrimaryParts()[col]
}

// Index looks up an index by name.
func (t *Table) Index(name string) *Index {
	for _, idx := range t.Indices {
		if strings.EqualFold(idx.Name, name) {
			return idx
		}
	}
	return nil
}

// IndicesMap returns index name -> parenthesized column list text.
func (t *Table) IndicesMap() map[string]string {
	m := make(map[string]string, len(t.Indices))
	for _, idx := range t.Indices {
		m[idx.Name] = idx.Columns
	}
	return m
}

// IndicesOpts returns index name -> option suffix text.
func (t *Table) IndicesOpts() map[string]string {
	m := make(map[string]string, len(t.Indices))
	for _, idx := range t.Indices {
		m[idx.Name] = idx.Opts
	}
	return m
}

// IndicesParts returns the set of columns covered by the named index.
func (t *Table) IndicesParts(name string) map[string]bool {
	set := make(map[string]bool)
	idx := t.Index(name)
	if idx == nil {
		return set
	}
	for _, c := range parenColumnNames(idx.Columns) {
		set[c] = true
	}
	return set
}

// IsUnique reports whether the named index is a UNIQUE index.
func (t *Table) IsUnique(name string) bool {
	idx := t.Index(name)
	return idx != nil && idx.Unique
}

// IsFulltext reports whether the named index is a FULLTEXT index.
func (t *Table) IsFulltext(name string) bool {
	idx := t.Index(name)
	return idx != nil && idx.Fulltext
}

// ForeignKey looks up an FK constraint by name.
func (t *Table) ForeignKey(name string) *ForeignKey {
	for _, fk := range t.ForeignKeys {
		if strings.EqualFold(fk.Name, name) {
			return fk
		}
	}
	return nil
}

// ForeignKeyMap returns FK constraint name -> full clause text.
func (t *Table) ForeignKeyMap() map[string]string {
	m := make(map[string]string, len(t.ForeignKeys))
	for _, fk := range t.ForeignKeys {
		m[fk.Name] = fk.Clause
	}
	return m
}

// IsaFK reports whether name is a declared FK constraint on this table.
func (t *Table) IsaFK(name string) bool { return t.ForeignKey(name) != nil }

var (
	reFKColumns    = regexp.MustCompile(`(?is)FOREIGN\s+KEY\s*(\([^)]*\))`)
	reFKReferences = regexp.MustCompile("(?is)REFERENCES\\s+[`\"]?([A-Za-z0-9_]+)[`\"]?\\s*(\\([^)]*\\))")
)

// fkColumns extracts the referencing column list from an FK clause.
func fkColumns(clause string) []string {
	m := reFKColumns.FindStringSubmatch(clause)
	if len(m) < 2 {
		return nil
	}
	return parenColumnNames(m[1])
}

// fkReferencedTableAndColumns extracts the referenced table name and
// column list from an FK clause.
func fkReferencedTableAndColumns(clause string) (table string, cols []string) {
	m := reFKReferences.FindStringSubmatch(clause)
	if len(m) < 3 {
		return "", nil
	}
	return m[1], parenColumnNames(m[2])
}

// GetFKByCol returns the set of FK constraint names that reference or use
// col as one of their (local, referencing) columns.
func (t *Table) GetFKByCol(col string) map[string]bool {
	set := make(map[string]bool)
	for _, fk := range t.ForeignKeys {
		for _, c := range fkColumns(fk.Clause) {
			if strings.EqualFold(c, col) {
				set[fk.Name] = true
				break
			}
		}
	}
	return set
}

// FKTables returns the set of table names this table depends on via FK.
func (t *Table) FKTables() map[string]bool {
	set := make(map[string]bool)
	for _, fk := range t.ForeignKeys {
		if ref, _ := fkReferencedTableAndColumns(fk.Clause); ref != "" {
			set[ref] = true
		}
	}
	return set
}

// ReferencedColumns returns the columns of the FK's target table that it
// references.
func (fk *ForeignKey) ReferencedColumns() []string {
	_, cols := fkReferencedTableAndColumns(fk.Clause)
	return cols
}

// Columns returns the FK's own (referencing) columns.
func (fk *ForeignKey) Columns() []string { return fkColumns(fk.Clause) }

// ViewOptions carries the pieces of a view definition that aren't the
// column list or SELECT body.
type ViewOptions struct {
	Security  string // e.g. "DEFINER" or "INVOKER"
	Algorithm string // e.g. "UNDEFINED", "MERGE", "TEMPTABLE"
	Trail     string // any trailing clause text (e.g. WITH CHECK OPTION)
}

// View is a database view: its column list text, SELECT body, and options.
type View struct {
	Name    string
	Fields  string // column list text, e.g. "(`id`, `name`)"
	Select  string
	Options ViewOptions
	Def     string
}

// ViewTemp returns a placeholder CREATE TABLE statement with the same
// column shape as the view, used to break forward-reference cycles when
// a view references a table or view that doesn't exist yet.
func (s *Schema) ViewTemp(name string) string {
	v := s.View(name)
	if v == nil {
		return ""
	}
	cols := parenColumnNames(v.Fields)
	if len(cols) == 0 {
		return "CREATE TABLE `" + v.Name + "` (`placeholder` int);"
	}
	var b strings.Builder
	b.WriteString("CREATE TABLE `")
	b.WriteString(v.Name)
	b.WriteString("` (\n")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("  `")
		b.WriteString(c)
		b.WriteString("` int")
	}
	b.WriteString("\n);")
	return b.String()
}

// Routine is a stored PROCEDURE or FUNCTION.
type Routine struct {
	Name    string
	Type    string // "PROCEDURE" or "FUNCTION"
	Options string
	Body    string
	Params  string
	Def     string
}
