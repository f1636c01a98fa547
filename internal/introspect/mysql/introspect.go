// Package mysql builds a core.Schema by querying a live MySQL, MariaDB, or
// TiDB server's INFORMATION_SCHEMA — the same wire dialect all three
// speak on this surface.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"mysqldiffplan/internal/core"
)

// Introspecter builds a core.Schema from a live connection.
type Introspecter struct{}

// New returns a ready-to-use Introspecter.
func New() *Introspecter { return &Introspecter{} }

// Introspect loads every table in the connection's current database.
func (i *Introspecter) Introspect(ctx context.Context, db *sql.DB) (*core.Schema, error) {
	names, err := tableNames(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	schema := &core.Schema{}
	for _, name := range names {
		t, err := introspectTable(ctx, db, name)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
		schema.Tables = append(schema.Tables, t)
	}
	return schema, nil
}

func tableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func introspectTable(ctx context.Context, db *sql.DB, name string) (*core.Table, error) {
	t := &core.Table{Name: name}

	if err := introspectColumns(ctx, db, t); err != nil {
		return nil, err
	}
	if err := introspectIndexes(ctx, db, t); err != nil {
		return nil, err
	}
	if err := introspectForeignKeys(ctx, db, t); err != nil {
		return nil, err
	}
	if err := introspectOptions(ctx, db, t); err != nil {
		return nil, err
	}

	t.Def = buildCreateTable(t)
	return t, nil
}

func introspectColumns(ctx context.Context, db *sql.DB, t *core.Table) error {
	rows, err := db.QueryContext(ctx, `
		SELECT column_name, column_type, is_nullable, column_default, extra, column_key
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position
	`, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	var pkCols []string
	for rows.Next() {
		var name, colType, nullable, extra, colKey string
		var defaultVal sql.NullString
		if err := rows.Scan(&name, &colType, &nullable, &defaultVal, &extra, &colKey); err != nil {
			return err
		}

		def := colType
		if nullable == "NO" {
			def += " NOT NULL"
		}
		if defaultVal.Valid {
			def += fmt.Sprintf(" DEFAULT '%s'", defaultVal.String)
		}
		if strings.Contains(extra, "auto_increment") {
			def += " AUTO_INCREMENT"
		}

		t.Fields = append(t.Fields, &core.Field{Name: name, Def: def})
		if colKey == "PRI" {
			pkCols = append(pkCols, name)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(pkCols) > 0 {
		t.PrimaryKey = "(`" + strings.Join(pkCols, "`, `") + "`)"
	}
	return nil
}

func introspectIndexes(ctx context.Context, db *sql.DB, t *core.Table) error {
	rows, err := db.QueryContext(ctx, `
		SELECT i.index_name, i.non_unique, i.index_type,
		       GROUP_CONCAT(c.column_name ORDER BY c.seq_in_index SEPARATOR ', ')
		FROM information_schema.statistics i
		JOIN information_schema.statistics c
		  ON i.table_schema = c.table_schema AND i.table_name = c.table_name AND i.index_name = c.index_name
		WHERE i.table_schema = DATABASE() AND i.table_name = ? AND i.index_name != 'PRIMARY'
		GROUP BY i.index_name, i.non_unique, i.index_type
	`, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, indexType, columns string
		var nonUnique int
		if err := rows.Scan(&name, &nonUnique, &indexType, &columns); err != nil {
			return err
		}
		idx := &core.Index{
			Name:     name,
			Columns:  "(`" + strings.ReplaceAll(columns, ", ", "`, `") + "`)",
			Unique:   nonUnique == 0,
			Fulltext: strings.EqualFold(indexType, "FULLTEXT"),
		}
		if !strings.EqualFold(indexType, "BTREE") {
			idx.Opts = "USING " + strings.ToUpper(indexType)
		}
		t.Indices = append(t.Indices, idx)
	}
	return rows.Err()
}

func introspectForeignKeys(ctx context.Context, db *sql.DB, t *core.Table) error {
	rows, err := db.QueryContext(ctx, `
		SELECT k.constraint_name,
		       GROUP_CONCAT(k.column_name ORDER BY k.ordinal_position SEPARATOR ', '),
		       k.referenced_table_name,
		       GROUP_CONCAT(k.referenced_column_name ORDER BY k.position_in_unique_constraint SEPARATOR ', '),
		       r.update_rule, r.delete_rule
		FROM information_schema.key_column_usage k
		JOIN information_schema.referential_constraints r
		  ON k.constraint_schema = r.constraint_schema AND k.constraint_name = r.constraint_name
		WHERE k.table_schema = DATABASE() AND k.table_name = ? AND k.referenced_table_name IS NOT NULL
		GROUP BY k.constraint_name, k.referenced_table_name, r.update_rule, r.delete_rule
	`, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, cols, refTable, refCols, onUpdate, onDelete string
		if err := rows.Scan(&name, &cols, &refTable, &refCols, &onUpdate, &onDelete); err != nil {
			return err
		}
		clause := fmt.Sprintf(
			"FOREIGN KEY (`%s`) REFERENCES `%s` (`%s`) ON DELETE %s ON UPDATE %s",
			strings.ReplaceAll(cols, ", ", "`, `"), refTable, strings.ReplaceAll(refCols, ", ", "`, `"), onDelete, onUpdate,
		)
		t.ForeignKeys = append(t.ForeignKeys, &core.ForeignKey{Name: name, Clause: clause})
	}
	return rows.Err()
}

func introspectOptions(ctx context.Context, db *sql.DB, t *core.Table) error {
	row := db.QueryRowContext(ctx, `
		SELECT engine, table_collation, IFNULL(table_comment, ''), row_format
		FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_name = ?
	`, t.Name)

	var engine, collation, comment, rowFormat sql.NullString
	if err := row.Scan(&engine, &collation, &comment, &rowFormat); err != nil {
		return err
	}

	var parts []string
	if engine.Valid && engine.String != "" {
		parts = append(parts, "ENGINE="+engine.String)
	}
	if collation.Valid && collation.String != "" {
		parts = append(parts, "COLLATE="+collation.String)
	}
	if rowFormat.Valid && rowFormat.String != "" && !strings.EqualFold(rowFormat.String, "Dynamic") {
		parts = append(parts, "ROW_FORMAT="+rowFormat.String)
	}
	if comment.Valid && comment.String != "" {
		parts = append(parts, fmt.Sprintf("COMMENT='%s'", strings.ReplaceAll(comment.String, "'", "''")))
	}
	t.Options = strings.Join(parts, " ")
	return nil
}

func buildCreateTable(t *core.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE `%s` (\n", t.Name)
	lines := make([]string, 0, len(t.Fields)+len(t.Indices)+len(t.ForeignKeys)+1)
	for _, f := range t.Fields {
		lines = append(lines, fmt.Sprintf("  `%s` %s", f.Name, f.Def))
	}
	if t.PrimaryKey != "" {
		lines = append(lines, "  PRIMARY KEY "+t.PrimaryKey)
	}
	for _, idx := range t.Indices {
		kind := "KEY"
		if idx.Unique {
			kind = "UNIQUE KEY"
		} else if idx.Fulltext {
			kind = "FULLTEXT KEY"
		}
		lines = append(lines, fmt.Sprintf("  %s `%s` %s", kind, idx.Name, idx.Columns))
	}
	for _, fk := range t.ForeignKeys {
		lines = append(lines, fmt.Sprintf("  CONSTRAINT `%s` %s", fk.Name, fk.Clause))
	}
	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n) ")
	b.WriteString(t.Options)
	return strings.TrimSpace(b.String()) + ";"
}
