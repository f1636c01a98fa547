// Package mysql parses MySQL DDL text into a core.Schema using the tidb
// parser's AST, restoring each column/index/constraint back to canonical
// text so the differ can compare definitions the way MySQL would echo
// them.
package mysql

import (
	"fmt"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/format"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"

	"mysqldiffplan/internal/core"
)

// Parser wraps a tidb SQL parser instance. It is not safe for concurrent
// use, matching the underlying parser.Parser's own restriction.
type Parser struct {
	p *parser.Parser
}

// New returns a ready-to-use Parser.
func New() *Parser {
	return &Parser{p: parser.New()}
}

// ParseSchema parses a full DDL dump into a core.Schema, preserving
// declaration order. Only CREATE TABLE and CREATE VIEW statements are
// converted; every other statement, including CREATE PROCEDURE/FUNCTION,
// is skipped, so Schema.Routines stays empty.
func (p *Parser) ParseSchema(sql string) (*core.Schema, error) {
	stmts, _, err := p.p.Parse(sql, "", "")
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	schema := &core.Schema{}
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.CreateTableStmt:
			table, err := convertTable(s)
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", s.Table.Name.O, err)
			}
			schema.Tables = append(schema.Tables, table)
		case *ast.CreateViewStmt:
			schema.Views = append(schema.Views, convertView(s))
		}
	}
	return schema, nil
}

func restore(n ast.Node) (string, error) {
	var sb strings.Builder
	ctx := format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)
	if err := n.Restore(ctx); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func convertTable(stmt *ast.CreateTableStmt) (*core.Table, error) {
	def, err := restore(stmt)
	if err != nil {
		return nil, err
	}

	table := &core.Table{Name: stmt.Table.Name.O, Def: def}

	for _, col := range stmt.Cols {
		fieldText, err := restoreColumn(col)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name.Name.O, err)
		}
		table.Fields = append(table.Fields, &core.Field{Name: col.Name.Name.O, Def: fieldText})

		for _, opt := range col.Options {
			if opt.Tp == ast.ColumnOptionPrimaryKey {
				table.PrimaryKey = "(" + quote(col.Name.Name.O) + ")"
			}
		}
	}

	for _, c := range stmt.Constraints {
		switch c.Tp {
		case ast.ConstraintPrimaryKey:
			table.PrimaryKey = "(" + joinIndexCols(c.Keys) + ")"
		case ast.ConstraintForeignKey:
			clause, err := restore(c)
			if err != nil {
				return nil, err
			}
			table.ForeignKeys = append(table.ForeignKeys, &core.ForeignKey{Name: c.Name, Clause: clause})
		case ast.ConstraintIndex, ast.ConstraintKey, ast.ConstraintUniq, ast.ConstraintUniqKey, ast.ConstraintUniqIndex, ast.ConstraintFulltext:
			idx := &core.Index{
				Name:     c.Name,
				Columns:  "(" + joinIndexCols(c.Keys) + ")",
				Unique:   c.Tp == ast.ConstraintUniq || c.Tp == ast.ConstraintUniqKey || c.Tp == ast.ConstraintUniqIndex,
				Fulltext: c.Tp == ast.ConstraintFulltext,
			}
			if c.Option != nil && c.Option.Tp != ast.IndexTypeInvalid {
				idx.Opts = "USING " + c.Option.Tp.String()
			}
			table.Indices = append(table.Indices, idx)
		}
	}

	optText, err := restoreTableOptions(stmt.Options)
	if err != nil {
		return nil, err
	}
	table.Options = optText

	return table, nil
}

func restoreColumn(col *ast.ColumnDef) (string, error) {
	var sb strings.Builder
	ctx := format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)
	if err := col.Tp.Restore(ctx); err != nil {
		return "", err
	}
	for _, opt := range col.Options {
		sb.WriteString(" ")
		if err := opt.Restore(ctx); err != nil {
			return "", err
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func restoreTableOptions(opts []*ast.TableOption) (string, error) {
	var parts []string
	for _, opt := range opts {
		var sb strings.Builder
		ctx := format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)
		if err := opt.Restore(ctx); err != nil {
			return "", err
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, " "), nil
}

func joinIndexCols(keys []*ast.IndexPartSpecification) string {
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		if k.Column != nil {
			names = append(names, quote(k.Column.Name.O))
		}
	}
	return strings.Join(names, ", ")
}

func quote(name string) string { return "`" + name + "`" }

func convertView(stmt *ast.CreateViewStmt) *core.View {
	def, _ := restore(stmt)
	selectText, _ := restore(stmt.Select)

	cols := make([]string, 0, len(stmt.Cols))
	for _, c := range stmt.Cols {
		cols = append(cols, quote(c.O))
	}
	fields := ""
	if len(cols) > 0 {
		fields = "(" + strings.Join(cols, ", ") + ")"
	}

	return &core.View{
		Name:   stmt.ViewName.Name.O,
		Fields: fields,
		Select: selectText,
		Def:    def,
		Options: core.ViewOptions{
			Security:  stmt.Security.String(),
			Algorithm: stmt.Algorithm.String(),
		},
	}
}
