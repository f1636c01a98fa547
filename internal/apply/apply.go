// Package apply is a thin external executor: it connects to a live MySQL
// server and runs a previously generated plan against it. It never
// influences plan generation and is not part of the core.
package apply

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

// WarningLevel classifies a preflight finding.
type WarningLevel string

const (
	WarnCaution WarningLevel = "CAUTION"
	WarnDanger  WarningLevel = "DANGER"
)

// Warning is one preflight finding against a statement.
type Warning struct {
	Level   WarningLevel
	Message string
	SQL     string
}

// PreflightResult summarizes what running a plan would do before it runs.
type PreflightResult struct {
	Warnings        []Warning
	IsTransactional bool
	NonTxReasons    []string
}

var reDangerous = regexp.MustCompile(`(?is)^\s*(DROP TABLE|DROP DATABASE)|^\s*ALTER\s+TABLE\b.*\bDROP\s+COLUMN\b`)
var reNonTransactional = regexp.MustCompile(`(?i)^\s*(CREATE|DROP|ALTER)\s+(PROCEDURE|FUNCTION|VIEW)`)

// Options controls how a plan is applied.
type Options struct {
	DSN    string
	DryRun bool
	Unsafe bool
	TxWrap bool
}

// Applier connects to a database and runs a set of DDL statements against
// it, sequentially, with optional preflight gating.
type Applier struct {
	db      *sql.DB
	options Options
	logger  *logrus.Logger
}

// New returns an Applier that logs through logger.
func New(options Options, logger *logrus.Logger) *Applier {
	return &Applier{options: options, logger: logger}
}

// Connect opens and pings the target database.
func (a *Applier) Connect(ctx context.Context) error {
	db, err := sql.Open("mysql", a.options.DSN)
	if err != nil {
		return fmt.Errorf("open database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping database: %w", err)
	}
	a.db = db
	return nil
}

// Close releases the underlying connection pool.
func (a *Applier) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// SplitStatements splits a semicolon-terminated plan text into individual
// statements, skipping blank lines, the `##`/`#`/`---`/`+++` lines of
// PlanAssembler's banner, `--` list-tables headers, and `#`-prefixed "was"
// comments the fields pass attaches to CHANGE COLUMN statements.
func SplitStatements(plan string) []string {
	var out []string
	var cur strings.Builder
	for _, line := range strings.Split(plan, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") || strings.HasPrefix(trimmed, "##") || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "+++") {
			continue
		}
		cur.WriteString(line)
		cur.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
		}
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" {
		out = append(out, rest)
	}
	return out
}

// Preflight scans statements for destructive or non-transactional DDL.
func Preflight(statements []string) *PreflightResult {
	res := &PreflightResult{IsTransactional: true}
	for _, stmt := range statements {
		if reDangerous.MatchString(stmt) {
			res.Warnings = append(res.Warnings, Warning{Level: WarnDanger, Message: "destructive statement", SQL: stmt})
		}
		if reNonTransactional.MatchString(stmt) {
			res.IsTransactional = false
			res.NonTxReasons = append(res.NonTxReasons, "DDL on a routine/view is not rolled back by a MySQL transaction: "+truncate(stmt))
		}
	}
	return res
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 80 {
		return s[:77] + "..."
	}
	return s
}

// Apply runs statements against the connected database. Dangerous
// statements are refused unless Unsafe is set.
func (a *Applier) Apply(ctx context.Context, statements []string, preflight *PreflightResult) error {
	if !a.options.Unsafe {
		for _, w := range preflight.Warnings {
			if w.Level == WarnDanger {
				return fmt.Errorf("refusing to run destructive statement without --unsafe: %s", truncate(w.SQL))
			}
		}
	}

	if a.options.DryRun {
		for _, stmt := range statements {
			a.logger.Infof("[dry-run] %s", truncate(stmt))
		}
		return nil
	}

	if a.options.TxWrap && preflight.IsTransactional {
		return a.applyInTransaction(ctx, statements)
	}
	return a.applySequential(ctx, statements)
}

func (a *Applier) applyInTransaction(ctx context.Context, statements []string) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec %q: %w", truncate(stmt), err)
		}
	}
	return tx.Commit()
}

func (a *Applier) applySequential(ctx context.Context, statements []string) error {
	for _, stmt := range statements {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", truncate(stmt), err)
		}
		a.logger.Debugf("applied: %s", truncate(stmt))
	}
	return nil
}
