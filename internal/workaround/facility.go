// Package workaround implements the index-workaround stored procedure: a
// single lazily-emitted MySQL procedure that every ADD/DROP INDEX
// statement in a plan is routed through, so that two passes independently
// deciding to touch the same index don't collide.
package workaround

import (
	"fmt"
	"hash/fnv"
)

// Facility owns the procedure name for one plan-generation run and tracks
// whether any caller actually used it. The name is derived from a
// deterministic hash of a seed identifying the run's input pair rather than
// real randomness: the engine's output must be a pure function of its
// inputs, so "unique per run" is satisfied by hashing the inputs instead
// of calling into a PRNG.
type Facility struct {
	name string
	used bool
}

// New builds a Facility whose procedure name is derived from seed, which
// callers pass as the concatenation of the source and target schema texts
// (or any other value that is stable across repeated runs on identical
// input and distinct across runs on different input).
func New(seed string) *Facility {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	return &Facility{name: fmt.Sprintf("workaround_%016x", h.Sum64())}
}

// Used reports whether Call has ever been invoked on this facility.
func (f *Facility) Used() bool { return f.used }

// Name returns the procedure name, quoted-identifier free (callers wrap
// it themselves; MySQL procedure names never need backtick-quoting here
// since they are always the fixed `workaround_<hex>` shape).
func (f *Facility) Name() string { return f.name }

// Call renders a CALL statement for the given table/index/action, marking
// the facility used. indexStmt is the full index DDL text (CREATE INDEX,
// DROP INDEX, or ALTER TABLE ... ADD/DROP INDEX) the procedure will
// conditionally execute.
func (f *Facility) Call(table, index, indexStmt, action string) string {
	f.used = true
	return fmt.Sprintf(
		"CALL %s(%s, %s, %s, %s);",
		f.name,
		quoteLiteral(table),
		quoteLiteral(index),
		quoteLiteral(indexStmt),
		quoteLiteral(action),
	)
}

// CreateProcedure renders the CREATE PROCEDURE text. It consults
// INFORMATION_SCHEMA.STATISTICS for the given table/index pair and only
// PREPAREs/EXECUTEs/DEALLOCATEs index_stmt when the requested action
// ('create' needs it absent, 'drop' needs it present) actually applies,
// making every wrapped ADD/DROP INDEX idempotent.
func (f *Facility) CreateProcedure() string {
	return fmt.Sprintf(`CREATE PROCEDURE %s(given_table VARCHAR(64), given_index VARCHAR(64), index_stmt TEXT, index_action VARCHAR(10))
BEGIN
    DECLARE idx_count INT DEFAULT 0;

    SELECT COUNT(*) INTO idx_count
    FROM INFORMATION_SCHEMA.STATISTICS
    WHERE TABLE_SCHEMA = DATABASE()
      AND TABLE_NAME = given_table
      AND INDEX_NAME = given_index;

    IF (index_action = 'create' AND idx_count = 0) OR (index_action = 'drop' AND idx_count > 0) THEN
        SET @workaround_stmt = index_stmt;
        PREPARE workaround_prepared FROM @workaround_stmt;
        EXECUTE workaround_prepared;
        DEALLOCATE PREPARE workaround_prepared;
    END IF;
END;`, f.name)
}

// DropProcedure renders the DROP PROCEDURE text.
func (f *Facility) DropProcedure() string {
	return fmt.Sprintf("DROP PROCEDURE %s;", f.name)
}

func quoteLiteral(s string) string {
	escaped := ""
	for _, r := range s {
		switch r {
		case '\'':
			escaped += "\\'"
		case '\\':
			escaped += "\\\\"
		default:
			escaped += string(r)
		}
	}
	return "'" + escaped + "'"
}
