package diff

import (
	"regexp"
	"strings"
)

var reCollate = regexp.MustCompile(`(?i)\s*COLLATE\s+\w+`)

// normalizeField applies the tolerant field-comparison rules: strip
// COLLATE clauses, and fold the "DEFAULT '' NOT NULL" / "NOT NULL" tail
// variants of an otherwise-identical definition down to a bare form.
func normalizeField(def string) string {
	s := reCollate.ReplaceAllString(def, "")
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, " DEFAULT '' NOT NULL")
	s = strings.TrimSuffix(s, " NOT NULL")
	return strings.TrimSpace(s)
}

var reTypePrecision = regexp.MustCompile(`^(\w+)\(\d+(?:,\d+)?\)(.*)$`)

// baseTypeAndTail splits "varchar(20) NOT NULL" into ("varchar", " NOT
// NULL"), dropping the precision so two widenings of the same base type
// compare equal under tolerant mode.
func baseTypeAndTail(def string) (base, tail string, ok bool) {
	m := reTypePrecision.FindStringSubmatch(def)
	if m == nil {
		return "", "", false
	}
	return strings.ToLower(m[1]), m[2], true
}

// fieldsEqual compares two column definitions, applying the tolerant
// normalization rules when tolerant is set.
func fieldsEqual(oldDef, newDef string, tolerant bool) bool {
	if oldDef == newDef {
		return true
	}
	if !tolerant {
		return false
	}
	a, b := normalizeField(oldDef), normalizeField(newDef)
	if a == b {
		return true
	}
	aBase, aTail, aOK := baseTypeAndTail(a)
	bBase, bTail, bOK := baseTypeAndTail(b)
	if aOK && bOK && aBase == bBase && aTail == bTail {
		return true
	}
	return false
}

var reAutoIncrementOpt = regexp.MustCompile(`(?i)\s*AUTO_INCREMENT=\d+`)
var reCollateOpt = regexp.MustCompile(`(?i)\s*COLLATE=\S+`)

// normalizeOptions strips AUTO_INCREMENT=n and COLLATE=x from a table
// options string, for tolerant options comparison.
func normalizeOptions(opts string) string {
	s := reAutoIncrementOpt.ReplaceAllString(opts, "")
	s = reCollateOpt.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func optionsEqual(oldOpts, newOpts string, tolerant bool) bool {
	if oldOpts == newOpts {
		return true
	}
	if !tolerant {
		return false
	}
	return normalizeOptions(oldOpts) == normalizeOptions(newOpts)
}
