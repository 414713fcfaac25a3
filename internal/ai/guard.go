package ai

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	codeFence   = regexp.MustCompile("(?is)```(?:sql)?\\s*(.*?)(?:```|$)")
	sqlPrefix   = regexp.MustCompile(`(?i)^sql\s+`)
	limitClause = regexp.MustCompile(`(?i)\bLIMIT\s+\d+`)
	writeWords  = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|DROP|ALTER|TRUNCATE|CREATE|RENAME|ATTACH|DETACH|OPTIMIZE|GRANT|REVOKE|KILL)\b`)
	tableRef    = regexp.MustCompile("(?i)\\b(?:FROM|JOIN)\\s+([`\"\\w.]+)")
)

// ErrUnsafeSQL is returned for generated queries outside the read-only policy.
var ErrUnsafeSQL = errors.New("unsafe SQL")

// sanitizeSQL extracts the query from a model reply: the first code fence if
// there is one, without a leading "sql" tag or trailing semicolons.
func sanitizeSQL(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFence.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	s = sqlPrefix.ReplaceAllString(strings.TrimSpace(s), "")
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), ";"))
}

// validateSQL accepts a single SELECT whose every FROM and JOIN reads the
// events table, bare or qualified with database.
func validateSQL(s, database, table string) error {
	if s == "" {
		return fmt.Errorf("%w: empty query", ErrUnsafeSQL)
	}
	if strings.Contains(s, ";") {
		return fmt.Errorf("%w: multiple statements", ErrUnsafeSQL)
	}
	if !strings.HasPrefix(strings.ToUpper(s), "SELECT") {
		return fmt.Errorf("%w: only SELECT is allowed", ErrUnsafeSQL)
	}
	if w := writeWords.FindString(s); w != "" {
		return fmt.Errorf("%w: keyword %s", ErrUnsafeSQL, strings.ToUpper(w))
	}

	refs := tableRef.FindAllStringSubmatch(s, -1)
	if len(refs) == 0 {
		return fmt.Errorf("%w: query must read %s.%s", ErrUnsafeSQL, database, table)
	}
	qualified := strings.ToLower(database + "." + table)
	for _, ref := range refs {
		name := strings.ToLower(strings.NewReplacer("`", "", `"`, "").Replace(ref[1]))
		if name != strings.ToLower(table) && name != qualified {
			return fmt.Errorf("%w: table %s is not %s", ErrUnsafeSQL, ref[1], qualified)
		}
	}
	return nil
}

// ensureLimit appends LIMIT n when the query has none.
func ensureLimit(s string, n int) string {
	if limitClause.MatchString(s) {
		return s
	}
	return fmt.Sprintf("%s LIMIT %d", s, n)
}
