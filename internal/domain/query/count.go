package query

import (
	"fmt"
	"strings"
)

// BuildCount derives a row-counting variant of a SELECT template.
//
// With a top-level GROUP BY the body up to the first ORDER BY or LIMIT is
// wrapped as a subquery under SELECT COUNT(1). Otherwise the select list is
// replaced by COUNT(1) and the text is cut at the first ORDER BY or LIMIT.
// Placeholders are left untouched so the result still goes through Format.
func BuildCount(template string) (string, error) {
	sql := strings.TrimSpace(template)
	mask := literalMask(sql)

	selects := topLevel(sql, mask, "select")
	if len(selects) == 0 {
		return "", fmt.Errorf("%w: %q", ErrNotSelect, excerpt(sql, 0))
	}
	sel := selects[0]

	cut := len(sql)
	for _, words := range [][]string{{"order", "by"}, {"limit"}} {
		for _, at := range topLevel(sql, mask, words...) {
			if at > sel && at < cut {
				cut = at
				break
			}
		}
	}

	for _, at := range topLevel(sql, mask, "group", "by") {
		if at > sel && at < cut {
			return "SELECT COUNT(1) FROM (" + strings.TrimSpace(sql[:cut]) + ") AS TEMP", nil
		}
	}

	from := -1
	for _, at := range topLevel(sql, mask, "from") {
		if at > sel {
			from = at
			break
		}
	}
	if from < 0 || from > cut {
		return "", fmt.Errorf("%w: no FROM in %q", ErrNotSelect, excerpt(sql, sel))
	}
	return strings.TrimSpace(sql[:sel] + "SELECT COUNT(1) " + sql[from:cut]), nil
}
