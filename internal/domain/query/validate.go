package query

import (
	"fmt"
	"regexp"
	"strings"
)

var forbiddenRe = regexp.MustCompile(`(?i)\b(DROP|DELETE|UPDATE|INSERT|CREATE|ALTER|TRUNCATE|GRANT|REVOKE|MERGE)\b`)

// Validate rejects templates that contain forbidden statements. Words inside
// quoted literals and comments are ignored.
func Validate(sql string) error {
	mask := literalMask(sql)
	var b strings.Builder
	b.Grow(len(sql))
	for i := 0; i < len(sql); i++ {
		if mask[i] {
			b.WriteByte(' ')
			continue
		}
		b.WriteByte(sql[i])
	}
	if m := forbiddenRe.FindString(b.String()); m != "" {
		return fmt.Errorf("%w: %s", ErrForbiddenStatement, strings.ToUpper(m))
	}
	return nil
}
