package query

import (
	"regexp"
	"strings"
)

var writeKeywordRe = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|MERGE|DROP|ALTER|CREATE|TRUNCATE|GRANT|REVOKE|EXEC|EXECUTE|CALL)\b`)

// IsReadOnly reports whether sql is a single SELECT or WITH statement that
// does not modify data. Comments and string literals are ignored.
func IsReadOnly(sql string) bool {
	code := stripLiteralsAndComments(sql)

	trimmed := strings.TrimSpace(code)
	trimmed = strings.TrimRight(trimmed, "; \t\r\n")
	if strings.Contains(trimmed, ";") {
		return false
	}
	trimmed = strings.TrimLeft(trimmed, "( \t\r\n")

	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH":
	default:
		return false
	}
	return !writeKeywordRe.MatchString(trimmed)
}

// stripLiteralsAndComments blanks out quoted strings and SQL comments so
// keyword checks only see code.
func stripLiteralsAndComments(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))

	for i := 0; i < len(sql); i++ {
		switch {
		case sql[i] == '\'':
			end := literalEnd(sql, i)
			if end < 0 {
				return b.String()
			}
			b.WriteString("''")
			i = end
		case strings.HasPrefix(sql[i:], "--"):
			nl := strings.IndexByte(sql[i:], '\n')
			if nl < 0 {
				return b.String()
			}
			b.WriteByte(' ')
			i += nl
		case strings.HasPrefix(sql[i:], "/*"):
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				return b.String()
			}
			b.WriteByte(' ')
			i += end + 3
		default:
			b.WriteByte(sql[i])
		}
	}
	return b.String()
}
