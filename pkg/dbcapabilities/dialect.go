package dbcapabilities

import (
	"fmt"
	"strconv"
)

// Dialect captures the SQL differences the query builder has to account for.
type Dialect struct {
	ID DatabaseID

	placeholder  func(n int) string
	quote        [2]string
	lengthFunc   string
	positionFunc func(haystack, needle string) string
	limitSuffix  func(n int) string
}

var dialects = map[DatabaseID]Dialect{
	MySQL: {
		ID:          MySQL,
		quote:       [2]string{"`", "`"},
		placeholder: func(int) string { return "?" },
		lengthFunc:  "CHAR_LENGTH",
		positionFunc: func(haystack, needle string) string {
			return fmt.Sprintf("LOCATE(%s, %s)", needle, haystack)
		},
		limitSuffix: func(n int) string { return "LIMIT " + strconv.Itoa(n) },
	},
	PostgreSQL: {
		ID:          PostgreSQL,
		quote:       [2]string{`"`, `"`},
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		lengthFunc:  "LENGTH",
		positionFunc: func(haystack, needle string) string {
			return fmt.Sprintf("STRPOS(%s, %s)", haystack, needle)
		},
		limitSuffix: func(n int) string { return "LIMIT " + strconv.Itoa(n) },
	},
	SQLServer: {
		ID:          SQLServer,
		quote:       [2]string{"[", "]"},
		placeholder: func(n int) string { return "@p" + strconv.Itoa(n) },
		lengthFunc:  "LEN",
		positionFunc: func(haystack, needle string) string {
			return fmt.Sprintf("CHARINDEX(%s, %s)", needle, haystack)
		},
		limitSuffix: func(n int) string { return fmt.Sprintf("OFFSET 0 ROWS FETCH NEXT %d ROWS ONLY", n) },
	},
	Oracle: {
		ID:          Oracle,
		quote:       [2]string{`"`, `"`},
		placeholder: func(n int) string { return ":" + strconv.Itoa(n) },
		lengthFunc:  "LENGTH",
		positionFunc: func(haystack, needle string) string {
			return fmt.Sprintf("INSTR(%s, %s)", haystack, needle)
		},
		limitSuffix: func(n int) string { return fmt.Sprintf("FETCH FIRST %d ROWS ONLY", n) },
	},
}

// DialectFor returns the dialect for an engine. Unknown engines get the MySQL
// dialect since "?" placeholders and LIMIT are the most widely accepted.
func DialectFor(id DatabaseID) Dialect {
	if d, ok := dialects[id]; ok {
		return d
	}
	return dialects[MySQL]
}

// Placeholder returns the bind marker for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	return d.placeholder(n)
}

// QuoteIdentifier quotes an alias so the engine keeps its exact case.
func (d Dialect) QuoteIdentifier(name string) string {
	return d.quote[0] + name + d.quote[1]
}

// Length wraps expr in the engine's character length function.
func (d Dialect) Length(expr string) string {
	return d.lengthFunc + "(" + expr + ")"
}

// Position returns an expression yielding the 1-based index of needle in haystack, 0 if absent.
func (d Dialect) Position(haystack, needle string) string {
	return d.positionFunc(haystack, needle)
}

// LimitSuffix returns the clause appended after ORDER BY to cap the result at n rows.
func (d Dialect) LimitSuffix(n int) string {
	return d.limitSuffix(n)
}
