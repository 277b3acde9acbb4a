// Package dbcapabilities describes the external database engines a tenant can
// connect to: canonical ids, aliases, default ports and the SQL dialect facts
// the query builder needs (placeholder style, row limiting, string functions).
//
//	id, ok := dbcapabilities.ParseID("postgresql")
//	d := dbcapabilities.DialectFor(id)
//	d.Placeholder(1) // "$1"
package dbcapabilities
