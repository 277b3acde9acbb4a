package dbcapabilities

import (
	"sort"
	"strings"
)

// DatabaseID is the canonical identifier for an external database engine.
type DatabaseID string

// DatabaseType is kept as an alias so adapter code reads naturally.
type DatabaseType = DatabaseID

const (
	PostgreSQL DatabaseID = "postgres"
	MySQL      DatabaseID = "mysql"
	SQLServer  DatabaseID = "mssql"
	Oracle     DatabaseID = "oracle"
)

// Capability describes an engine in a way services can consume uniformly.
type Capability struct {
	// Human-friendly product name, e.g. "PostgreSQL".
	Name string `json:"name"`

	// Canonical ID (see DatabaseID constants).
	ID DatabaseID `json:"id"`

	DefaultPort int `json:"defaultPort"`

	// System databases that hold catalog data rather than tenant data.
	SystemDatabases []string `json:"systemDatabases,omitempty"`

	// Schemas excluded from introspection.
	SystemSchemas []string `json:"systemSchemas,omitempty"`

	// Common aliases (URL schemes, driver names) that map to this engine.
	Aliases []string `json:"aliases,omitempty"`
}

// All is a registry of capabilities keyed by the canonical database ID.
var All = map[DatabaseID]Capability{
	PostgreSQL: {
		Name:            "PostgreSQL",
		ID:              PostgreSQL,
		DefaultPort:     5432,
		SystemDatabases: []string{"postgres"},
		SystemSchemas:   []string{"pg_catalog", "information_schema"},
		Aliases:         []string{"postgresql", "pgsql", "pgx"},
	},
	MySQL: {
		Name:            "MySQL",
		ID:              MySQL,
		DefaultPort:     3306,
		SystemDatabases: []string{"mysql"},
		SystemSchemas:   []string{"mysql", "information_schema", "performance_schema", "sys"},
		Aliases:         []string{"mariadb", "aurora-mysql"},
	},
	SQLServer: {
		Name:            "Microsoft SQL Server",
		ID:              SQLServer,
		DefaultPort:     1433,
		SystemDatabases: []string{"master"},
		SystemSchemas:   []string{"sys", "INFORMATION_SCHEMA"},
		Aliases:         []string{"sqlserver", "azure-sql"},
	},
	Oracle: {
		Name:            "Oracle Database",
		ID:              Oracle,
		DefaultPort:     1521,
		SystemDatabases: []string{"CDB$ROOT"},
		SystemSchemas:   []string{"SYS", "SYSTEM"},
		Aliases:         []string{"godror", "oci"},
	},
}

// nameToID is a normalized lookup index from any known name/alias to the canonical DatabaseID.
var nameToID map[string]DatabaseID

func init() {
	nameToID = make(map[string]DatabaseID, len(All)*4)
	for id, c := range All {
		nameToID[strings.ToLower(string(id))] = id
		if c.Name != "" {
			nameToID[strings.ToLower(c.Name)] = id
		}
		for _, a := range c.Aliases {
			if a == "" {
				continue
			}
			nameToID[strings.ToLower(a)] = id
		}
	}
}

// ParseID resolves a canonical id, alias, or product name to a DatabaseID.
func ParseID(name string) (DatabaseID, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", false
	}
	id, ok := nameToID[n]
	return id, ok
}

// Get returns the capability for a canonical ID.
func Get(id DatabaseID) (Capability, bool) {
	c, ok := All[id]
	return c, ok
}

// IsKnown reports whether id is one of the supported engines.
func IsKnown(id DatabaseID) bool {
	_, ok := All[id]
	return ok
}

// DefaultPort returns the engine's default port, or 0 for unknown engines.
func DefaultPort(id DatabaseID) int {
	return All[id].DefaultPort
}

// IDs returns the supported engine IDs in sorted order.
func IDs() []DatabaseID {
	ids := make([]DatabaseID, 0, len(All))
	for id := range All {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
