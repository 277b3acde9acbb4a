// Package introspect reads the structure of a live tenant database and
// suggests a mapping for it.
package introspect

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/telehostca/chatbot-backend/pkg/adapter"
	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
	"github.com/telehostca/chatbot-backend/pkg/logger"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/schema"
)

// Prober opens a throwaway connection and runs fn on it. The connection
// manager implements it.
type Prober interface {
	Probe(ctx context.Context, creds adapter.ConnectionConfig, fn func(ctx context.Context, conn adapter.Connection) error) error
}

// Reference is the target of a foreign key.
type Reference struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// DetectedColumn is one column as reported by the engine catalog.
type DetectedColumn struct {
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	IsPrimary  bool       `json:"isPrimary"`
	IsForeign  bool       `json:"isForeign"`
	IsNullable bool       `json:"isNullable"`
	Default    string     `json:"default,omitempty"`
	MaxLength  int        `json:"maxLength,omitempty"`
	References *Reference `json:"references,omitempty"`
}

// DetectedTable is one base table with its columns in ordinal order.
type DetectedTable struct {
	Name       string           `json:"name"`
	PrimaryKey string           `json:"primaryKey,omitempty"`
	Purpose    string           `json:"purpose"`
	Columns    []DetectedColumn `json:"columns"`
}

// Detection is the result of introspecting one database.
type Detection struct {
	Engine   dbcapabilities.DatabaseID `json:"engine"`
	Database string                    `json:"database"`
	Tables   []DetectedTable           `json:"tables"`
	Patterns []string                  `json:"patterns"`
}

// Introspector discovers tables through short-lived probe connections.
type Introspector struct {
	prober Prober
	logger *logger.Logger
}

// New creates an introspector. log may be nil.
func New(prober Prober, log *logger.Logger) *Introspector {
	return &Introspector{prober: prober, logger: log}
}

// Detect lists the base tables of the database creds points at. The probe
// connection is always released, whatever the outcome.
func (i *Introspector) Detect(ctx context.Context, creds adapter.ConnectionConfig) (*Detection, error) {
	query, ok := ColumnQuery(creds.Engine)
	if !ok {
		return nil, fmt.Errorf("%w: introspection is not supported for %q", adapter.ErrInvalidConfiguration, creds.Engine)
	}

	var rows []adapter.Row
	err := i.prober.Probe(ctx, creds, func(ctx context.Context, conn adapter.Connection) error {
		var qerr error
		rows, qerr = conn.Query(ctx, query)
		if qerr != nil {
			return adapter.NewQueryError(creds.Engine, creds.TenantID, qerr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	tables := GroupRows(rows)
	det := &Detection{
		Engine:   creds.Engine,
		Database: creds.DatabaseName,
		Tables:   tables,
		Patterns: DetectPatterns(tables),
	}
	if i.logger != nil {
		i.logger.Info("Introspected %s database %s: %d tables, patterns %v", creds.Engine, creds.DatabaseName, len(tables), det.Patterns)
	}
	return det, nil
}

// Suggest runs Detect and builds a suggested mapping from the result.
func (i *Introspector) Suggest(ctx context.Context, creds adapter.ConnectionConfig) (*Detection, *schema.Model, error) {
	det, err := i.Detect(ctx, creds)
	if err != nil {
		return nil, nil, err
	}
	return det, GenerateSuggestedConfig(det.Tables, creds, det.Patterns), nil
}

// GroupRows folds the flat catalog rows into tables sorted by name. Row keys
// are matched case-insensitively since Oracle reports aliases in upper case.
func GroupRows(rows []adapter.Row) []DetectedTable {
	byName := make(map[string]*DetectedTable)
	seen := make(map[string]map[string]bool)

	for _, raw := range rows {
		row := lowerKeys(raw)
		tableName := asString(row["table_name"])
		columnName := asString(row["column_name"])
		if tableName == "" || columnName == "" {
			continue
		}

		t, ok := byName[tableName]
		if !ok {
			t = &DetectedTable{Name: tableName}
			byName[tableName] = t
			seen[tableName] = make(map[string]bool)
		}
		// A column with several foreign keys appears once per key.
		if seen[tableName][columnName] {
			continue
		}
		seen[tableName][columnName] = true

		col := DetectedColumn{
			Name:       columnName,
			Type:       strings.ToLower(asString(row["data_type"])),
			IsPrimary:  asBool(row["is_primary"]),
			IsNullable: strings.EqualFold(asString(row["is_nullable"]), "YES"),
			Default:    strings.TrimSpace(asString(row["column_default"])),
			MaxLength:  asInt(row["max_length"]),
		}
		if refTable := asString(row["referenced_table"]); refTable != "" {
			col.IsForeign = true
			col.References = &Reference{Table: refTable, Column: asString(row["referenced_column"])}
		}
		if col.IsPrimary && t.PrimaryKey == "" {
			t.PrimaryKey = col.Name
		}
		t.Columns = append(t.Columns, col)
	}

	tables := make([]DetectedTable, 0, len(byName))
	for _, t := range byName {
		t.Purpose = EstimatePurpose(*t)
		tables = append(tables, *t)
	}
	sort.Slice(tables, func(a, b int) bool { return tables[a].Name < tables[b].Name })
	return tables
}

func lowerKeys(row adapter.Row) adapter.Row {
	out := make(adapter.Row, len(row))
	for k, v := range row {
		out[strings.ToLower(k)] = v
	}
	return out
}

func asString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func asInt(v interface{}) int {
	switch x := v.(type) {
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	case uint64:
		return int(x)
	case float64:
		return int(x)
	default:
		n, err := strconv.Atoi(strings.TrimSpace(asString(v)))
		if err != nil {
			return 0
		}
		return n
	}
}

func asBool(v interface{}) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	switch strings.ToLower(asString(v)) {
	case "1", "true", "yes", "y", "t":
		return true
	}
	return asInt(v) != 0
}
