// Package schema holds the canonical schema model: how one tenant's physical
// tables and columns map onto the vocabulary the rest of the platform uses.
package schema

import (
	"sort"

	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
)

// DataType is the canonical type of a mapped column.
type DataType string

const (
	TypeString  DataType = "string"
	TypeNumber  DataType = "number"
	TypeDate    DataType = "date"
	TypeBoolean DataType = "boolean"
	TypeJSON    DataType = "json"
)

// Valid reports whether t is one of the canonical data types.
func (t DataType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeDate, TypeBoolean, TypeJSON:
		return true
	}
	return false
}

// RelationshipKind describes the cardinality between two mapped tables.
type RelationshipKind string

const (
	OneToOne   RelationshipKind = "one-to-one"
	OneToMany  RelationshipKind = "one-to-many"
	ManyToMany RelationshipKind = "many-to-many"
)

// Well-known table roles. Tenants may define arbitrary additional roles.
const (
	RoleCustomers      = "customers"
	RoleProducts       = "products"
	RoleDocumentHeader = "documentHeader"
	RoleDocumentLines  = "documentLines"
	RolePaymentMethods = "paymentMethods"
)

// Model is the mapping document for one tenant.
type Model struct {
	TenantID    string                    `json:"tenantId"`
	EngineKind  dbcapabilities.DatabaseID `json:"engineKind"`
	Description string                    `json:"description,omitempty"`

	Tables         map[string]*TableSchema `json:"tables"`
	Relationships  []Relationship          `json:"relationships,omitempty"`
	QueryTemplates map[string]string       `json:"queryTemplates,omitempty"`

	// Guidance consumed outside the engine; stored and returned verbatim.
	ValidationRules       ValidationRules   `json:"validationRules,omitempty"`
	OperatingInstructions string            `json:"operatingInstructions,omitempty"`
	BusinessLogic         map[string]string `json:"businessLogic,omitempty"`

	// AllowWriteTemplates permits named templates that are not SELECT/WITH statements.
	AllowWriteTemplates bool `json:"allowWriteTemplates,omitempty"`
}

// ValidationRules is free-form guidance plus named structured rules.
type ValidationRules struct {
	Notes string                 `json:"notes,omitempty"`
	Rules map[string]interface{} `json:"rules,omitempty"`
}

// RuleCount is the number of structured and free-text rules, for admin summaries.
func (v ValidationRules) RuleCount() int {
	n := len(v.Rules)
	if v.Notes != "" {
		n++
	}
	return n
}

// TableSchema maps one canonical table role to a physical table.
type TableSchema struct {
	PhysicalName string          `json:"physicalName"`
	PrimaryKey   string          `json:"primaryKey,omitempty"`
	Purpose      string          `json:"purpose,omitempty"`
	Columns      []ColumnMapping `json:"columns"`
	Search       *SearchConfig   `json:"search,omitempty"`
}

// ColumnMapping maps a canonical column name to a physical column.
type ColumnMapping struct {
	CanonicalName string      `json:"canonicalName"`
	PhysicalName  string      `json:"physicalName"`
	DataType      DataType    `json:"dataType"`
	Required      bool        `json:"required,omitempty"`
	DefaultValue  interface{} `json:"defaultValue,omitempty"`
	Validation    *ColumnRule `json:"validation,omitempty"`
	Description   string      `json:"description,omitempty"`
}

// ColumnRule holds the optional per-column validation rules. Nil fields are unset.
type ColumnRule struct {
	Pattern       string        `json:"pattern,omitempty"`
	MinLength     *int          `json:"minLength,omitempty"`
	MaxLength     *int          `json:"maxLength,omitempty"`
	MinValue      *float64      `json:"minValue,omitempty"`
	MaxValue      *float64      `json:"maxValue,omitempty"`
	AllowedValues []interface{} `json:"allowedValues,omitempty"`
}

// SearchConfig names the canonical columns the free-text search path uses.
type SearchConfig struct {
	Column      string `json:"column,omitempty"`
	StockColumn string `json:"stockColumn,omitempty"`
	BrandColumn string `json:"brandColumn,omitempty"`
	MinStock    *int   `json:"minStock,omitempty"`
}

// Relationship links a column of one role to a column of another.
type Relationship struct {
	Kind         RelationshipKind `json:"kind"`
	SourceTable  string           `json:"sourceTable"`
	SourceColumn string           `json:"sourceColumn"`
	TargetTable  string           `json:"targetTable"`
	TargetColumn string           `json:"targetColumn"`
}

// Table returns the table mapped to role.
func (m *Model) Table(role string) (*TableSchema, bool) {
	if m == nil || m.Tables == nil {
		return nil, false
	}
	t, ok := m.Tables[role]
	return t, ok && t != nil
}

// Roles returns the table roles in sorted order.
func (m *Model) Roles() []string {
	roles := make([]string, 0, len(m.Tables))
	for role := range m.Tables {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// TemplateNames returns the query template names in sorted order.
func (m *Model) TemplateNames() []string {
	names := make([]string, 0, len(m.QueryTemplates))
	for name := range m.QueryTemplates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Column returns the column whose canonical name matches.
func (t *TableSchema) Column(canonical string) (*ColumnMapping, bool) {
	for i := range t.Columns {
		if t.Columns[i].CanonicalName == canonical {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// PhysicalColumn returns the column whose physical name matches.
func (t *TableSchema) PhysicalColumn(physical string) (*ColumnMapping, bool) {
	for i := range t.Columns {
		if t.Columns[i].PhysicalName == physical {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Qualified returns physicalTable.physicalColumn for a canonical column.
func (t *TableSchema) Qualified(canonical string) (string, bool) {
	c, ok := t.Column(canonical)
	if !ok {
		return "", false
	}
	return t.PhysicalName + "." + c.PhysicalName, true
}
