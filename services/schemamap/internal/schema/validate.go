package schema

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
)

// Physical identifiers are written into SQL text unquoted, so they are
// restricted to plain (optionally schema-qualified) names.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_#$][A-Za-z0-9_#$]*(\.[A-Za-z_#$][A-Za-z0-9_#$]*)?$`)

// Placeholder names used inside {{role}} and {{role.column}}.
var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether s can be inlined into SQL as a table or column name.
func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// Normalize fills defaults that are implied by the document: a missing
// dataType means string.
func (m *Model) Normalize() {
	for _, t := range m.Tables {
		if t == nil {
			continue
		}
		for i := range t.Columns {
			if t.Columns[i].DataType == "" {
				t.Columns[i].DataType = TypeString
			}
		}
	}
}

// Validate checks the structural invariants of a model and returns an
// *InvalidSchemaError listing every problem found.
func (m *Model) Validate() error {
	if m == nil {
		return &InvalidSchemaError{Problems: []string{"model is required"}}
	}

	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if m.TenantID == "" {
		add("tenantId is required")
	}
	if !dbcapabilities.IsKnown(m.EngineKind) {
		add("engineKind %q is not one of mysql, postgres, mssql, oracle", m.EngineKind)
	}
	if len(m.Tables) == 0 {
		add("at least one table is required")
	}

	for _, role := range m.Roles() {
		t := m.Tables[role]
		if !namePattern.MatchString(role) {
			add("table role %q must be a plain name", role)
		}
		if t == nil {
			add("table %q is empty", role)
			continue
		}
		if !IsIdentifier(t.PhysicalName) {
			add("table %q has invalid physicalName %q", role, t.PhysicalName)
		}
		if len(t.Columns) == 0 {
			add("table %q has no columns", role)
		}

		seen := make(map[string]bool, len(t.Columns))
		for _, c := range t.Columns {
			if !namePattern.MatchString(c.CanonicalName) {
				add("table %q has invalid canonicalName %q", role, c.CanonicalName)
			} else if seen[c.CanonicalName] {
				add("table %q has duplicate canonicalName %q", role, c.CanonicalName)
			}
			seen[c.CanonicalName] = true

			if !IsIdentifier(c.PhysicalName) {
				add("column %s.%s has invalid physicalName %q", role, c.CanonicalName, c.PhysicalName)
			}
			if c.DataType != "" && !c.DataType.Valid() {
				add("column %s.%s has unknown dataType %q", role, c.CanonicalName, c.DataType)
			}
			if c.Validation != nil && c.Validation.Pattern != "" {
				if _, err := regexp.Compile(c.Validation.Pattern); err != nil {
					add("column %s.%s has invalid pattern: %v", role, c.CanonicalName, err)
				}
			}
		}

		if t.PrimaryKey != "" {
			if _, ok := t.PhysicalColumn(t.PrimaryKey); !ok {
				add("table %q primaryKey %q is not one of its columns", role, t.PrimaryKey)
			}
		}
	}

	for i, r := range m.Relationships {
		switch r.Kind {
		case OneToOne, OneToMany, ManyToMany:
		default:
			add("relationship %d has unknown kind %q", i, r.Kind)
		}
		for _, role := range []string{r.SourceTable, r.TargetTable} {
			if _, ok := m.Table(role); !ok {
				add("relationship %d references unknown table %q", i, role)
			}
		}
	}

	if len(problems) > 0 {
		return &InvalidSchemaError{TenantID: m.TenantID, Problems: problems}
	}
	return nil
}

// Clone returns a deep copy of the model's structure. Scalar default and
// allowed values are shared since they are never mutated.
func (m *Model) Clone() *Model {
	if m == nil {
		return nil
	}
	out := *m

	if m.Tables != nil {
		out.Tables = make(map[string]*TableSchema, len(m.Tables))
		for role, t := range m.Tables {
			out.Tables[role] = t.clone()
		}
	}
	if m.Relationships != nil {
		out.Relationships = append([]Relationship(nil), m.Relationships...)
	}
	out.QueryTemplates = cloneStrings(m.QueryTemplates)
	out.BusinessLogic = cloneStrings(m.BusinessLogic)
	if m.ValidationRules.Rules != nil {
		out.ValidationRules.Rules = make(map[string]interface{}, len(m.ValidationRules.Rules))
		for k, v := range m.ValidationRules.Rules {
			out.ValidationRules.Rules[k] = v
		}
	}
	return &out
}

func (t *TableSchema) clone() *TableSchema {
	if t == nil {
		return nil
	}
	out := *t
	out.Columns = make([]ColumnMapping, len(t.Columns))
	for i, c := range t.Columns {
		if c.Validation != nil {
			rule := *c.Validation
			rule.AllowedValues = append([]interface{}(nil), c.Validation.AllowedValues...)
			c.Validation = &rule
		}
		out.Columns[i] = c
	}
	if t.Search != nil {
		s := *t.Search
		out.Search = &s
	}
	return &out
}

func cloneStrings(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Decode parses a stored mapping document.
func Decode(data []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode mapping document: %w", err)
	}
	m.Normalize()
	return &m, nil
}

// Encode serializes a model as a mapping document.
func Encode(m *Model) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mapping document: %w", err)
	}
	return data, nil
}

// UnmarshalJSON accepts either a plain string of notes or an object. Objects
// without notes/rules keys are kept whole as structured rules.
func (v *ValidationRules) UnmarshalJSON(data []byte) error {
	var notes string
	if err := json.Unmarshal(data, &notes); err == nil {
		*v = ValidationRules{Notes: notes}
		return nil
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("validationRules must be a string or an object: %w", err)
	}
	if raw == nil {
		*v = ValidationRules{}
		return nil
	}

	_, hasNotes := raw["notes"]
	_, hasRules := raw["rules"]
	if !hasNotes && !hasRules {
		*v = ValidationRules{Rules: raw}
		return nil
	}

	out := ValidationRules{}
	if n, ok := raw["notes"].(string); ok {
		out.Notes = n
	}
	if r, ok := raw["rules"].(map[string]interface{}); ok {
		out.Rules = r
	}
	*v = out
	return nil
}
