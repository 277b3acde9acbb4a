package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m *Model)
		wantErr string
	}{
		{name: "valid", mutate: func(m *Model) {}},
		{name: "missing tenant", mutate: func(m *Model) { m.TenantID = "" }, wantErr: "tenantId is required"},
		{name: "no tables", mutate: func(m *Model) { m.Tables = nil }, wantErr: "at least one table is required"},
		{name: "unknown engine", mutate: func(m *Model) { m.EngineKind = "sqlite" }, wantErr: "engineKind"},
		{
			name:    "no columns",
			mutate:  func(m *Model) { m.Tables[RoleCustomers].Columns = nil },
			wantErr: "has no columns",
		},
		{
			name: "duplicate canonical",
			mutate: func(m *Model) {
				c := m.Tables[RoleCustomers]
				c.Columns = append(c.Columns, ColumnMapping{CanonicalName: "nombre", PhysicalName: "other"})
			},
			wantErr: "duplicate canonicalName",
		},
		{
			name:    "injected physical name",
			mutate:  func(m *Model) { m.Tables[RoleCustomers].PhysicalName = "t; DROP TABLE x" },
			wantErr: "invalid physicalName",
		},
		{
			name:    "primary key not a column",
			mutate:  func(m *Model) { m.Tables[RoleCustomers].PrimaryKey = "nope" },
			wantErr: "primaryKey",
		},
		{
			name: "bad relationship",
			mutate: func(m *Model) {
				m.Relationships = []Relationship{{Kind: OneToMany, SourceTable: RoleCustomers, TargetTable: "orders"}}
			},
			wantErr: `unknown table "orders"`,
		},
		{
			name:    "bad pattern",
			mutate:  func(m *Model) { m.Tables[RoleCustomers].Columns[2].Validation.Pattern = "([" },
			wantErr: "invalid pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := customersModel()
			tt.mutate(m)
			err := m.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidSchema)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsIdentifier(t *testing.T) {
	assert.True(t, IsIdentifier("tbl_clientes"))
	assert.True(t, IsIdentifier("dbo.Clientes"))
	assert.True(t, IsIdentifier("#tmp"))
	assert.False(t, IsIdentifier("a b"))
	assert.False(t, IsIdentifier("x'--"))
	assert.False(t, IsIdentifier(""))
	assert.False(t, IsIdentifier("a.b.c"))
}

func TestCloneIsIndependent(t *testing.T) {
	m := customersModel()
	c := m.Clone()

	c.Tables[RoleCustomers].PhysicalName = "changed"
	c.Tables[RoleCustomers].Columns[0].PhysicalName = "changed"
	c.Tables[RoleCustomers].Columns[2].Validation.Pattern = "changed"
	c.QueryTemplates["new"] = "SELECT 1"

	assert.Equal(t, "tbl_clientes", m.Tables[RoleCustomers].PhysicalName)
	assert.Equal(t, "cli_id", m.Tables[RoleCustomers].Columns[0].PhysicalName)
	assert.Equal(t, `^[VEJPGvejpg][0-9]{7,9}$`, m.Tables[RoleCustomers].Columns[2].Validation.Pattern)
	assert.NotContains(t, m.QueryTemplates, "new")
}

func TestDecodeDefaultsAndRules(t *testing.T) {
	doc := `{
		"tenantId": "t1",
		"engineKind": "postgres",
		"tables": {"products": {"physicalName": "inv", "columns": [{"canonicalName": "name", "physicalName": "descr"}]}},
		"validationRules": "cedula must include the letter prefix"
	}`

	m, err := Decode([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, TypeString, m.Tables[RoleProducts].Columns[0].DataType)
	assert.Equal(t, "cedula must include the letter prefix", m.ValidationRules.Notes)
	assert.Equal(t, 1, m.ValidationRules.RuleCount())
	assert.NoError(t, m.Validate())

	var rules ValidationRules
	require.NoError(t, json.Unmarshal([]byte(`{"maxDiscount": 10, "currency": "USD"}`), &rules))
	assert.Len(t, rules.Rules, 2)
	assert.Empty(t, rules.Notes)
}

func TestEncodeDecodeKeepsKeys(t *testing.T) {
	m := customersModel()
	data, err := Encode(m)
	require.NoError(t, err)

	back, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, m.TenantID, back.TenantID)
	assert.Equal(t, m.Roles(), back.Roles())
	assert.Equal(t, m.TemplateNames(), back.TemplateNames())
}

func TestQualified(t *testing.T) {
	table := customersModel().Tables[RoleCustomers]

	q, ok := table.Qualified("cedula")
	require.True(t, ok)
	assert.Equal(t, "tbl_clientes.cli_documento_identidad", q)

	_, ok = table.Qualified("missing")
	assert.False(t, ok)
}
