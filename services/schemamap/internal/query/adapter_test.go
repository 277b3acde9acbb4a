package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/schema"
)

type staticModels map[string]*schema.Model

func (s staticModels) Get(tenantID string) *schema.Model {
	return s[tenantID]
}

func customersModel(engine dbcapabilities.DatabaseID) *schema.Model {
	return &schema.Model{
		TenantID:   "tenant-1",
		EngineKind: engine,
		Tables: map[string]*schema.TableSchema{
			schema.RoleCustomers: {
				PhysicalName: "tbl_clientes",
				PrimaryKey:   "cli_id",
				Columns: []schema.ColumnMapping{
					{CanonicalName: "id", PhysicalName: "cli_id", DataType: schema.TypeNumber},
					{CanonicalName: "nombre", PhysicalName: "cli_nombre_completo", DataType: schema.TypeString, Required: true},
					{CanonicalName: "cedula", PhysicalName: "cli_documento_identidad", DataType: schema.TypeString, Required: true},
				},
			},
			schema.RoleProducts: {
				PhysicalName: "inventario",
				Columns: []schema.ColumnMapping{
					{CanonicalName: "name", PhysicalName: "descripcion", DataType: schema.TypeString},
					{CanonicalName: "stock", PhysicalName: "existencia", DataType: schema.TypeNumber},
				},
			},
		},
		QueryTemplates: map[string]string{
			"buscarCliente":  "SELECT {{customers.nombre}} FROM {{customers}} WHERE {{customers.cedula}} = '{cedula}'",
			"buscarProducto": "SELECT {{products.name}} FROM {{products}} WHERE LOWER({{products.name}}) LIKE '%{term}%' AND {{products.stock}} >= {min}",
			"porNombre":      "SELECT {{customers.id}} FROM {{customers}} WHERE {{customers.nombre}} = 'O''Brien {suffix}'",
			"correo":         "SELECT {{customers.email}} FROM {{customers}}",
			"proveedores":    "SELECT * FROM {{suppliers}}",
			"borrar":         "DELETE FROM {{customers}} WHERE {{customers.id}} = {id}",
		},
	}
}

func newTestAdapter(engine dbcapabilities.DatabaseID) *Adapter {
	return NewAdapter(staticModels{"tenant-1": customersModel(engine)})
}

func TestResolveCustomerLookup(t *testing.T) {
	a := newTestAdapter(dbcapabilities.MySQL)

	sql, err := a.Resolve("tenant-1", "buscarCliente", map[string]interface{}{"cedula": "V12345678"})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT tbl_clientes.cli_nombre_completo FROM tbl_clientes WHERE tbl_clientes.cli_documento_identidad = 'V12345678'",
		sql)
	assert.NotContains(t, sql, "{{")
}

func TestResolveEscapesQuotes(t *testing.T) {
	a := newTestAdapter(dbcapabilities.MySQL)

	sql, err := a.Resolve("tenant-1", "buscarCliente", map[string]interface{}{"cedula": "x' OR '1'='1"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(sql, "= 'x'' OR ''1''=''1'"))
}

func TestResolveNilIsBareNull(t *testing.T) {
	a := newTestAdapter(dbcapabilities.MySQL)

	sql, err := a.Resolve("tenant-1", "buscarCliente", map[string]interface{}{"cedula": nil})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(sql, "cli_documento_identidad = NULL"), sql)
}

func TestResolveErrors(t *testing.T) {
	a := newTestAdapter(dbcapabilities.MySQL)

	tests := []struct {
		name     string
		tenant   string
		template string
		params   map[string]interface{}
		wantErr  error
	}{
		{"unknown tenant", "nobody", "buscarCliente", nil, schema.ErrUnknownTenant},
		{"unknown template", "tenant-1", "noExiste", nil, schema.ErrUnknownTemplate},
		{"unknown column", "tenant-1", "correo", nil, schema.ErrUnresolvedPlaceholder},
		{"unknown role", "tenant-1", "proveedores", nil, schema.ErrUnresolvedPlaceholder},
		{"missing parameter", "tenant-1", "buscarCliente", map[string]interface{}{}, schema.ErrMissingParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, err := a.Resolve(tt.tenant, tt.template, tt.params)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, sql)
		})
	}
}

func TestPrepareBindsParameters(t *testing.T) {
	tests := []struct {
		name     string
		engine   dbcapabilities.DatabaseID
		template string
		params   map[string]interface{}
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name:     "mysql quoted parameter",
			engine:   dbcapabilities.MySQL,
			template: "buscarCliente",
			params:   map[string]interface{}{"cedula": "V12345678"},
			wantSQL:  "SELECT tbl_clientes.cli_nombre_completo FROM tbl_clientes WHERE tbl_clientes.cli_documento_identidad = ?",
			wantArgs: []interface{}{"V12345678"},
		},
		{
			name:     "nil in quoted parameter binds null",
			engine:   dbcapabilities.MySQL,
			template: "buscarCliente",
			params:   map[string]interface{}{"cedula": nil},
			wantSQL:  "SELECT tbl_clientes.cli_nombre_completo FROM tbl_clientes WHERE tbl_clientes.cli_documento_identidad = ?",
			wantArgs: []interface{}{nil},
		},
		{
			name:     "postgres wildcard literal and bare parameter",
			engine:   dbcapabilities.PostgreSQL,
			template: "buscarProducto",
			params:   map[string]interface{}{"term": "cafe", "min": 3},
			wantSQL:  "SELECT inventario.descripcion FROM inventario WHERE LOWER(inventario.descripcion) LIKE $1 AND inventario.existencia >= $2",
			wantArgs: []interface{}{"%cafe%", 3},
		},
		{
			name:     "mssql placeholders",
			engine:   dbcapabilities.SQLServer,
			template: "buscarProducto",
			params:   map[string]interface{}{"term": "cafe", "min": 0},
			wantSQL:  "SELECT inventario.descripcion FROM inventario WHERE LOWER(inventario.descripcion) LIKE @p1 AND inventario.existencia >= @p2",
			wantArgs: []interface{}{"%cafe%", 0},
		},
		{
			name:     "oracle literal with escaped quote",
			engine:   dbcapabilities.Oracle,
			template: "porNombre",
			params:   map[string]interface{}{"suffix": "Jr"},
			wantSQL:  "SELECT tbl_clientes.cli_id FROM tbl_clientes WHERE tbl_clientes.cli_nombre_completo = :1",
			wantArgs: []interface{}{"O'Brien Jr"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := newTestAdapter(tt.engine).Prepare("tenant-1", tt.template, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, stmt.SQL)
			assert.Equal(t, tt.wantArgs, stmt.Args)
			assert.Equal(t, tt.engine, stmt.Engine)
		})
	}
}

func TestPrepareKeepsInjectionOutOfSQL(t *testing.T) {
	a := newTestAdapter(dbcapabilities.MySQL)

	stmt, err := a.Prepare("tenant-1", "buscarCliente", map[string]interface{}{"cedula": "x' OR '1'='1"})
	require.NoError(t, err)
	assert.NotContains(t, stmt.SQL, "OR '1'")
	assert.Equal(t, []interface{}{"x' OR '1'='1"}, stmt.Args)
}

func TestPrepareRejectsWrites(t *testing.T) {
	model := customersModel(dbcapabilities.MySQL)
	a := NewAdapter(staticModels{"tenant-1": model})

	_, err := a.Prepare("tenant-1", "borrar", map[string]interface{}{"id": 4})
	assert.ErrorIs(t, err, schema.ErrWriteNotAllowed)

	model.AllowWriteTemplates = true
	stmt, err := a.Prepare("tenant-1", "borrar", map[string]interface{}{"id": 4})
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM tbl_clientes WHERE tbl_clientes.cli_id = ?", stmt.SQL)
}

func TestPrepareMissingParameter(t *testing.T) {
	a := newTestAdapter(dbcapabilities.PostgreSQL)

	_, err := a.Prepare("tenant-1", "buscarProducto", map[string]interface{}{"term": "cafe"})
	assert.ErrorIs(t, err, schema.ErrMissingParameter)
}

func TestIsReadOnly(t *testing.T) {
	tests := []struct {
		sql  string
		want bool
	}{
		{"SELECT 1", true},
		{"  select * from t", true},
		{"-- leading comment\nSELECT 1", true},
		{"/* hint */ SELECT 1", true},
		{"(SELECT 1) UNION (SELECT 2)", true},
		{"WITH x AS (SELECT 1) SELECT * FROM x", true},
		{"SELECT 1;", true},
		{"SELECT * FROM t WHERE note = 'delete me'", true},
		{"DELETE FROM t", false},
		{"UPDATE t SET a = 1", false},
		{"WITH x AS (DELETE FROM t RETURNING *) SELECT * FROM x", false},
		{"SELECT 1; DROP TABLE t", false},
		{"", false},
		{"-- only a comment", false},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			assert.Equal(t, tt.want, IsReadOnly(tt.sql))
		})
	}
}
