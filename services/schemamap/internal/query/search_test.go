package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
	"github.com/telehostca/chatbot-backend/pkg/logger"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/schema"
)

func productsModel(engine dbcapabilities.DatabaseID) *schema.Model {
	return &schema.Model{
		TenantID:   "tenant-2",
		EngineKind: engine,
		Tables: map[string]*schema.TableSchema{
			schema.RoleProducts: {
				PhysicalName: "inventario",
				Columns: []schema.ColumnMapping{
					{CanonicalName: "code", PhysicalName: "codigo", DataType: schema.TypeString},
					{CanonicalName: "name", PhysicalName: "descripcion", DataType: schema.TypeString},
					{CanonicalName: "stock", PhysicalName: "existencia", DataType: schema.TypeNumber},
					{CanonicalName: "brand", PhysicalName: "marca", DataType: schema.TypeString},
				},
			},
			"services": {
				PhysicalName: "servicios",
				Columns: []schema.ColumnMapping{
					{CanonicalName: "title", PhysicalName: "titulo", DataType: schema.TypeString},
				},
				Search: &schema.SearchConfig{Column: "title"},
			},
			"broken": {
				PhysicalName: "roto",
				Columns: []schema.ColumnMapping{
					{CanonicalName: "name", PhysicalName: "nombre", DataType: schema.TypeString},
				},
				Search: &schema.SearchConfig{StockColumn: "qty"},
			},
		},
	}
}

func searchAdapter(engine dbcapabilities.DatabaseID) *Adapter {
	return NewAdapter(staticModels{"tenant-2": productsModel(engine)})
}

func TestSearchSingleToken(t *testing.T) {
	stmt, err := searchAdapter(dbcapabilities.MySQL).Search("tenant-2", SearchRequest{Term: "  Café "})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT inventario.codigo AS `code`, inventario.descripcion AS `name`, inventario.existencia AS `stock`, inventario.marca AS `brand` "+
			"FROM inventario "+
			"WHERE (LOWER(inventario.descripcion) LIKE ? OR LOWER(inventario.descripcion) LIKE ?) AND inventario.existencia >= ? "+
			"ORDER BY LOCATE(?, LOWER(inventario.descripcion)), CHAR_LENGTH(inventario.descripcion), inventario.descripcion LIMIT 10",
		stmt.SQL)
	assert.Equal(t, []interface{}{"cafe%", "% cafe%", DefaultMinStock, "cafe"}, stmt.Args)
}

func TestSearchMultipleTokensWithBrand(t *testing.T) {
	stmt, err := searchAdapter(dbcapabilities.PostgreSQL).Search("tenant-2", SearchRequest{Term: "Arroz  Blanco", Brand: "Mary"})
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT inventario.codigo AS "code", inventario.descripcion AS "name", inventario.existencia AS "stock", inventario.marca AS "brand" `+
			"FROM inventario "+
			"WHERE LOWER(inventario.descripcion) LIKE $1 AND LOWER(inventario.descripcion) LIKE $2 AND inventario.existencia >= $3 AND LOWER(inventario.marca) LIKE $4 "+
			"ORDER BY STRPOS(LOWER(inventario.descripcion), $5), LENGTH(inventario.descripcion), inventario.descripcion LIMIT 10",
		stmt.SQL)
	assert.Equal(t, []interface{}{"%arroz%", "%blanco%", DefaultMinStock, "%mary%", "arroz"}, stmt.Args)
}

func TestSearchDialectLimits(t *testing.T) {
	tests := []struct {
		engine dbcapabilities.DatabaseID
		suffix string
		order  string
	}{
		{dbcapabilities.MySQL, "LIMIT 10", "LOCATE(?, LOWER(inventario.descripcion))"},
		{dbcapabilities.PostgreSQL, "LIMIT 10", "STRPOS(LOWER(inventario.descripcion), $4)"},
		{dbcapabilities.SQLServer, "OFFSET 0 ROWS FETCH NEXT 10 ROWS ONLY", "CHARINDEX(@p4, LOWER(inventario.descripcion))"},
		{dbcapabilities.Oracle, "FETCH FIRST 10 ROWS ONLY", "INSTR(LOWER(inventario.descripcion), :4)"},
	}

	for _, tt := range tests {
		t.Run(string(tt.engine), func(t *testing.T) {
			stmt, err := searchAdapter(tt.engine).Search("tenant-2", SearchRequest{Term: "harina"})
			require.NoError(t, err)
			assert.Contains(t, stmt.SQL, tt.order)
			assert.Regexp(t, tt.suffix+"$", stmt.SQL)
		})
	}
}

func TestSearchConfiguredColumn(t *testing.T) {
	stmt, err := searchAdapter(dbcapabilities.MySQL).Search("tenant-2", SearchRequest{Term: "corte", TableRole: "services"})
	require.NoError(t, err)

	assert.Contains(t, stmt.SQL, "LOWER(servicios.titulo) LIKE ?")
	assert.NotContains(t, stmt.SQL, ">=")
	assert.Equal(t, []interface{}{"corte%", "% corte%", "corte"}, stmt.Args)
}

func TestSearchWithoutStockColumnLogsSkippedFilter(t *testing.T) {
	lg := logger.New("schemamap", "test")
	lg.DisableConsoleOutput()
	lg.SetLevel(logger.LevelDebug)
	entries := lg.Subscribe()

	a := searchAdapter(dbcapabilities.MySQL)
	a.SetLogger(lg)

	stmt, err := a.Search("tenant-2", SearchRequest{Term: "pintura", TableRole: "services"})
	require.NoError(t, err)
	assert.NotContains(t, stmt.SQL, ">=")

	require.Len(t, entries, 1)
	entry := <-entries
	assert.Equal(t, "DEBUG", entry.Level)
	assert.Contains(t, entry.Message, "servicios")
	assert.Contains(t, entry.Message, "min-stock filter skipped")

	_, err = a.Search("tenant-2", SearchRequest{Term: "pintura"})
	require.NoError(t, err)
	assert.Len(t, entries, 0)
}

func TestSearchErrors(t *testing.T) {
	a := searchAdapter(dbcapabilities.MySQL)

	tests := []struct {
		name    string
		tenant  string
		req     SearchRequest
		wantErr error
	}{
		{"empty term", "tenant-2", SearchRequest{Term: ""}, schema.ErrEmptySearchTerm},
		{"term normalizes to nothing", "tenant-2", SearchRequest{Term: "¡¿?!"}, schema.ErrEmptySearchTerm},
		{"unknown tenant", "nobody", SearchRequest{Term: "cafe"}, schema.ErrUnknownTenant},
		{"unknown role", "tenant-2", SearchRequest{Term: "cafe", TableRole: "suppliers"}, schema.ErrUnresolvedPlaceholder},
		{"configured column missing", "tenant-2", SearchRequest{Term: "cafe", TableRole: "broken"}, schema.ErrUnresolvedPlaceholder},
		{"brand without brand column", "tenant-2", SearchRequest{Term: "corte", Brand: "acme", TableRole: "services"}, schema.ErrUnresolvedPlaceholder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := a.Search(tt.tenant, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, stmt.SQL)
		})
	}
}
