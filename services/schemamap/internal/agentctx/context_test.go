package agentctx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/schema"
)

func intPtr(i int) *int { return &i }

func testModel() *schema.Model {
	return &schema.Model{
		TenantID:    "t1",
		EngineKind:  dbcapabilities.MySQL,
		Description: "Ventas ERP",
		Tables: map[string]*schema.TableSchema{
			schema.RoleCustomers: {
				PhysicalName: "tbl_clientes",
				PrimaryKey:   "cli_id",
				Purpose:      "Client records",
				Columns: []schema.ColumnMapping{
					{CanonicalName: "id", PhysicalName: "cli_id", DataType: schema.TypeNumber},
					{CanonicalName: "nombre", PhysicalName: "cli_nombre", DataType: schema.TypeString, Required: true},
					{
						CanonicalName: "cedula",
						PhysicalName:  "cli_cedula",
						DataType:      schema.TypeString,
						Required:      true,
						Validation:    &schema.ColumnRule{Pattern: "^V[0-9]+$", MaxLength: intPtr(10)},
					},
					{CanonicalName: "email", PhysicalName: "cli_email", DataType: schema.TypeString},
				},
			},
			schema.RoleDocumentHeader: {
				PhysicalName: "facturas",
				Columns: []schema.ColumnMapping{
					{CanonicalName: "clienteId", PhysicalName: "cliente_id", DataType: schema.TypeNumber},
				},
			},
		},
		Relationships: []schema.Relationship{{
			Kind:         schema.OneToMany,
			SourceTable:  schema.RoleCustomers,
			SourceColumn: "id",
			TargetTable:  schema.RoleDocumentHeader,
			TargetColumn: "clienteId",
		}},
		QueryTemplates: map[string]string{
			"buscarCliente": "SELECT {{customers.nombre}} FROM {{customers}} WHERE {{customers.cedula}} = '{cedula}'",
			"ping":          "SELECT 1",
		},
		BusinessLogic:         map[string]string{schema.RoleCustomers: "Customers are identified by cedula."},
		OperatingInstructions: "Answer in Spanish.",
	}
}

func TestGenerate(t *testing.T) {
	out := Generate(testModel())

	for _, want := range []string{
		"Database context for tenant t1 (mysql)\nVentas ERP\n",
		"## customers (tbl_clientes)\nPurpose: Client records\n",
		"- id -> cli_id (number, primary key)\n",
		"- cedula -> cli_cedula (string, required, pattern ^V[0-9]+$, max length 10)\n",
		"- buscarCliente: SELECT {{customers.nombre}} FROM {{customers}}",
		"Insert: required nombre, cedula; optional email\n",
		"- customers.id -> documentHeader.clienteId (one-to-many)\n",
		"Business logic: Customers are identified by cedula.\n",
		"## documentHeader (facturas)\n",
		"Insert: required none; optional clienteId\n",
		"Other queries:\n- ping: SELECT 1\n",
		"Operating instructions:\nAnswer in Spanish.\n",
		"Only read queries (SELECT/WITH)",
	} {
		assert.Contains(t, out, want)
	}

	assert.Less(t, strings.Index(out, "## customers"), strings.Index(out, "## documentHeader"))
	assert.Equal(t, 1, strings.Count(out, "- buscarCliente:"))
}

func TestGenerateWriteTemplatesAllowed(t *testing.T) {
	m := testModel()
	m.AllowWriteTemplates = true
	assert.NotContains(t, Generate(m), "Only read queries")
}

func TestGenerateNil(t *testing.T) {
	assert.Empty(t, Generate(nil))
}
