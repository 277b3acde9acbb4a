package schema

import "github.com/telehostca/chatbot-backend/pkg/dbcapabilities"

func customersModel() *Model {
	return &Model{
		TenantID:   "tenant-1",
		EngineKind: dbcapabilities.MySQL,
		Tables: map[string]*TableSchema{
			RoleCustomers: {
				PhysicalName: "tbl_clientes",
				PrimaryKey:   "cli_id",
				Columns: []ColumnMapping{
					{CanonicalName: "id", PhysicalName: "cli_id", DataType: TypeNumber},
					{CanonicalName: "nombre", PhysicalName: "cli_nombre_completo", DataType: TypeString, Required: true},
					{CanonicalName: "cedula", PhysicalName: "cli_documento_identidad", DataType: TypeString, Required: true,
						Validation: &ColumnRule{Pattern: `^[VEJPGvejpg][0-9]{7,9}$`}},
				},
			},
		},
		QueryTemplates: map[string]string{
			"buscarCliente": "SELECT {{customers.nombre}} FROM {{customers}} WHERE {{customers.cedula}} = '{cedula}'",
		},
	}
}
