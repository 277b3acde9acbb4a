package main

import (
	"github.com/spf13/cobra"

	"github.com/telehostca/chatbot-backend/cmd/cli/internal/tenants"
)

// tenantsCmd represents the tenants command
var tenantsCmd = &cobra.Command{
	Use:   "tenants",
	Short: "Run queries and manage configuration for a tenant",
}

var queryTenantCmd = &cobra.Command{
	Use:   "query [tenant-id] [template]",
	Short: "Execute a named query template",
	Long: `Execute a named query template on the tenant's external database.
Parameters are bound by the driver.

Examples:
  schemamap-cli tenants query ferreteria-1 buscarCliente -p cedula=V12345678
  schemamap-cli tenants query ferreteria-1 facturaPorNumero -p numero="'000123'" -o json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, _ := cmd.Flags().GetStringArray("param")
		return tenants.RunQuery(args[0], args[1], params, outputFormat)
	},
}

var searchTenantCmd = &cobra.Command{
	Use:   "search [tenant-id] [term]",
	Short: "Search products by free text",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		brand, _ := cmd.Flags().GetString("brand")
		role, _ := cmd.Flags().GetString("table")
		req := tenants.SearchRequest{Term: args[1], Brand: brand, TableRole: role}
		return tenants.Search(args[0], req, outputFormat)
	},
}

var validateTenantCmd = &cobra.Command{
	Use:   "validate [tenant-id] [role]",
	Short: "Validate a record against a mapped table's column rules",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		return tenants.Validate(args[0], args[1], file)
	},
}

var configTenantCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update tenant configuration",
}

var showConfigCmd = &cobra.Command{
	Use:   "show [tenant-id]",
	Short: "Show a tenant's configuration with secrets redacted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return tenants.ShowConfig(args[0], outputFormat)
	},
}

var setConfigCmd = &cobra.Command{
	Use:   "set [tenant-id]",
	Short: "Merge configuration sections into a tenant's configuration",
	Long: `Merge configuration sections into a tenant's configuration. Only the
fields present in the document change. Changing the externalDb section
reconnects the tenant's database.

Examples:
  # patch.yaml
  # externalDb:
  #   enabled: true
  #   engine: mssql
  #   host: 10.0.0.5
  #   username: bot
  #   password: secret
  #   databaseName: ventas
  schemamap-cli tenants config set ferreteria-1 -f patch.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		return tenants.PatchConfig(args[0], file)
	},
}

func init() {
	queryTenantCmd.Flags().StringArrayP("param", "p", nil, "Template parameter as key=value (repeatable)")

	searchTenantCmd.Flags().String("brand", "", "Restrict results to a brand")
	searchTenantCmd.Flags().String("table", "", "Table role to search (defaults to products)")

	validateTenantCmd.Flags().StringP("file", "f", "", "Record document (YAML or JSON, - for stdin)")
	_ = validateTenantCmd.MarkFlagRequired("file")

	setConfigCmd.Flags().StringP("file", "f", "", "Configuration patch (YAML or JSON, - for stdin)")
	_ = setConfigCmd.MarkFlagRequired("file")

	configTenantCmd.AddCommand(showConfigCmd, setConfigCmd)
	tenantsCmd.AddCommand(queryTenantCmd, searchTenantCmd, validateTenantCmd, configTenantCmd)
}
