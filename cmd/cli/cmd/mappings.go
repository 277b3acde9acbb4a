package main

import (
	"github.com/spf13/cobra"

	"github.com/telehostca/chatbot-backend/cmd/cli/internal/mappings"
)

// mappingsCmd represents the mappings command
var mappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "Manage tenant schema mappings",
}

var listMappingsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all mappings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return mappings.ListMappings(outputFormat)
	},
}

var showMappingCmd = &cobra.Command{
	Use:   "show [tenant-id]",
	Short: "Show a tenant's mapping document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mappings.ShowMapping(args[0], outputFormat)
	},
}

var applyMappingCmd = &cobra.Command{
	Use:   "apply [tenant-id]",
	Short: "Register or replace a tenant's mapping",
	Long: `Register or replace a tenant's mapping from a YAML or JSON document.

Examples:
  # Apply a mapping file
  schemamap-cli mappings apply ferreteria-1 -f mapping.yaml

  # Read the document from stdin
  cat mapping.json | schemamap-cli mappings apply ferreteria-1 -f -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		return mappings.ApplyMapping(args[0], file)
	},
}

var deleteMappingCmd = &cobra.Command{
	Use:   "delete [tenant-id]",
	Short: "Remove a tenant's mapping",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mappings.DeleteMapping(args[0])
	},
}

var contextMappingCmd = &cobra.Command{
	Use:   "context [tenant-id]",
	Short: "Print the agent context generated from a mapping",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mappings.ShowContext(args[0])
	},
}

var renderMappingCmd = &cobra.Command{
	Use:   "render [tenant-id] [template]",
	Short: "Preview the SQL of a query template",
	Long: `Preview the SQL of a query template with parameters inlined. The SQL is
not executed.

Examples:
  schemamap-cli mappings render ferreteria-1 buscarCliente -p cedula=V12345678`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, _ := cmd.Flags().GetStringArray("param")
		return mappings.Render(args[0], args[1], params)
	},
}

func init() {
	applyMappingCmd.Flags().StringP("file", "f", "", "Mapping document (YAML or JSON, - for stdin)")
	_ = applyMappingCmd.MarkFlagRequired("file")

	renderMappingCmd.Flags().StringArrayP("param", "p", nil, "Template parameter as key=value (repeatable)")

	mappingsCmd.AddCommand(listMappingsCmd, showMappingCmd, applyMappingCmd, deleteMappingCmd, contextMappingCmd, renderMappingCmd)
}
