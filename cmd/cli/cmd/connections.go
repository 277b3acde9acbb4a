package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telehostca/chatbot-backend/cmd/cli/internal/connections"
	"github.com/telehostca/chatbot-backend/pkg/adapter"
	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
)

// connectionsCmd represents the connections command
var connectionsCmd = &cobra.Command{
	Use:   "connections",
	Short: "Inspect tenant connections and external databases",
}

var listConnectionsCmd = &cobra.Command{
	Use:   "list",
	Short: "List tenant connection states",
	RunE: func(cmd *cobra.Command, args []string) error {
		return connections.ListConnections(outputFormat)
	},
}

var testConnectionCmd = &cobra.Command{
	Use:   "test",
	Short: "Test external database credentials",
	Long: `Connect to an external database, ping it and disconnect.

Examples:
  schemamap-cli connections test --engine mysql --host 10.0.0.5 --user bot --password secret --database ventas`,
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := credentialsFromFlags(cmd)
		if err != nil {
			return err
		}
		return connections.TestConnection(creds)
	},
}

var introspectCmd = &cobra.Command{
	Use:   "introspect [tenant-id]",
	Short: "Detect tables and suggest a mapping",
	Long: `Read the catalog of an external database, classify its tables and
generate a suggested mapping for the tenant.

Examples:
  # Review the suggestion before applying it
  schemamap-cli connections introspect ferreteria-1 --engine postgres --host db --user bot --database ventas --out mapping.yaml

  # Apply it directly
  schemamap-cli connections introspect ferreteria-1 --engine postgres --host db --user bot --database ventas --apply`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := credentialsFromFlags(cmd)
		if err != nil {
			return err
		}
		creds.TenantID = args[0]
		out, _ := cmd.Flags().GetString("out")
		apply, _ := cmd.Flags().GetBool("apply")
		return connections.Introspect(args[0], creds, out, apply)
	},
}

func addCredentialFlags(cmd *cobra.Command) {
	cmd.Flags().String("engine", "", "Database engine: mysql, postgres, mssql or oracle")
	cmd.Flags().String("host", "", "Database host")
	cmd.Flags().Int("port", 0, "Database port (engine default when omitted)")
	cmd.Flags().String("user", "", "Database user")
	cmd.Flags().String("password", "", "Database password")
	cmd.Flags().String("database", "", "Database name (service name for oracle)")
	cmd.Flags().Bool("ssl", false, "Use TLS")
	cmd.Flags().Bool("ssl-insecure", false, "Accept any server certificate")
	_ = cmd.MarkFlagRequired("engine")
	_ = cmd.MarkFlagRequired("host")
}

func credentialsFromFlags(cmd *cobra.Command) (adapter.ConnectionConfig, error) {
	engine, _ := cmd.Flags().GetString("engine")
	id, ok := dbcapabilities.ParseID(engine)
	if !ok {
		return adapter.ConnectionConfig{}, fmt.Errorf("unknown engine %q (want mysql, postgres, mssql or oracle)", engine)
	}

	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")
	user, _ := cmd.Flags().GetString("user")
	password, _ := cmd.Flags().GetString("password")
	database, _ := cmd.Flags().GetString("database")
	ssl, _ := cmd.Flags().GetBool("ssl")
	insecure, _ := cmd.Flags().GetBool("ssl-insecure")

	creds := adapter.ConnectionConfig{
		Engine:       id,
		Host:         host,
		Port:         port,
		Username:     user,
		Password:     password,
		DatabaseName: database,
		SSL:          ssl,
	}
	if insecure {
		reject := false
		creds.SSLRejectUnauthorized = &reject
	}
	return creds, nil
}

func init() {
	addCredentialFlags(testConnectionCmd)
	addCredentialFlags(introspectCmd)
	introspectCmd.Flags().String("out", "", "Write the suggested mapping to this YAML file")
	introspectCmd.Flags().Bool("apply", false, "Apply the suggested mapping to the tenant")

	connectionsCmd.AddCommand(listConnectionsCmd, testConnectionCmd, introspectCmd)
}
