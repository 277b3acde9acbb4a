package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/telehostca/chatbot-backend/cmd/cli/internal/config"
)

var (
	configFile   string
	serverAddr   string
	outputFormat string

	// Build information, set with -ldflags
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func printVersionInfo() {
	fmt.Printf("schemamap-cli %s\n", Version)
	fmt.Printf("Built: %s, from commit: %s\n", BuildTime, GitCommit)
	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "schemamap-cli",
	Short:        "Schema-mapping admin CLI",
	Long:         "Manage tenant schema mappings, external database connections and query templates through the schemamap admin API.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			printVersionInfo()
			return nil
		}
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", os.ExpandEnv("$HOME/.schemamap/cli.yaml"), "Path to config file")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "", "Admin API address (overrides the config file)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json or yaml")
	rootCmd.Flags().Bool("version", false, "Show version information and exit")

	cobra.OnInitialize(func() {
		if err := config.Init(configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
			os.Exit(1)
		}
		config.SetServer(serverAddr)
	})

	rootCmd.AddCommand(mappingsCmd, tenantsCmd, connectionsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
