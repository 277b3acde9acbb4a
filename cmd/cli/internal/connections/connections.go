package connections

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"

	"github.com/telehostca/chatbot-backend/cmd/cli/internal/config"
	"github.com/telehostca/chatbot-backend/cmd/cli/internal/httpclient"
	"github.com/telehostca/chatbot-backend/cmd/cli/internal/output"
	"github.com/telehostca/chatbot-backend/pkg/adapter"
)

// Status is the state of one tenant connection.
type Status struct {
	TenantID  string `json:"tenantId"`
	State     string `json:"state"`
	Engine    string `json:"engine"`
	Host      string `json:"host"`
	Database  string `json:"database"`
	LastError string `json:"lastError"`
	Since     string `json:"since"`
}

type testResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type introspectRequest struct {
	TenantID    string                   `json:"tenantId"`
	Credentials adapter.ConnectionConfig `json:"credentials"`
}

type detectedTable struct {
	Name       string        `json:"name"`
	PrimaryKey string        `json:"primaryKey"`
	Purpose    string        `json:"purpose"`
	Columns    []interface{} `json:"columns"`
}

type introspectResponse struct {
	Detection struct {
		Engine   string          `json:"engine"`
		Database string          `json:"database"`
		Tables   []detectedTable `json:"tables"`
		Patterns []string        `json:"patterns"`
	} `json:"detection"`
	Suggested map[string]interface{} `json:"suggested"`
}

// ListConnections prints the connection state of every tracked tenant
func ListConnections(format string) error {
	var statuses []Status
	if err := httpclient.GetClient().Get(config.APIURL()+"/connections", &statuses); err != nil {
		return fmt.Errorf("failed to list connections: %v", err)
	}
	if handled, err := output.Print(format, statuses); handled {
		return err
	}

	if len(statuses) == 0 {
		fmt.Fprintln(output.Out, "No tenant connections")
		return nil
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].TenantID < statuses[j].TenantID })
	rows := make([][]string, len(statuses))
	for i, s := range statuses {
		rows[i] = []string{s.TenantID, s.State, s.Engine, s.Host, s.Database, s.LastError}
	}
	output.Table([]string{"Tenant", "State", "Engine", "Host", "Database", "Last Error"}, rows)
	return nil
}

// TestConnection checks that creds can connect
func TestConnection(creds adapter.ConnectionConfig) error {
	var resp testResponse
	if err := httpclient.GetClient().Post(config.APIURL()+"/connections/test", creds, &resp); err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	if !resp.Success {
		output.Failure("Connection failed: %s", resp.Message)
		return fmt.Errorf("connection to %s failed", creds.Host)
	}
	output.Success("Connected to %s %s:%d/%s", creds.Engine, creds.Host, creds.Port, creds.DatabaseName)
	return nil
}

// Introspect detects the tables behind creds and prints a summary. The
// suggested mapping is written to outFile when given and applied to the
// tenant when apply is set.
func Introspect(tenantID string, creds adapter.ConnectionConfig, outFile string, apply bool) error {
	client := httpclient.GetClient()

	var resp introspectResponse
	req := introspectRequest{TenantID: tenantID, Credentials: creds}
	if err := client.Post(config.APIURL()+"/introspect", req, &resp); err != nil {
		return fmt.Errorf("introspection failed: %v", err)
	}

	det := resp.Detection
	output.Heading("%s database %s: %d tables", det.Engine, det.Database, len(det.Tables))
	rows := make([][]string, len(det.Tables))
	for i, t := range det.Tables {
		rows[i] = []string{t.Name, t.PrimaryKey, strconv.Itoa(len(t.Columns)), t.Purpose}
	}
	output.Table([]string{"Table", "Primary Key", "Columns", "Purpose"}, rows)
	if len(det.Patterns) > 0 {
		fmt.Fprintf(output.Out, "\nDetected patterns: %v\n", det.Patterns)
	}

	if outFile != "" {
		if err := writeSuggestion(outFile, resp.Suggested); err != nil {
			return err
		}
		output.Success("Suggested mapping written to %s", outFile)
	}

	if apply {
		var doc map[string]interface{}
		applyURL := fmt.Sprintf("%s/mappings/%s/apply", config.APIURL(), url.PathEscape(tenantID))
		if err := client.Post(applyURL, resp.Suggested, &doc); err != nil {
			return fmt.Errorf("failed to apply suggested mapping: %v", err)
		}
		output.Success("Suggested mapping applied to tenant %s", tenantID)
	}
	return nil
}

func writeSuggestion(path string, suggested map[string]interface{}) error {
	//nolint:gosec // the path is given by the operator
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %v", path, err)
	}
	defer f.Close()

	prev := output.Out
	output.Out = f
	defer func() { output.Out = prev }()
	return output.YAML(suggested)
}
