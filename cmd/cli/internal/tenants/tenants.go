package tenants

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/telehostca/chatbot-backend/cmd/cli/internal/config"
	"github.com/telehostca/chatbot-backend/cmd/cli/internal/httpclient"
	"github.com/telehostca/chatbot-backend/cmd/cli/internal/input"
	"github.com/telehostca/chatbot-backend/cmd/cli/internal/output"
)

// QueryResponse wraps the rows of an executed template or search.
type QueryResponse struct {
	Rows  []map[string]interface{} `json:"rows"`
	Count int                      `json:"count"`
}

// SearchRequest is the body of a product search.
type SearchRequest struct {
	Term      string `json:"term"`
	Brand     string `json:"brand,omitempty"`
	TableRole string `json:"tableRole,omitempty"`
}

type validationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

type configUpdate struct {
	Config            map[string]interface{} `json:"config"`
	ExternalDBChanged bool                   `json:"externalDbChanged"`
	ConnectionError   string                 `json:"connectionError"`
	Connection        *struct {
		State string `json:"state"`
	} `json:"connection"`
}

func tenantURL(tenantID string, parts ...string) string {
	u := fmt.Sprintf("%s/tenants/%s", config.APIURL(), url.PathEscape(tenantID))
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

func printRows(format string, resp QueryResponse) error {
	if handled, err := output.Print(format, resp); handled {
		return err
	}
	output.Records(resp.Rows)
	fmt.Fprintf(output.Out, "\n%d row(s)\n", resp.Count)
	return nil
}

// RunQuery executes a named template for a tenant
func RunQuery(tenantID, template string, params []string, format string) error {
	values, err := input.ParseParams(params)
	if err != nil {
		return err
	}

	var resp QueryResponse
	body := map[string]interface{}{"params": values}
	if err := httpclient.GetClient().Post(tenantURL(tenantID, "queries", template), body, &resp); err != nil {
		return fmt.Errorf("query failed: %v", err)
	}
	return printRows(format, resp)
}

// Search runs the product search for a tenant
func Search(tenantID string, req SearchRequest, format string) error {
	var resp QueryResponse
	if err := httpclient.GetClient().Post(tenantURL(tenantID, "search"), req, &resp); err != nil {
		return fmt.Errorf("search failed: %v", err)
	}
	return printRows(format, resp)
}

// Validate checks the record in file against a role's column rules
func Validate(tenantID, role, file string) error {
	data, err := input.Load(file)
	if err != nil {
		return err
	}

	var result validationResult
	if err := httpclient.GetClient().Post(tenantURL(tenantID, "validate", role), json.RawMessage(data), &result); err != nil {
		return fmt.Errorf("record rejected: %v", err)
	}
	output.Success("Record is valid for %s", role)
	return nil
}

// ShowConfig prints a tenant's configuration sections
func ShowConfig(tenantID, format string) error {
	var cfg map[string]interface{}
	if err := httpclient.GetClient().Get(tenantURL(tenantID, "config"), &cfg); err != nil {
		return fmt.Errorf("failed to get tenant config: %v", err)
	}
	if format == "" || format == "table" {
		format = "yaml"
	}
	_, err := output.Print(format, cfg)
	return err
}

// PatchConfig merges the sections in file into a tenant's configuration
func PatchConfig(tenantID, file string) error {
	data, err := input.Load(file)
	if err != nil {
		return err
	}

	var update configUpdate
	if err := httpclient.GetClient().Patch(tenantURL(tenantID, "config"), json.RawMessage(data), &update); err != nil {
		return fmt.Errorf("failed to update tenant config: %v", err)
	}

	output.Success("Configuration updated for tenant %s", tenantID)
	if !update.ExternalDBChanged {
		return nil
	}
	switch {
	case update.ConnectionError != "":
		output.Failure("External database: %s", update.ConnectionError)
	case update.Connection != nil:
		output.Success("External database connection is %s", update.Connection.State)
	}
	return nil
}
