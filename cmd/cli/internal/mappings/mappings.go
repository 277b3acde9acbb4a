package mappings

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/telehostca/chatbot-backend/cmd/cli/internal/config"
	"github.com/telehostca/chatbot-backend/cmd/cli/internal/httpclient"
	"github.com/telehostca/chatbot-backend/cmd/cli/internal/input"
	"github.com/telehostca/chatbot-backend/cmd/cli/internal/output"
)

// Summary is one row of the mapping listing.
type Summary struct {
	TenantID    string `json:"tenantId"`
	Description string `json:"description"`
	TableCount  int    `json:"tableCount"`
	QueryCount  int    `json:"queryCount"`
	RuleCount   int    `json:"ruleCount"`
}

type contextResponse struct {
	TenantID string `json:"tenantId"`
	Context  string `json:"context"`
}

type renderResponse struct {
	SQL string `json:"sql"`
}

type removeResponse struct {
	Removed bool `json:"removed"`
}

func mappingURL(tenantID string, parts ...string) string {
	u := fmt.Sprintf("%s/mappings/%s", config.APIURL(), url.PathEscape(tenantID))
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

// ListMappings lists every registered mapping
func ListMappings(format string) error {
	var summaries []Summary
	if err := httpclient.GetClient().Get(config.APIURL()+"/mappings", &summaries); err != nil {
		return fmt.Errorf("failed to list mappings: %v", err)
	}
	if handled, err := output.Print(format, summaries); handled {
		return err
	}

	if len(summaries) == 0 {
		fmt.Fprintln(output.Out, "No mappings found")
		return nil
	}
	rows := make([][]string, len(summaries))
	for i, s := range summaries {
		rows[i] = []string{
			s.TenantID,
			strconv.Itoa(s.TableCount),
			strconv.Itoa(s.QueryCount),
			strconv.Itoa(s.RuleCount),
			s.Description,
		}
	}
	output.Table([]string{"Tenant", "Tables", "Queries", "Rules", "Description"}, rows)
	return nil
}

// ShowMapping prints a tenant's full mapping document
func ShowMapping(tenantID, format string) error {
	var doc map[string]interface{}
	if err := httpclient.GetClient().Get(mappingURL(tenantID), &doc); err != nil {
		return fmt.Errorf("failed to get mapping: %v", err)
	}
	if format == "" || format == "table" {
		format = "yaml"
	}
	_, err := output.Print(format, doc)
	return err
}

// ApplyMapping registers the mapping document in file for tenantID
func ApplyMapping(tenantID, file string) error {
	data, err := input.Load(file)
	if err != nil {
		return err
	}

	var doc map[string]interface{}
	if err := httpclient.GetClient().Put(mappingURL(tenantID), json.RawMessage(data), &doc); err != nil {
		return fmt.Errorf("failed to save mapping: %v", err)
	}
	output.Success("Mapping saved for tenant %s", tenantID)
	return nil
}

// DeleteMapping removes a tenant's mapping
func DeleteMapping(tenantID string) error {
	var resp removeResponse
	if err := httpclient.GetClient().Delete(mappingURL(tenantID), &resp); err != nil {
		return fmt.Errorf("failed to delete mapping: %v", err)
	}
	if !resp.Removed {
		output.Warning("Tenant %s had no mapping", tenantID)
		return nil
	}
	output.Success("Mapping removed for tenant %s", tenantID)
	return nil
}

// ShowContext prints the agent context text of a tenant
func ShowContext(tenantID string) error {
	var resp contextResponse
	if err := httpclient.GetClient().Get(mappingURL(tenantID, "context"), &resp); err != nil {
		return fmt.Errorf("failed to get agent context: %v", err)
	}
	fmt.Fprintln(output.Out, resp.Context)
	return nil
}

// Render prints the SQL a template resolves to with params inlined
func Render(tenantID, template string, params []string) error {
	values, err := input.ParseParams(params)
	if err != nil {
		return err
	}

	var resp renderResponse
	body := map[string]interface{}{"params": values}
	if err := httpclient.GetClient().Post(mappingURL(tenantID, "render", template), body, &resp); err != nil {
		return fmt.Errorf("failed to render template: %v", err)
	}
	fmt.Fprintln(output.Out, resp.SQL)
	return nil
}
