// Package agentctx renders a tenant's mapping as plain text for a language
// model prompt. The text is informational; nothing in this service parses it.
package agentctx

import (
	"fmt"
	"strings"

	"github.com/telehostca/chatbot-backend/services/schemamap/internal/schema"
)

// Generate describes every mapped table of model: purpose, columns, the
// queries that touch it, how to insert into it, its relationships and any
// business logic.
func Generate(model *schema.Model) string {
	if model == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Database context for tenant %s (%s)\n", model.TenantID, model.EngineKind)
	if model.Description != "" {
		b.WriteString(model.Description + "\n")
	}

	claimed := make(map[string]bool)
	for _, role := range model.Roles() {
		table := model.Tables[role]
		if table == nil {
			continue
		}
		b.WriteString("\n")
		writeTable(&b, model, role, table, claimed)
	}

	var other []string
	for _, name := range model.TemplateNames() {
		if !claimed[name] {
			other = append(other, name)
		}
	}
	if len(other) > 0 {
		b.WriteString("\nOther queries:\n")
		for _, name := range other {
			fmt.Fprintf(&b, "- %s: %s\n", name, model.QueryTemplates[name])
		}
	}

	if model.OperatingInstructions != "" {
		fmt.Fprintf(&b, "\nOperating instructions:\n%s\n", model.OperatingInstructions)
	}
	if model.ValidationRules.Notes != "" {
		fmt.Fprintf(&b, "\nValidation notes:\n%s\n", model.ValidationRules.Notes)
	}
	if !model.AllowWriteTemplates {
		b.WriteString("\nOnly read queries (SELECT/WITH) can be executed for this tenant.\n")
	}
	return b.String()
}

func writeTable(b *strings.Builder, model *schema.Model, role string, table *schema.TableSchema, claimed map[string]bool) {
	fmt.Fprintf(b, "## %s (%s)\n", role, table.PhysicalName)
	if table.Purpose != "" {
		fmt.Fprintf(b, "Purpose: %s\n", table.Purpose)
	}

	b.WriteString("Columns:\n")
	for _, c := range table.Columns {
		var attrs []string
		attrs = append(attrs, string(c.DataType))
		if c.PhysicalName == table.PrimaryKey {
			attrs = append(attrs, "primary key")
		}
		if c.Required {
			attrs = append(attrs, "required")
		}
		if c.Validation != nil {
			attrs = append(attrs, describeRule(c.Validation)...)
		}
		fmt.Fprintf(b, "- %s -> %s (%s)", c.CanonicalName, c.PhysicalName, strings.Join(attrs, ", "))
		if c.Description != "" {
			fmt.Fprintf(b, ": %s", c.Description)
		}
		b.WriteString("\n")
	}

	var queries []string
	for _, name := range model.TemplateNames() {
		tmpl := model.QueryTemplates[name]
		if strings.Contains(tmpl, "{{"+role+"}}") || strings.Contains(tmpl, "{{"+role+".") {
			queries = append(queries, fmt.Sprintf("- %s: %s", name, tmpl))
			claimed[name] = true
		}
	}
	if len(queries) > 0 {
		b.WriteString("Queries:\n" + strings.Join(queries, "\n") + "\n")
	}

	var required, optional []string
	for _, c := range table.Columns {
		if c.PhysicalName == table.PrimaryKey {
			continue
		}
		if c.Required {
			required = append(required, c.CanonicalName)
		} else {
			optional = append(optional, c.CanonicalName)
		}
	}
	fmt.Fprintf(b, "Insert: required %s", listOrNone(required))
	if len(optional) > 0 {
		fmt.Fprintf(b, "; optional %s", strings.Join(optional, ", "))
	}
	b.WriteString("\n")

	var rels []string
	for _, r := range model.Relationships {
		if r.SourceTable != role && r.TargetTable != role {
			continue
		}
		rels = append(rels, fmt.Sprintf("- %s.%s -> %s.%s (%s)", r.SourceTable, r.SourceColumn, r.TargetTable, r.TargetColumn, r.Kind))
	}
	if len(rels) > 0 {
		b.WriteString("Relationships:\n" + strings.Join(rels, "\n") + "\n")
	}

	if logic := model.BusinessLogic[role]; logic != "" {
		fmt.Fprintf(b, "Business logic: %s\n", logic)
	}
}

func describeRule(r *schema.ColumnRule) []string {
	var out []string
	if r.Pattern != "" {
		out = append(out, "pattern "+r.Pattern)
	}
	if r.MinLength != nil {
		out = append(out, fmt.Sprintf("min length %d", *r.MinLength))
	}
	if r.MaxLength != nil {
		out = append(out, fmt.Sprintf("max length %d", *r.MaxLength))
	}
	if r.MinValue != nil {
		out = append(out, fmt.Sprintf("min %g", *r.MinValue))
	}
	if r.MaxValue != nil {
		out = append(out, fmt.Sprintf("max %g", *r.MaxValue))
	}
	if len(r.AllowedValues) > 0 {
		vals := make([]string, len(r.AllowedValues))
		for i, v := range r.AllowedValues {
			vals[i] = fmt.Sprint(v)
		}
		out = append(out, "one of "+strings.Join(vals, "|"))
	}
	return out
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
