package introspect

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/telehostca/chatbot-backend/pkg/adapter"
	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/schema"
)

// ListLimit caps the rows returned by generated <role>_list templates.
const ListLimit = 50

// Column names recognized as the search, stock and brand columns of a
// products table.
var (
	searchColumnHints = []string{"name", "nombre", "descripcion", "description"}
	stockColumnHints  = []string{"stock", "existencia", "existencias", "cantidad", "quantity"}
	brandColumnHints  = []string{"brand", "marca"}
)

// GenerateSuggestedConfig builds a mapping the operator can review and
// register. Tables and columns whose names cannot be inlined into SQL are
// left out.
func GenerateSuggestedConfig(tables []DetectedTable, creds adapter.ConnectionConfig, patterns []string) *schema.Model {
	model := &schema.Model{
		TenantID:       creds.TenantID,
		EngineKind:     creds.Engine,
		Description:    fmt.Sprintf("Suggested mapping for %s database %s", creds.Engine, creds.DatabaseName),
		Tables:         make(map[string]*schema.TableSchema),
		QueryTemplates: make(map[string]string),
	}
	dialect := dbcapabilities.DialectFor(creds.Engine)

	sorted := append([]DetectedTable(nil), tables...)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].Name < sorted[b].Name })

	roleOf := make(map[string]string, len(sorted))
	for _, t := range sorted {
		if !schema.IsIdentifier(t.Name) {
			continue
		}
		table := suggestTable(t)
		if len(table.Columns) == 0 {
			continue
		}

		role, ok := EstimateRole(t)
		if !ok {
			role = roleName(t.Name)
		}
		if _, taken := model.Tables[role]; taken {
			role = role + "_" + roleName(t.Name)
		}

		if role == schema.RoleProducts {
			table.Search = searchConfigFor(table)
		}
		roleOf[t.Name] = role
		model.Tables[role] = table
		addTemplates(model.QueryTemplates, role, table, dialect)
	}

	for _, t := range sorted {
		targetRole, ok := roleOf[t.Name]
		if !ok {
			continue
		}
		target := model.Tables[targetRole]
		for _, c := range t.Columns {
			if c.References == nil {
				continue
			}
			sourceRole, ok := roleOf[c.References.Table]
			if !ok {
				continue
			}
			sourceCol, ok := model.Tables[sourceRole].PhysicalColumn(c.References.Column)
			if !ok {
				continue
			}
			targetCol, ok := target.PhysicalColumn(c.Name)
			if !ok {
				continue
			}
			model.Relationships = append(model.Relationships, schema.Relationship{
				Kind:         schema.OneToMany,
				SourceTable:  sourceRole,
				SourceColumn: sourceCol.CanonicalName,
				TargetTable:  targetRole,
				TargetColumn: targetCol.CanonicalName,
			})
		}
	}

	if len(patterns) > 0 {
		model.OperatingInstructions = "Detected patterns: " + strings.Join(patterns, ", ") + "."
	}
	return model
}

func suggestTable(t DetectedTable) *schema.TableSchema {
	table := &schema.TableSchema{
		PhysicalName: t.Name,
		Purpose:      EstimatePurpose(t),
	}

	used := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if !schema.IsIdentifier(c.Name) {
			continue
		}

		canonical := CanonicalName(c.Name)
		for n := 2; used[canonical]; n++ {
			canonical = fmt.Sprintf("%s%d", CanonicalName(c.Name), n)
		}
		used[canonical] = true

		col := schema.ColumnMapping{
			CanonicalName: canonical,
			PhysicalName:  c.Name,
			DataType:      DataTypeFor(c.Type),
			Required:      !c.IsNullable && c.Default == "" && !c.IsPrimary,
		}
		if c.MaxLength > 0 && col.DataType == schema.TypeString {
			maxLen := c.MaxLength
			col.Validation = &schema.ColumnRule{MaxLength: &maxLen}
		}
		table.Columns = append(table.Columns, col)

		if c.Name == t.PrimaryKey {
			table.PrimaryKey = c.Name
		}
	}

	return table
}

// searchConfigFor points search at recognizable columns of a products
// table when they differ from the canonical defaults.
func searchConfigFor(table *schema.TableSchema) *schema.SearchConfig {
	find := func(hints []string) string {
		for _, h := range hints {
			for _, c := range table.Columns {
				if strings.EqualFold(c.CanonicalName, h) {
					return c.CanonicalName
				}
			}
		}
		return ""
	}

	name := find(searchColumnHints)
	if name == "" {
		return nil
	}
	cfg := &schema.SearchConfig{}
	if name != "name" {
		cfg.Column = name
	}
	if stock := find(stockColumnHints); stock != "" && stock != "stock" {
		cfg.StockColumn = stock
	}
	if brand := find(brandColumnHints); brand != "" && brand != "brand" {
		cfg.BrandColumn = brand
	}
	if *cfg == (schema.SearchConfig{}) {
		return nil
	}
	return cfg
}

func addTemplates(templates map[string]string, role string, table *schema.TableSchema, dialect dbcapabilities.Dialect) {
	orderBy := ""
	if table.PrimaryKey != "" {
		pk, _ := table.PhysicalColumn(table.PrimaryKey)
		templates[role+"_find_by_id"] = fmt.Sprintf("SELECT * FROM {{%s}} WHERE {{%s.%s}} = {id}", role, role, pk.CanonicalName)
		orderBy = fmt.Sprintf(" ORDER BY {{%s.%s}}", role, pk.CanonicalName)
	} else if dialect.ID == dbcapabilities.SQLServer {
		// OFFSET/FETCH is only valid after ORDER BY.
		orderBy = " ORDER BY (SELECT NULL)"
	}
	templates[role+"_list"] = fmt.Sprintf("SELECT * FROM {{%s}}%s %s", role, orderBy, dialect.LimitSuffix(ListLimit))
	templates[role+"_count"] = fmt.Sprintf("SELECT COUNT(*) AS total FROM {{%s}}", role)
}

// DataTypeFor maps an engine column type onto a canonical data type.
func DataTypeFor(sqlType string) schema.DataType {
	t := strings.ToLower(sqlType)
	switch {
	case t == "bit" || strings.HasPrefix(t, "bool"):
		return schema.TypeBoolean
	case strings.Contains(t, "json"):
		return schema.TypeJSON
	case strings.Contains(t, "date") || strings.Contains(t, "time"):
		return schema.TypeDate
	case strings.Contains(t, "int") && !strings.Contains(t, "interval") && !strings.Contains(t, "point"),
		strings.Contains(t, "dec"), strings.Contains(t, "numeric"), t == "number",
		strings.Contains(t, "float"), strings.Contains(t, "double"), t == "real",
		strings.Contains(t, "money"), strings.Contains(t, "serial"):
		return schema.TypeNumber
	default:
		return schema.TypeString
	}
}

// CanonicalName turns a physical column name into lower camel case:
// COD_CLIENTE becomes codCliente.
func CanonicalName(physical string) string {
	parts := strings.FieldsFunc(physical, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(parts) == 0 {
		return "column"
	}

	var b strings.Builder
	for i, p := range parts {
		p = strings.ToLower(p)
		if i > 0 {
			p = strings.ToUpper(p[:1]) + p[1:]
		}
		b.WriteString(p)
	}
	name := b.String()
	if unicode.IsDigit(rune(name[0])) {
		name = "c" + name
	}
	return name
}

// roleName makes a table name usable as a {{role}} placeholder.
func roleName(table string) string {
	name := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return unicode.ToLower(r)
		}
		return '_'
	}, table)
	if name == "" || unicode.IsDigit(rune(name[0])) {
		name = "t_" + name
	}
	return name
}
