package query

import (
	"fmt"
	"strings"

	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/schema"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/textnorm"
)

// Search defaults used when a table has no search config.
const (
	DefaultSearchRole   = schema.RoleProducts
	DefaultSearchColumn = "name"
	DefaultStockColumn  = "stock"
	DefaultBrandColumn  = "brand"
	DefaultMinStock     = 1
	SearchLimit         = 10
)

// SearchRequest is a free-text lookup against one table role.
type SearchRequest struct {
	Term      string `json:"term"`
	Brand     string `json:"brand,omitempty"`
	TableRole string `json:"tableRole,omitempty"`
}

type searchColumns struct {
	name     string
	stock    string
	brand    string
	minStock int
}

// Search builds the product-style lookup statement for tenantID. A single
// token matches at the start of the column or at the start of any word in
// it; several tokens must all appear somewhere in the column.
func (a *Adapter) Search(tenantID string, req SearchRequest) (Statement, error) {
	model := a.models.Get(tenantID)
	if model == nil {
		return Statement{}, fmt.Errorf("%w: %s", schema.ErrUnknownTenant, tenantID)
	}

	tokens := textnorm.Tokens(req.Term)
	if len(tokens) == 0 {
		return Statement{}, schema.ErrEmptySearchTerm
	}

	role := req.TableRole
	if role == "" {
		role = DefaultSearchRole
	}
	table, ok := model.Table(role)
	if !ok {
		return Statement{}, fmt.Errorf("%w: table role %s", schema.ErrUnresolvedPlaceholder, role)
	}

	cols, err := resolveSearchColumns(table)
	if err != nil {
		return Statement{}, err
	}

	dialect := dbcapabilities.DialectFor(model.EngineKind)
	b := newBinder(model.EngineKind)
	lowerName := "LOWER(" + cols.name + ")"

	var where []string
	if len(tokens) == 1 {
		where = append(where, fmt.Sprintf("(%s LIKE %s OR %s LIKE %s)",
			lowerName, b.bind(tokens[0]+"%"),
			lowerName, b.bind("% "+tokens[0]+"%")))
	} else {
		for _, tok := range tokens {
			where = append(where, fmt.Sprintf("%s LIKE %s", lowerName, b.bind("%"+tok+"%")))
		}
	}
	if cols.stock != "" {
		where = append(where, fmt.Sprintf("%s >= %s", cols.stock, b.bind(cols.minStock)))
	} else {
		a.debug("Search on %s for tenant %s has no stock column, min-stock filter skipped", table.PhysicalName, tenantID)
	}
	if brand := textnorm.Normalize(req.Brand); brand != "" {
		if cols.brand == "" {
			return Statement{}, fmt.Errorf("%w: table %s has no brand column", schema.ErrUnresolvedPlaceholder, role)
		}
		where = append(where, fmt.Sprintf("LOWER(%s) LIKE %s", cols.brand, b.bind("%"+brand+"%")))
	}

	var sql strings.Builder
	sql.WriteString("SELECT ")
	sql.WriteString(selectList(table, dialect))
	sql.WriteString(" FROM ")
	sql.WriteString(table.PhysicalName)
	sql.WriteString(" WHERE ")
	sql.WriteString(strings.Join(where, " AND "))
	sql.WriteString(" ORDER BY ")
	sql.WriteString(dialect.Position(lowerName, b.bind(tokens[0])))
	sql.WriteString(", ")
	sql.WriteString(dialect.Length(cols.name))
	sql.WriteString(", ")
	sql.WriteString(cols.name)
	sql.WriteString(" ")
	sql.WriteString(dialect.LimitSuffix(SearchLimit))

	return Statement{SQL: sql.String(), Args: b.args, Engine: model.EngineKind}, nil
}

// resolveSearchColumns maps the configured canonical search columns to
// qualified physical columns. Default stock and brand columns are optional;
// explicitly configured ones must exist.
func resolveSearchColumns(table *schema.TableSchema) (searchColumns, error) {
	cfg := schema.SearchConfig{}
	if table.Search != nil {
		cfg = *table.Search
	}

	cols := searchColumns{minStock: DefaultMinStock}
	if cfg.MinStock != nil {
		cols.minStock = *cfg.MinStock
	}

	lookup := func(configured, fallback string, required bool) (string, error) {
		name := configured
		if name == "" {
			name = fallback
		}
		q, ok := table.Qualified(name)
		if ok {
			return q, nil
		}
		if configured != "" || required {
			return "", fmt.Errorf("%w: column %s on table %s", schema.ErrUnresolvedPlaceholder, name, table.PhysicalName)
		}
		return "", nil
	}

	var err error
	if cols.name, err = lookup(cfg.Column, DefaultSearchColumn, true); err != nil {
		return cols, err
	}
	if cols.stock, err = lookup(cfg.StockColumn, DefaultStockColumn, false); err != nil {
		return cols, err
	}
	if cols.brand, err = lookup(cfg.BrandColumn, DefaultBrandColumn, false); err != nil {
		return cols, err
	}
	return cols, nil
}

func selectList(table *schema.TableSchema, d dbcapabilities.Dialect) string {
	items := make([]string, 0, len(table.Columns))
	for _, c := range table.Columns {
		items = append(items, table.PhysicalName+"."+c.PhysicalName+" AS "+d.QuoteIdentifier(c.CanonicalName))
	}
	return strings.Join(items, ", ")
}
