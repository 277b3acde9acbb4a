package introspect

import (
	"strings"

	"github.com/telehostca/chatbot-backend/services/schemamap/internal/schema"
)

// FallbackPurpose is reported for tables no rule recognizes.
const FallbackPurpose = "General data table"

// Roles suggested for categories without a well-known schema role.
const (
	RoleDeliveries = "deliveries"
	RoleStaff      = "staff"
	RoleWarehouses = "warehouses"
	RoleCurrencies = "currencies"
)

type purposeRule struct {
	role     string
	purpose  string
	keywords []string
}

// purposeRules is checked in order and the first match wins. Line tables
// come before headers since names like detalle_factura contain both.
var purposeRules = []purposeRule{
	{
		role:     schema.RoleCustomers,
		purpose:  "Client records",
		keywords: []string{"cliente", "client", "customer"},
	},
	{
		role:     schema.RoleDocumentLines,
		purpose:  "Document line items",
		keywords: []string{"detalle", "linea", "lines", "_items", "renglon", "_det"},
	},
	{
		role:     schema.RoleDocumentHeader,
		purpose:  "Document headers (invoices and orders)",
		keywords: []string{"factura", "invoice", "pedido", "order", "venta", "sale", "documento", "document"},
	},
	{
		role:     schema.RoleProducts,
		purpose:  "Products and inventory",
		keywords: []string{"producto", "product", "articulo", "article", "inventario", "inventory", "stock"},
	},
	{
		role:     schema.RolePaymentMethods,
		purpose:  "Payment methods and payments",
		keywords: []string{"pago", "payment", "cobro"},
	},
	{
		role:     RoleDeliveries,
		purpose:  "Deliveries and shipments",
		keywords: []string{"entrega", "delivery", "despacho", "envio", "shipment", "shipping"},
	},
	{
		role:     RoleStaff,
		purpose:  "Staff and sellers",
		keywords: []string{"vendedor", "empleado", "employee", "staff", "seller", "usuario", "user"},
	},
	{
		role:     RoleWarehouses,
		purpose:  "Warehouses",
		keywords: []string{"almacen", "deposito", "bodega", "warehouse"},
	},
	{
		role:     RoleCurrencies,
		purpose:  "Currencies and exchange rates",
		keywords: []string{"moneda", "currency", "currencies", "tasa", "exchange"},
	},
}

func matchRule(tableName string) (purposeRule, bool) {
	name := strings.ToLower(tableName)
	for _, rule := range purposeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(name, kw) {
				return rule, true
			}
		}
	}
	return purposeRule{}, false
}

// EstimatePurpose describes what a table most likely holds, judging by its name.
func EstimatePurpose(table DetectedTable) string {
	if rule, ok := matchRule(table.Name); ok {
		return rule.purpose
	}
	return FallbackPurpose
}

// EstimateRole suggests a canonical role for a table. ok is false when no
// rule recognizes it.
func EstimateRole(table DetectedTable) (string, bool) {
	rule, ok := matchRule(table.Name)
	if !ok {
		return "", false
	}
	return rule.role, true
}

// Business patterns reported by DetectPatterns.
const (
	PatternInvoicing    = "full invoicing system"
	PatternDelivery     = "delivery management"
	PatternPayments     = "payment processing"
	PatternMasterDetail = "master-detail documents"
)

// DetectPatterns reports the business patterns the set of tables suggests.
func DetectPatterns(tables []DetectedTable) []string {
	present := make(map[string]bool)
	for _, t := range tables {
		if role, ok := EstimateRole(t); ok {
			present[role] = true
		}
	}

	patterns := make([]string, 0, 4)
	if present[schema.RoleCustomers] && present[schema.RoleProducts] && present[schema.RoleDocumentHeader] {
		patterns = append(patterns, PatternInvoicing)
	}
	if present[RoleDeliveries] {
		patterns = append(patterns, PatternDelivery)
	}
	if present[schema.RolePaymentMethods] {
		patterns = append(patterns, PatternPayments)
	}
	if present[schema.RoleDocumentHeader] && present[schema.RoleDocumentLines] {
		patterns = append(patterns, PatternMasterDetail)
	}
	return patterns
}
