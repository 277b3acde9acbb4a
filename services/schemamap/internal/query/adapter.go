// Package query turns a tenant's canonical query templates into SQL for that
// tenant's physical schema.
//
// Template grammar:
//
//	{{role}}          physical table name of the role
//	{{role.column}}   physicalTable.physicalColumn of a canonical column
//	{param}           runtime parameter
//
// Resolve renders parameters as text and is meant for previews. Prepare binds
// parameters through the driver and is the only form that gets executed.
package query

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
	"github.com/telehostca/chatbot-backend/pkg/logger"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/schema"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/textnorm"
)

var (
	identifierRe = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)(?:\.([A-Za-z_][A-Za-z0-9_]*))?\s*\}\}`)
	parameterRe  = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

	// quotedParameterRe matches a literal holding nothing but one parameter.
	quotedParameterRe = regexp.MustCompile(`'\{([A-Za-z_][A-Za-z0-9_]*)\}'`)
)

// ModelSource looks up a tenant's model. The registry implements it.
type ModelSource interface {
	Get(tenantID string) *schema.Model
}

// Statement is SQL text plus its driver-bound arguments in placeholder order.
type Statement struct {
	SQL    string
	Args   []interface{}
	Engine dbcapabilities.DatabaseID
}

// Adapter resolves templates against registered models.
type Adapter struct {
	models ModelSource
	logger *logger.Logger
}

// NewAdapter creates an adapter reading models from src.
func NewAdapter(src ModelSource) *Adapter {
	return &Adapter{models: src}
}

// SetLogger sets the logger for statement-building diagnostics.
func (a *Adapter) SetLogger(l *logger.Logger) {
	a.logger = l
}

func (a *Adapter) debug(format string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Debug(format, args...)
	}
}

func (a *Adapter) template(tenantID, name string) (*schema.Model, string, error) {
	model := a.models.Get(tenantID)
	if model == nil {
		return nil, "", fmt.Errorf("%w: %s", schema.ErrUnknownTenant, tenantID)
	}
	tmpl, ok := model.QueryTemplates[name]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s for tenant %s", schema.ErrUnknownTemplate, name, tenantID)
	}
	return model, tmpl, nil
}

// Resolve renders template name for tenantID with params written into the
// text. Single quotes in values are doubled.
func (a *Adapter) Resolve(tenantID, name string, params map[string]interface{}) (string, error) {
	model, tmpl, err := a.template(tenantID, name)
	if err != nil {
		return "", err
	}

	sql, err := ResolveIdentifiers(model, tmpl)
	if err != nil {
		return "", err
	}

	// '{p}' with a nil value renders as a bare NULL rather than 'NULL'.
	sql = quotedParameterRe.ReplaceAllStringFunc(sql, func(m string) string {
		if v, ok := params[m[2:len(m)-2]]; ok && v == nil {
			return "NULL"
		}
		return m
	})

	var missing []string
	out := parameterRe.ReplaceAllStringFunc(sql, func(m string) string {
		key := m[1 : len(m)-1]
		v, ok := params[key]
		if !ok {
			missing = append(missing, key)
			return m
		}
		if v == nil {
			return "NULL"
		}
		return textnorm.EscapeLiteral(StringForm(v))
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", schema.ErrMissingParameter, strings.Join(missing, ", "))
	}
	return out, nil
}

// Prepare resolves template name for tenantID and binds every parameter
// through driver placeholders. Named templates must be read-only unless the
// model allows writes.
func (a *Adapter) Prepare(tenantID, name string, params map[string]interface{}) (Statement, error) {
	model, tmpl, err := a.template(tenantID, name)
	if err != nil {
		return Statement{}, err
	}

	sql, err := ResolveIdentifiers(model, tmpl)
	if err != nil {
		return Statement{}, err
	}

	if !model.AllowWriteTemplates && !IsReadOnly(sql) {
		return Statement{}, fmt.Errorf("%w: template %s", schema.ErrWriteNotAllowed, name)
	}

	return bindParameters(model.EngineKind, sql, params)
}

// ResolveIdentifiers replaces {{role}} and {{role.column}} using the model.
// Any reference the model cannot satisfy fails the whole resolution.
func ResolveIdentifiers(model *schema.Model, tmpl string) (string, error) {
	var unresolved []string
	out := identifierRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		parts := identifierRe.FindStringSubmatch(m)
		role, column := parts[1], parts[2]

		table, ok := model.Table(role)
		if !ok {
			unresolved = append(unresolved, m)
			return m
		}
		if column == "" {
			return table.PhysicalName
		}
		qualified, ok := table.Qualified(column)
		if !ok {
			unresolved = append(unresolved, m)
			return m
		}
		return qualified
	})
	if len(unresolved) > 0 {
		return "", fmt.Errorf("%w: %s", schema.ErrUnresolvedPlaceholder, strings.Join(unresolved, ", "))
	}
	return out, nil
}

// bindParameters walks sql once. A quoted literal containing parameters
// becomes one placeholder bound to the literal's text with the parameters
// substituted, so '%{term}%' binds "%"+term+"%". Bare parameters bind their
// value unchanged.
func bindParameters(engine dbcapabilities.DatabaseID, sql string, params map[string]interface{}) (Statement, error) {
	b := newBinder(engine)
	var out strings.Builder
	var missing []string

	lookup := func(key string) (interface{}, bool) {
		v, ok := params[key]
		if !ok {
			missing = append(missing, key)
		}
		return v, ok
	}

	bindBare := func(segment string) {
		out.WriteString(parameterRe.ReplaceAllStringFunc(segment, func(m string) string {
			v, ok := lookup(m[1 : len(m)-1])
			if !ok {
				return m
			}
			return b.bind(v)
		}))
	}

	rest := sql
	for {
		start := strings.IndexByte(rest, '\'')
		if start < 0 {
			bindBare(rest)
			break
		}
		end := literalEnd(rest, start)
		if end < 0 {
			// Unterminated literal; leave the remainder to the driver to reject.
			bindBare(rest[:start])
			out.WriteString(rest[start:])
			break
		}

		bindBare(rest[:start])
		literal := rest[start : end+1]
		if quotedParameterRe.FindString(literal) == literal {
			if v, ok := params[literal[2:len(literal)-2]]; ok && v == nil {
				out.WriteString(b.bind(nil))
				rest = rest[end+1:]
				continue
			}
		}
		if parameterRe.MatchString(literal) {
			body := strings.ReplaceAll(literal[1:len(literal)-1], "''", "'")
			text := parameterRe.ReplaceAllStringFunc(body, func(m string) string {
				v, ok := lookup(m[1 : len(m)-1])
				if !ok {
					return m
				}
				return StringForm(v)
			})
			out.WriteString(b.bind(text))
		} else {
			out.WriteString(literal)
		}
		rest = rest[end+1:]
	}

	if len(missing) > 0 {
		return Statement{}, fmt.Errorf("%w: %s", schema.ErrMissingParameter, strings.Join(missing, ", "))
	}
	return Statement{SQL: out.String(), Args: b.args, Engine: engine}, nil
}

// literalEnd returns the index of the quote closing the literal opened at
// start, honoring doubled quotes, or -1.
func literalEnd(s string, start int) int {
	for i := start + 1; i < len(s); i++ {
		if s[i] != '\'' {
			continue
		}
		if i+1 < len(s) && s[i+1] == '\'' {
			i++
			continue
		}
		return i
	}
	return -1
}

// StringForm is the textual rendering of a parameter value.
func StringForm(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case time.Time:
		return val.Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

type binder struct {
	dialect dbcapabilities.Dialect
	args    []interface{}
}

func newBinder(engine dbcapabilities.DatabaseID) *binder {
	return &binder{dialect: dbcapabilities.DialectFor(engine)}
}

func (b *binder) bind(v interface{}) string {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			v = i
		} else if f, err := n.Float64(); err == nil {
			v = f
		}
	}
	b.args = append(b.args, v)
	return b.dialect.Placeholder(len(b.args))
}
