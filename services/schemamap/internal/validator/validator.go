// Package validator checks records against the column rules of a tenant's
// mapped table.
package validator

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/telehostca/chatbot-backend/services/schemamap/internal/schema"
)

// ModelSource looks up a tenant's model. The registry implements it.
type ModelSource interface {
	Get(tenantID string) *schema.Model
}

// Result is the outcome of validating one record.
type Result struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// Err returns a *ValidationError when the record is invalid, nil otherwise.
func (r Result) Err() error {
	if r.IsValid {
		return nil
	}
	return &ValidationError{Fields: r.Errors}
}

// ValidationError carries the itemized field messages of a failed record.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", schema.ErrValidationFailed, strings.Join(e.Fields, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == schema.ErrValidationFailed
}

// Validator validates records against registered models.
type Validator struct {
	models ModelSource

	mu       sync.RWMutex
	patterns map[string]*regexp.Regexp
}

// New creates a validator reading models from src.
func New(src ModelSource) *Validator {
	return &Validator{
		models:   src,
		patterns: make(map[string]*regexp.Regexp),
	}
}

// Validate checks record against the columns of role in the tenant's model.
// Data problems never produce an error; they are reported in the Result.
func (v *Validator) Validate(tenantID, role string, record map[string]interface{}) Result {
	model := v.models.Get(tenantID)
	if model == nil {
		return invalid(fmt.Sprintf("no schema registered for tenant %s", tenantID))
	}
	table, ok := model.Table(role)
	if !ok {
		return invalid(fmt.Sprintf("unknown table role %s", role))
	}
	return v.ValidateTable(table, record)
}

// ValidateTable checks record against an explicit table schema.
func (v *Validator) ValidateTable(table *schema.TableSchema, record map[string]interface{}) Result {
	errs := make([]string, 0)

	for _, col := range table.Columns {
		value, present := record[col.CanonicalName]
		if !present || isEmpty(value) {
			if col.Required {
				errs = append(errs, fmt.Sprintf("%s is required", col.CanonicalName))
			}
			continue
		}

		if msg := checkType(col.CanonicalName, col.DataType, value); msg != "" {
			errs = append(errs, msg)
			continue
		}

		if col.Validation != nil {
			errs = append(errs, v.checkRules(col.CanonicalName, col.Validation, value)...)
		}
	}

	return Result{IsValid: len(errs) == 0, Errors: errs}
}

func invalid(msg string) Result {
	return Result{IsValid: false, Errors: []string{msg}}
}

func isEmpty(value interface{}) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func checkType(field string, dataType schema.DataType, value interface{}) string {
	switch dataType {
	case schema.TypeNumber:
		if _, ok := toFloat(value); !ok {
			return fmt.Sprintf("%s must be a number", field)
		}
	case schema.TypeDate:
		if !isDate(value) {
			return fmt.Sprintf("%s must be a valid date", field)
		}
	case schema.TypeBoolean:
		if _, ok := toBool(value); !ok {
			return fmt.Sprintf("%s must be a boolean", field)
		}
	case schema.TypeJSON:
		if !isJSON(value) {
			return fmt.Sprintf("%s must be valid JSON", field)
		}
	case schema.TypeString, "":
		if _, ok := value.(string); !ok {
			return fmt.Sprintf("%s must be a string", field)
		}
	}
	return ""
}

func (v *Validator) checkRules(field string, rule *schema.ColumnRule, value interface{}) []string {
	var errs []string
	text := stringForm(value)

	if rule.Pattern != "" {
		re, err := v.compile(rule.Pattern)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s has an invalid validation pattern", field))
		} else if !re.MatchString(text) {
			errs = append(errs, fmt.Sprintf("%s does not match the required format", field))
		}
	}

	length := utf8.RuneCountInString(text)
	if rule.MinLength != nil && length < *rule.MinLength {
		errs = append(errs, fmt.Sprintf("%s must be at least %d characters", field, *rule.MinLength))
	}
	if rule.MaxLength != nil && length > *rule.MaxLength {
		errs = append(errs, fmt.Sprintf("%s must be at most %d characters", field, *rule.MaxLength))
	}

	if rule.MinValue != nil || rule.MaxValue != nil {
		n, ok := toFloat(value)
		switch {
		case !ok:
			errs = append(errs, fmt.Sprintf("%s must be numeric to check its range", field))
		default:
			if rule.MinValue != nil && n < *rule.MinValue {
				errs = append(errs, fmt.Sprintf("%s must be at least %s", field, formatNumber(*rule.MinValue)))
			}
			if rule.MaxValue != nil && n > *rule.MaxValue {
				errs = append(errs, fmt.Sprintf("%s must be at most %s", field, formatNumber(*rule.MaxValue)))
			}
		}
	}

	if len(rule.AllowedValues) > 0 && !allowed(rule.AllowedValues, value) {
		options := make([]string, len(rule.AllowedValues))
		for i, a := range rule.AllowedValues {
			options[i] = stringForm(a)
		}
		errs = append(errs, fmt.Sprintf("%s must be one of: %s", field, strings.Join(options, ", ")))
	}

	return errs
}

func (v *Validator) compile(pattern string) (*regexp.Regexp, error) {
	v.mu.RLock()
	re, ok := v.patterns[pattern]
	v.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	v.patterns[pattern] = re
	v.mu.Unlock()
	return re, nil
}

func allowed(options []interface{}, value interface{}) bool {
	text := stringForm(value)
	num, isNum := toFloat(value)
	for _, opt := range options {
		if stringForm(opt) == text {
			return true
		}
		if isNum {
			if o, ok := toFloat(opt); ok && o == num {
				return true
			}
		}
	}
	return false
}

func stringForm(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return formatNumber(v)
	case float32:
		return formatNumber(float64(v))
	case json.Number:
		return v.String()
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	case bool:
		return 0, false
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return 0, false
}

func toBool(value interface{}) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		}
	}
	return false, false
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006",
}

func isDate(value interface{}) bool {
	switch v := value.(type) {
	case time.Time:
		return !v.IsZero()
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, s); err == nil {
				return true
			}
		}
	}
	return false
}

func isJSON(value interface{}) bool {
	switch v := value.(type) {
	case string:
		return json.Valid([]byte(v))
	case map[string]interface{}, []interface{}:
		return true
	case json.RawMessage:
		return json.Valid(v)
	}
	_, err := json.Marshal(value)
	return err == nil
}
