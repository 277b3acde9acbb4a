// Package input reads documents and parameters given on the command line.
package input

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Stdin is the path that reads the document from standard input.
const Stdin = "-"

// Load reads a YAML or JSON document and returns it as JSON. Files ending in
// .json are passed through; anything else is parsed as YAML, which also
// accepts JSON.
func Load(path string) ([]byte, error) {
	var data []byte
	var err error
	if path == Stdin {
		data, err = io.ReadAll(os.Stdin)
	} else {
		//nolint:gosec // the path is given by the operator
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %v", path, err)
	}
	return ToJSON(data, strings.EqualFold(filepath.Ext(path), ".json"))
}

// ToJSON converts a YAML document to JSON. With isJSON the data is only checked.
func ToJSON(data []byte, isJSON bool) ([]byte, error) {
	if isJSON {
		if !json.Valid(data) {
			return nil, fmt.Errorf("document is not valid JSON")
		}
		return data, nil
	}

	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %v", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("document is empty")
	}
	out, err := json.Marshal(normalize(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to convert document: %v", err)
	}
	return out, nil
}

// Decode loads the document at path into v.
func Decode(path string, v interface{}) error {
	data, err := Load(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid document %s: %v", path, err)
	}
	return nil
}

// normalize turns the map[interface{}]interface{} values YAML produces for
// non-string keys into JSON-encodable maps.
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, item := range val {
			val[k] = normalize(item)
		}
		return val
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []interface{}:
		for i, item := range val {
			val[i] = normalize(item)
		}
		return val
	}
	return v
}

// ParseParams turns repeated key=value flags into template parameters.
// Integers and decimals are sent as numbers, everything else as text. Quote
// a value ('007') to keep it as text.
func ParseParams(pairs []string) (map[string]interface{}, error) {
	params := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", pair)
		}
		params[key] = parseValue(value)
	}
	return params, nil
}

func parseValue(value string) interface{} {
	if len(value) >= 2 && value[0] == '\'' && value[len(value)-1] == '\'' {
		return value[1 : len(value)-1]
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil && !strings.ContainsAny(value, "xXnN") {
		return f
	}
	return value
}
