// Package output prints CLI results.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// Out is where results are written.
var Out io.Writer = os.Stdout

var (
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Success prints a confirmation line.
func Success(format string, args ...interface{}) {
	_, _ = green.Fprintf(Out, "✓ "+format+"\n", args...)
}

// Failure prints a failed outcome that is not a command error.
func Failure(format string, args ...interface{}) {
	_, _ = red.Fprintf(Out, "✗ "+format+"\n", args...)
}

// Warning prints a highlighted notice.
func Warning(format string, args ...interface{}) {
	_, _ = yellow.Fprintf(Out, "! "+format+"\n", args...)
}

// Heading prints a section title.
func Heading(format string, args ...interface{}) {
	_, _ = cyan.Fprintf(Out, format+"\n", args...)
}

// Table prints rows under the given header.
func Table(header []string, rows [][]string) {
	w := tabwriter.NewWriter(Out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	underline := make([]string, len(header))
	for i, h := range header {
		underline[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(w, strings.Join(underline, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

// Records prints result rows as a table with sorted column names.
func Records(records []map[string]interface{}) {
	if len(records) == 0 {
		fmt.Fprintln(Out, "No rows")
		return
	}

	seen := make(map[string]bool)
	var columns []string
	for _, r := range records {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)

	rows := make([][]string, len(records))
	for i, r := range records {
		row := make([]string, len(columns))
		for j, c := range columns {
			row[j] = cell(r[c])
		}
		rows[i] = row
	}
	Table(columns, rows)
}

func cell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
	return fmt.Sprint(v)
}

// JSON prints v as indented JSON.
func JSON(v interface{}) error {
	enc := json.NewEncoder(Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// YAML prints v as YAML. Values are routed through JSON first so the output
// uses the API's field names.
func YAML(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	enc := yaml.NewEncoder(Out)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// Print writes v in the requested format: table (the caller's own layout),
// json or yaml. It reports whether it handled the value.
func Print(format string, v interface{}) (bool, error) {
	switch format {
	case "json":
		return true, JSON(v)
	case "yaml":
		return true, YAML(v)
	case "", "table":
		return false, nil
	}
	return true, fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
}
