package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

type outputFormat string

const (
	formatTable outputFormat = "table"
	formatJSON  outputFormat = "json"
	formatYAML  outputFormat = "yaml"
)

func validateOutputFormat(format string) error {
	switch outputFormat(format) {
	case formatTable, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("invalid output format %q (valid: table, json, yaml)", format)
	}
}

// tableData is what a command prints in table mode.
type tableData struct {
	header table.Row
	rows   []table.Row
}

// render prints data as JSON or YAML, or the table built by toTable.
func render(w io.Writer, format string, data any, toTable func() tableData) error {
	switch outputFormat(format) {
	case formatJSON:
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format as JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case formatYAML:
		out, err := yaml.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to format as YAML: %w", err)
		}
		_, err = w.Write(out)
		return err
	}

	td := toTable()
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(td.header)
	t.AppendRows(td.rows)
	t.Render()
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
