// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"
)

const (
	outputAuto  = "auto"
	outputJSON  = "json"
	outputYAML  = "yaml"
	outputTable = "table"
)

var headerStyle = lipgloss.NewStyle().Bold(true).PaddingRight(2)
var cellStyle = lipgloss.NewStyle().PaddingRight(2)

func isTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// writeResult prints data in the requested mode. Text responses are always printed as received
func writeResult(w io.Writer, mode string, header []string, data any) error {
	if text, ok := data.(string); ok {
		_, err := io.WriteString(w, text)
		return err
	}
	if mode == outputAuto {
		mode = outputJSON
		if _, ok := tableRows(data); ok && isTerminal() {
			mode = outputTable
		}
	}
	switch mode {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	case outputTable:
		rows, ok := tableRows(data)
		if !ok {
			return fmt.Errorf("response is not a list of rows and cannot be shown as a table")
		}
		_, err := fmt.Fprintln(w, renderTable(header, rows))
		return err
	default:
		return fmt.Errorf("unknown output format: %s", mode)
	}
}

// tableRows converts a decoded JSON list of lists into string cells
func tableRows(data any) ([][]string, bool) {
	list, ok := data.([]any)
	if !ok {
		return nil, false
	}
	rows := make([][]string, 0, len(list))
	for _, item := range list {
		row, ok := item.([]any)
		if !ok {
			return nil, false
		}
		cells := make([]string, len(row))
		for i, cell := range row {
			switch v := cell.(type) {
			case string:
				cells[i] = v
			case nil:
				cells[i] = ""
			default:
				tmp, err := json.Marshal(v)
				if err != nil {
					cells[i] = fmt.Sprint(v)
				} else {
					cells[i] = string(tmp)
				}
			}
		}
		rows = append(rows, cells)
	}
	return rows, true
}

func renderTable(header []string, rows [][]string) string {
	tbl := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Rows(rows...)
	if len(header) > 0 {
		tbl = tbl.Headers(header...)
	}
	return tbl.Render()
}
