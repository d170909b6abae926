// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/urfave/cli/v3"

	"github.com/staranto/leobotgo/internal/config"
	"github.com/staranto/leobotgo/internal/record"
)

// Formats accepted by the --output flag.
var Formats = []string{"text", "json", "raw", "yaml"}

// Options controls how a dataset is filtered, sorted and rendered.
type Options struct {
	Format string
	Color  bool
	Titles bool
	Filter string
	Sort   string
}

// OptionsFromCommand reads the common output flags. Flags a command does not
// define read as their zero value.
func OptionsFromCommand(cmd *cli.Command) Options {
	return Options{
		Format: cmd.String("output"),
		Color:  cmd.Bool("color"),
		Titles: cmd.Bool("titles"),
		Filter: cmd.String("filter"),
		Sort:   cmd.String("sort"),
	}
}

// SliceDiceSpit filters, sorts and renders rows. cols selects the columns and
// their order.
func SliceDiceSpit(rows []map[string]interface{}, cols []string, opts Options, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}

	filtered := FilterDataset(rows, opts.Filter)
	SortDataset(filtered, opts.Sort)

	switch opts.Format {
	case "json":
		out, err := json.MarshalIndent(project(filtered, cols), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal rows: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case "raw":
		// One compact document per line.
		for _, rec := range project(filtered, cols) {
			out, err := rec.MarshalJSON()
			if err != nil {
				return fmt.Errorf("failed to marshal row: %w", err)
			}
			if _, err := fmt.Fprintln(w, string(out)); err != nil {
				return err
			}
		}
		return nil
	case "yaml":
		return writeYAML(w, sequenceNode(project(filtered, cols)))
	default:
		TableWriter(filtered, cols, opts, w)
		return nil
	}
}

// project turns rows into ordered records holding only cols.
func project(rows []map[string]interface{}, cols []string) []*record.Record {
	out := make([]*record.Record, 0, len(rows))
	for _, row := range rows {
		rec := record.New()
		for _, c := range cols {
			rec.Set(c, record.FromInterface(row[c]))
		}
		out = append(out, rec)
	}
	return out
}

// TableWriter renders the result set in a tabular form honoring color,
// titles and padding options.
func TableWriter(
	resultSet []map[string]interface{},
	cols []string,
	opts Options,
	w io.Writer) {

	if len(resultSet) == 0 {
		return
	}

	var (
		headerStyle  = lipgloss.NewStyle().Align(lipgloss.Left)
		cellStyle    = lipgloss.NewStyle().Padding(0, 0).Align(lipgloss.Left)
		evenRowStyle = cellStyle
		oddRowStyle  = cellStyle
	)

	if opts.Color {
		headerColor, evenColor, oddColor := getColors("colors")

		headerStyle = headerStyle.Foreground(lipgloss.Color(headerColor))
		evenRowStyle = evenRowStyle.Foreground(lipgloss.Color(evenColor))
		oddRowStyle = oddRowStyle.Foreground(lipgloss.Color(oddColor))
	}

	pad, _ := config.GetInt("padding", 1)
	log.Debugf("padding: %v", pad)

	var rows [][]string
	for _, result := range resultSet {
		row := make([]string, 0, len(cols))
		for _, c := range cols {
			row = append(row, InterfaceToString(result[c], "-"))
		}
		rows = append(rows, row)
	}

	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			var style lipgloss.Style
			switch {
			case row == table.HeaderRow:
				style = headerStyle
			case row%2 == 0:
				style = evenRowStyle
			default:
				style = oddRowStyle
			}

			if col > 0 {
				style = style.PaddingLeft(pad)
			}

			return style
		}).
		Headers().
		Rows(rows...)

	if opts.Titles {
		// https://github.com/charmbracelet/lipgloss/issues/261
		t = t.Headers(cols...).BorderHeader(false)
	}
	fmt.Fprintln(w, t)
}

// getColors returns configured color values for table rendering.
func getColors(key string) (header string, even string, odd string) {
	header, _ = config.GetString(fmt.Sprintf("%s.title", key), "#f6be00")
	even, _ = config.GetString(fmt.Sprintf("%s.even", key), "#ffffff")
	odd, _ = config.GetString(fmt.Sprintf("%s.odd", key), "#00c8f0")
	return
}

// InterfaceToString converts supported primitive or composite values to a
// string. nil and empty strings or collections render as the empty value,
// which defaults to "".
func InterfaceToString(value interface{}, emptyValue ...string) string {
	if len(emptyValue) == 0 {
		emptyValue = []string{""}
	}

	if value == nil {
		return emptyValue[0]
	}

	switch value := value.(type) {
	case string:
		if value == "" {
			return emptyValue[0]
		}
		return value
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	case fmt.Stringer:
		return value.String()
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		if rv.Len() == 0 {
			return emptyValue[0]
		}
	}

	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(jsonBytes)
}
