package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/mops/internal/coordinator"
	"github.com/roach88/mops/internal/record"
)

// recordTable renders records as an aligned table with one column per
// field name seen in any record.
type recordTable []record.Record

func (t recordTable) renderText(w io.Writer) error {
	if len(t) == 0 {
		_, err := fmt.Fprintln(w, "(no records)")
		return err
	}

	cols := fieldColumns(t)
	header := make([]string, 0, len(cols)+1)
	header = append(header, "ID")
	for _, c := range cols {
		header = append(header, columnTitle(c))
	}

	rows := make([][]string, 0, len(t))
	for _, r := range t {
		row := make([]string, 0, len(cols)+1)
		row = append(row, r.ID.String())
		for _, c := range cols {
			row = append(row, formatValue(r.Fields[c]))
		}
		rows = append(rows, row)
	}
	return writeTable(w, header, rows)
}

// recordRow is a single record: an object in JSON, a one-row table in text.
type recordRow struct {
	record.Record
}

func (r recordRow) renderText(w io.Writer) error {
	return recordTable{r.Record}.renderText(w)
}

type statusTable []coordinator.Status

func (t statusTable) renderText(w io.Writer) error {
	rows := make([][]string, 0, len(t))
	for _, s := range t {
		rows = append(rows, []string{s.Key, s.Mode, strconv.Itoa(s.Count)})
	}
	return writeTable(w, []string{columnTitle("collection"), columnTitle("mode"), columnTitle("records")}, rows)
}

type keyList []string

func (k keyList) renderText(w io.Writer) error {
	if len(k) == 0 {
		_, err := fmt.Fprintln(w, "(no collections cached)")
		return err
	}
	for _, key := range k {
		if _, err := fmt.Fprintln(w, key); err != nil {
			return err
		}
	}
	return nil
}

type deleteResult struct {
	Collection string    `json:"collection"`
	ID         record.ID `json:"id"`
}

func (d deleteResult) renderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Deleted %s/%s\n", d.Collection, d.ID)
	return err
}

type putRawResult struct {
	Collection string `json:"collection"`
	Bytes      int    `json:"bytes"`
}

func (p putRawResult) renderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Wrote %d bytes to %s\n", p.Bytes, p.Collection)
	return err
}

func writeTable(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func fieldColumns(records []record.Record) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, r := range records {
		for name := range r.Fields {
			if !seen[name] {
				seen[name] = true
				cols = append(cols, name)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

// columnTitle turns a field name like asset_type_id into "Asset Type Id".
func columnTitle(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}
