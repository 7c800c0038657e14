package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Table is the tabular result every provider normalises into: ordered
// named columns over string cells. The aggregator needs column sums,
// grouped sums and row iteration, nothing more.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// NewTable returns an empty table with the given column order.
func NewTable(columns ...string) *Table {
	return &Table{Columns: columns}
}

// AddRow appends one row. Short rows are padded with empty cells so
// every row matches the column count.
func (t *Table) AddRow(cells ...string) {
	for len(cells) < len(t.Columns) {
		cells = append(cells, "")
	}
	t.Rows = append(t.Rows, cells[:len(t.Columns)])
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Len returns the row count.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Sum adds the named column as money values. Empty and non-coercible
// cells count as 0.
func (t *Table) Sum(column string) float64 {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return 0
	}
	var total float64
	for _, row := range t.Rows {
		v, _ := ParseMoney(row[idx])
		total += v
	}
	return total
}

// GroupTotal is one bucket of a grouped sum, kept ordered for stable
// workbook output.
type GroupTotal struct {
	Key   string
	Total float64
}

// GroupBySum sums valueColumn per distinct value of groupColumn,
// returning buckets sorted by key.
func (t *Table) GroupBySum(groupColumn, valueColumn string) []GroupTotal {
	gi, vi := t.ColumnIndex(groupColumn), t.ColumnIndex(valueColumn)
	if gi < 0 || vi < 0 {
		return nil
	}
	totals := make(map[string]float64)
	for _, row := range t.Rows {
		v, _ := ParseMoney(row[vi])
		totals[row[gi]] += v
	}
	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]GroupTotal, 0, len(keys))
	for _, k := range keys {
		out = append(out, GroupTotal{Key: k, Total: totals[k]})
	}
	return out
}

// Validate checks the table against an expected column contract.
func (t *Table) Validate(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	if len(t.Columns) != len(expected) {
		return fmt.Errorf("expected %d columns, got %d", len(expected), len(t.Columns))
	}
	for i, c := range expected {
		if t.Columns[i] != c {
			return fmt.Errorf("column %d: expected %q, got %q", i, c, t.Columns[i])
		}
	}
	return nil
}

// ParseMoney converts a savings cell to a float. Leading dollar signs
// and thousand separators are stripped. The bool result reports whether
// the cell was coercible; callers that tolerate dirty upstream data
// treat false as 0.
func ParseMoney(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
