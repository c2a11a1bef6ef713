// Package attribute holds the vessel attribute dataset behind the
// ship type and navigational status charts.
package attribute

import (
	"sort"

	"github.com/seatrace/trackdash/pkg/core"
)

// Column names a categorical column of the table.
type Column int

const (
	ShipType Column = iota
	NavStatus
)

// String returns the wire name of the column.
func (c Column) String() string {
	switch c {
	case ShipType:
		return "ship_type"
	case NavStatus:
		return "nav_status"
	default:
		return "unknown"
	}
}

// Value returns the record's value for the column.
func (c Column) Value(r core.AttributeRecord) string {
	switch c {
	case ShipType:
		return r.ShipType
	case NavStatus:
		return r.NavStatus
	default:
		return ""
	}
}

// CategoryCount is one slice of an aggregate chart.
type CategoryCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Table is an immutable set of attribute records.
type Table struct {
	records []core.AttributeRecord
}

// NewTable copies the records into a table.
func NewTable(records []core.AttributeRecord) *Table {
	rows := make([]core.AttributeRecord, len(records))
	copy(rows, records)
	return &Table{records: rows}
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.records)
}

// Records returns the underlying rows. Callers must not modify them.
func (t *Table) Records() []core.AttributeRecord {
	return t.records
}

// Condition restricts one column to a single value.
type Condition struct {
	Column Column
	Value  string
}

// Filter returns the rows matching every condition. No conditions returns
// the whole table.
func (t *Table) Filter(conds ...Condition) []core.AttributeRecord {
	if len(conds) == 0 {
		return t.records
	}
	out := make([]core.AttributeRecord, 0, len(t.records))
	for _, r := range t.records {
		if matches(r, conds) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r core.AttributeRecord, conds []Condition) bool {
	for _, c := range conds {
		if c.Column.Value(r) != c.Value {
			return false
		}
	}
	return true
}

// Count groups rows by the column and counts each distinct value.
// Rows with an empty value are not counted.
// Ordered by count descending, then label ascending.
func Count(rows []core.AttributeRecord, col Column) []CategoryCount {
	counts := make(map[string]int)
	for _, r := range rows {
		v := col.Value(r)
		if v == "" {
			continue
		}
		counts[v]++
	}

	out := make([]CategoryCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, CategoryCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// Total sums the counts.
func Total(counts []CategoryCount) int {
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	return total
}
