// models holds the data shared by the heatmap engine, its row sources and its views.
package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// RowSet is one fetched csv resource: the header and its records, as read.
// A RowSet is never modified after the source returns it; extraction only reads it.
type RowSet struct {
	Header  []string
	Records [][]string
}

// CellKey is the identity of a heatmap cell, a selection entry and a color binding.
type CellKey struct {
	Bracket string
	Nation  string
}

// Id returns the svg element id of the cell. Dots and spaces are not valid in
// the ids the client script looks up, so they are replaced.
func (key CellKey) Id() string {
	r := strings.NewReplacer(".", "_", " ", "_")
	return "cell-" + r.Replace(key.Nation) + "-" + r.Replace(key.Bracket)
}

// Point is a single dated measurement of a series.
type Point struct {
	Date  string
	Value float64
}

// Series is the history of one selected cell, as plotted by the line chart.
type Series struct {
	Key    CellKey
	Color  string
	Points []Point
}

// Fixed column names. The bracket and measurement columns are prefixed by the game mode,
// e.g. RB_br and RB_win_rate.
const (
	DateColumn     = "date"
	ClassColumn    = "cls"
	NationColumn   = "nation"
	BracketSuffix  = "br"
	altClassColumn = "class"
)

// ErrMissingColumn is returned when a row set lacks a column required by the active selectors.
var ErrMissingColumn error = errors.New("row set is missing a required column")

// Accessor is the typed view of a RowSet for a given mode and measurement. Column positions
// are resolved once, so reading a record never builds field names.
type Accessor struct {
	date, class, nation, bracket, value int
}

// Accessor resolves the columns for mode and measurement.
func (rs *RowSet) Accessor(mode, measurement string) (acc *Accessor, err error) {
	index := make(map[string]int, len(rs.Header))
	for i, name := range rs.Header {
		index[strings.TrimSpace(name)] = i
	}

	lookup := func(names ...string) int {
		for _, name := range names {
			if i, ok := index[name]; ok {
				return i
			}
		}
		if err == nil {
			err = fmt.Errorf("%w: %s", ErrMissingColumn, names[0])
		}
		return -1
	}

	acc = &Accessor{
		date:    lookup(DateColumn),
		class:   lookup(ClassColumn, altClassColumn),
		nation:  lookup(NationColumn),
		bracket: lookup(mode + "_" + BracketSuffix),
		value:   lookup(mode + "_" + measurement),
	}
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func (acc *Accessor) Date(rec []string) string    { return field(rec, acc.date) }
func (acc *Accessor) Class(rec []string) string   { return field(rec, acc.class) }
func (acc *Accessor) Nation(rec []string) string  { return field(rec, acc.nation) }
func (acc *Accessor) Bracket(rec []string) string { return field(rec, acc.bracket) }

// Value parses the measurement of the record. An empty field means no data was recorded
// and reads as zero, the no-data sentinel.
func (acc *Accessor) Value(rec []string) (float64, error) {
	raw := strings.TrimSpace(field(rec, acc.value))
	if raw == "" {
		return 0, nil
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse value %q: %w", raw, err)
	}
	return val, nil
}

// Key returns the cell identity of the record.
func (acc *Accessor) Key(rec []string) CellKey {
	return CellKey{
		Bracket: acc.Bracket(rec),
		Nation:  acc.Nation(rec),
	}
}
