package scraper

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/obsidianstack/statsrelay/pkg/types"
)

// aggregateCategories are the svname values of summary rows.
var aggregateCategories = map[string]bool{
	"frontend": true,
	"backend":  true,
}

// Observation is one normalized value before it is stamped and published.
type Observation struct {
	Name  string
	Value float64
	Kind  types.Kind
}

// headerMap maps a column index to its sanitized header token.
type headerMap map[int]string

// newHeaderMap builds the index map from the header row. HAProxy prefixes the
// first column with "# ", which is dropped before sanitizing.
func newHeaderMap(row []string) headerMap {
	h := make(headerMap, len(row))
	for i, name := range row {
		name = strings.TrimSpace(name)
		if i == 0 {
			name = strings.TrimSpace(strings.TrimPrefix(name, "#"))
		}
		h[i] = Sanitize(name)
	}
	return h
}

// Normalize parses stats CSV lines into observations.
//
// The first line is the header. Each data row yields one observation per
// column from index 2 on: numeric cells become gauges named
// [prefix.]pxname.svname.header; empty cells are skipped; any other text is
// encoded as a 1-valued gauge named [prefix.]pxname.svname.header.value.
//
// Malformed rows are skipped; their errors are combined into the returned
// error, which wraps types.ErrParse. Observations from good rows are still
// returned alongside it.
func Normalize(lines []string, prefix string, ignoreNonAggregate bool) ([]Observation, error) {
	r := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty stats output, no header row", types.ErrParse)
		}
		return nil, fmt.Errorf("%w: header row: %w", types.ErrParse, err)
	}
	headings := newHeaderMap(header)

	var (
		out  []Observation
		errs error
	)
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%w: line %d: %w", types.ErrParse, line, err))
			continue
		}
		if len(row) < 2 || len(row) != len(headings) {
			errs = multierr.Append(errs, fmt.Errorf("%w: line %d: %d columns, header has %d",
				types.ErrParse, line, len(row), len(headings)))
			continue
		}
		if ignoreNonAggregate && !aggregateCategories[strings.ToLower(row[1])] {
			continue
		}
		out = appendRow(out, joinName(prefix, Sanitize(strings.ToLower(row[0])), Sanitize(strings.ToLower(row[1]))), row, headings)
	}
	return out, errs
}

// appendRow emits the observations of one data row.
func appendRow(out []Observation, base string, row []string, headings headerMap) []Observation {
	for i := 2; i < len(row); i++ {
		cell := strings.TrimSpace(row[i])
		if cell == "" {
			continue
		}
		if v, err := strconv.ParseFloat(cell, 64); err == nil {
			out = append(out, Observation{Name: base + "." + headings[i], Value: v, Kind: types.KindGauge})
			continue
		}
		out = append(out, Observation{
			Name:  base + "." + headings[i] + "." + Sanitize(strings.ToLower(cell)),
			Value: 1,
			Kind:  types.KindGauge,
		})
	}
	return out
}

// joinName joins non-empty name segments with '.'.
func joinName(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ".")
}
