// Package expensecsv parses the portable expense CSV format:
//
//	date,amount,description,category,notes,tags
//
// Column order is taken from the header row, so exports with a subset or
// reordering of the columns still import. Tags are separated by
// semicolons inside their cell.
package expensecsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	enc "github.com/centsible/centsible/internal/encoding"
	"github.com/centsible/centsible/internal/expense"
)

type Parser struct{}

func New() *Parser {
	return &Parser{}
}

var requiredColumns = []string{"date", "amount", "description"}

func (p *Parser) Parse(r io.Reader) ([]expense.CreateParams, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	cols, err := indexHeader(rows[0])
	if err != nil {
		return nil, err
	}

	var params []expense.CreateParams

	for i, row := range rows[1:] {
		p, err := parseRow(cols, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}

		params = append(params, p)
	}

	return params, nil
}

// colIndex maps lowercased column names to their position in a row.
type colIndex map[string]int

func indexHeader(header []string) (colIndex, error) {
	cols := make(colIndex, len(header))

	for i, cell := range header {
		name := strings.ToLower(strings.TrimSpace(cell))
		if name != "" {
			cols[name] = i
		}
	}

	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}

	return cols, nil
}

func parseRow(cols colIndex, row []string) (expense.CreateParams, error) {
	cell := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}

		return strings.TrimSpace(row[idx])
	}

	date, err := parseDate(cell("date"))
	if err != nil {
		return expense.CreateParams{}, err
	}

	amount, err := parseAmount(cell("amount"))
	if err != nil {
		return expense.CreateParams{}, err
	}

	params := expense.CreateParams{
		Amount:      amount,
		Description: cell("description"),
		Category:    cell("category"),
		Notes:       cell("notes"),
		Date:        date,
	}

	if tags := cell("tags"); tags != "" {
		for _, tag := range strings.Split(tags, ";") {
			if tag = strings.TrimSpace(tag); tag != "" {
				params.Tags = append(params.Tags, tag)
			}
		}
	}

	return params, nil
}

var dateLayouts = []string{time.DateOnly, "02/01/2006", "02-01-2006", time.RFC3339}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
