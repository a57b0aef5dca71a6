package importer

import (
	"io"

	"github.com/centsible/centsible/internal/expense"
)

// Format names a supported import file format.
type Format string

const (
	FormatCSV Format = "csv"
)

type Importer interface {
	Parse(r io.Reader) ([]expense.CreateParams, error)
}
