package importer

import (
	"fmt"
	"io"

	"github.com/centsible/centsible/internal/expense"
	"github.com/centsible/centsible/internal/importer/expensecsv"
)

type Service struct {
	csvImporter Importer
}

func NewService() *Service {
	return &Service{
		csvImporter: expensecsv.New(),
	}
}

func (s *Service) Import(format Format, r io.Reader) ([]expense.CreateParams, error) {
	var imp Importer

	switch format {
	case FormatCSV:
		imp = s.csvImporter
	default:
		return nil, fmt.Errorf("unknown import format: %s", format)
	}

	return imp.Parse(r)
}
