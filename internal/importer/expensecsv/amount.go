package expensecsv

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parseAmount parses an amount cell into cents. Both "1234.56" and the
// European "1.234,56" form are accepted; a comma anywhere marks the
// European form, where dots are thousands separators.
func parseAmount(s string) (int64, error) {
	clean := s

	if strings.Contains(clean, ",") {
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, err
	}

	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}
