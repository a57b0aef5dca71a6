package expensecsv

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	input := "date,amount,description,category,notes,tags\n" +
		"2024-03-01,12.50,Morning coffee,food,,coffee;breakfast\n" +
		"2024-03-02,\"1.234,56\",Rent,housing,march,\n" +
		"2024-03-03,7,Bus ticket,transport,,\n"

	p := New()

	params, err := p.Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, params, 3)

	assert.Equal(t, int64(1250), params[0].Amount)
	assert.Equal(t, "Morning coffee", params[0].Description)
	assert.Equal(t, "food", params[0].Category)
	assert.Equal(t, []string{"coffee", "breakfast"}, params[0].Tags)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), params[0].Date)

	assert.Equal(t, int64(123456), params[1].Amount)
	assert.Equal(t, "march", params[1].Notes)

	assert.Equal(t, int64(700), params[2].Amount)
	assert.Empty(t, params[2].Tags)
}

func TestParse_ColumnSubsetAndOrder(t *testing.T) {
	input := "amount,date,description\n10.00,2024-01-15,Lunch\n"

	params, err := New().Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, int64(1000), params[0].Amount)
	assert.Equal(t, "Lunch", params[0].Description)
}

func TestParse_MissingRequiredColumn(t *testing.T) {
	input := "date,description\n2024-01-15,Lunch\n"

	_, err := New().Parse(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount")
}

func TestParse_BadDate(t *testing.T) {
	input := "date,amount,description\nyesterday,10.00,Lunch\n"

	_, err := New().Parse(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"12.50", 1250},
		{"1.234,56", 123456},
		{"-588,74", -58874},
		{"7", 700},
		{"0,05", 5},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAmount(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
