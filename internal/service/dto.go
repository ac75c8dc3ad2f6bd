package service

import (
	"time"

	"github.com/shopspring/decimal"
)

const timeLayout = "2006-01-02 15:04:05"

// DetailResponse is the body of operations that only report an outcome.
type DetailResponse struct {
	Detail string `json:"detail"`
}

func toFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func toFloatPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

// rate converts a request value to a two-decimal rate.
func rate(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(timeLayout)
	return &s
}
