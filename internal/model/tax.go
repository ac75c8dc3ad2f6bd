package model

import "github.com/shopspring/decimal"

// MaxTaxes caps how many taxes can be registered.
const MaxTaxes = 10

// Tax is a federal/municipal tax with one rate per profit regime.
type Tax struct {
	Base
	Name                         string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	PresumedProfitRate           decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"presumed_profit_rate"`
	RealProfitRate               decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"real_profit_rate"`
	PresumedProfitDeductsNetCost bool            `gorm:"not null;default:false" json:"presumed_profit_deducts_net_cost"`
	RealProfitDeductsNetCost     bool            `gorm:"not null;default:false" json:"real_profit_deducts_net_cost"`
}

// RateFor returns the rate and deduction flag that apply under the given regime.
// ok is false for an unknown regime.
func (t Tax) RateFor(profitType string) (rate decimal.Decimal, deducts bool, ok bool) {
	switch profitType {
	case ProfitTypePresumed:
		return t.PresumedProfitRate, t.PresumedProfitDeductsNetCost, true
	case ProfitTypeReal:
		return t.RealProfitRate, t.RealProfitDeductsNetCost, true
	}
	return decimal.Zero, false, false
}
