package service

import (
	"margin/internal/apperror"
	"margin/internal/model"

	"github.com/shopspring/decimal"
)

var (
	one  = decimal.NewFromInt(1)
	half = decimal.NewFromFloat(0.5)
)

// MarginInput carries every rate of the pricing equation in percentage points.
type MarginInput struct {
	NetCostWithoutTaxes decimal.Decimal
	FreightValue        decimal.Decimal
	ICMSRate            decimal.Decimal
	OtherTaxes          decimal.Decimal
	Margin              decimal.Decimal
	Commission          decimal.Decimal
	EndConsumerRate     decimal.Decimal
	AdminRate           decimal.Decimal
}

// MarginInputFor collects the equation inputs of a contract. ICMS taxpayers
// only bear the internal rate.
func MarginInputFor(c *model.Contract, margin, adminRate decimal.Decimal) MarginInput {
	icms := decimal.Zero
	if c.ICMSRate != nil {
		icms = c.ICMSRate.TotalRate()
		if c.IsICMSTaxpayer {
			icms = c.ICMSRate.InternalRate
		}
	}
	return MarginInput{
		NetCostWithoutTaxes: c.NetCostWithoutTaxes,
		FreightValue:        c.FreightValue,
		ICMSRate:            icms,
		OtherTaxes:          c.OtherTaxes,
		Margin:              margin,
		Commission:          c.Commission,
		EndConsumerRate:     c.EndConsumerRate,
		AdminRate:           adminRate,
	}
}

// SolveSalePrice finds the price that still leaves the requested margin after
// every rate charged on the price itself:
//
//	price = cost / (1 - icms - other - margin - commission - end_consumer)
//	      + freight / (1 - other - admin - commission)
//
// rounded with round-half-even after adding 0.5.
func SolveSalePrice(in MarginInput) (decimal.Decimal, error) {
	marginDenom := one.
		Sub(pct(in.ICMSRate)).
		Sub(pct(in.OtherTaxes)).
		Sub(pct(in.Margin)).
		Sub(pct(in.Commission))
	if in.EndConsumerRate.IsPositive() {
		marginDenom = marginDenom.Sub(pct(in.EndConsumerRate))
	}
	if !marginDenom.IsPositive() {
		return decimal.Zero, apperror.BadRequest("rates exceed 100%%")
	}
	price := in.NetCostWithoutTaxes.Div(marginDenom)

	if in.FreightValue.IsPositive() {
		freightDenom := one.
			Sub(pct(in.OtherTaxes)).
			Sub(pct(in.AdminRate)).
			Sub(pct(in.Commission))
		if !freightDenom.IsPositive() {
			return decimal.Zero, apperror.BadRequest("rates exceed 100%%")
		}
		price = price.Add(in.FreightValue.Div(freightDenom))
	}

	return price.Add(half).RoundBank(0), nil
}

// DistributeSalePrice sets each item's unit value from its contribution rate.
func DistributeSalePrice(price decimal.Decimal, items []model.ContractItem) {
	for i := range items {
		v := price.Mul(items[i].ContributionRate).Div(hundred).Round(4)
		items[i].UpdatedValue = &v
	}
}

func pct(rate decimal.Decimal) decimal.Decimal {
	return rate.Div(hundred)
}
