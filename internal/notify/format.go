package notify

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ptBR = message.NewPrinter(language.BrazilianPortuguese)

// Currency renders an amount as BRL, e.g. "R$ 1.851,85".
func Currency(v decimal.Decimal) string {
	return ptBR.Sprintf("R$ %.2f", v.InexactFloat64())
}

// Percent renders percentage points with two decimals, e.g. "18,00%".
func Percent(v decimal.Decimal) string {
	return ptBR.Sprintf("%.2f%%", v.InexactFloat64())
}

func currencyPtr(v *decimal.Decimal) string {
	if v == nil {
		return "-"
	}
	return Currency(*v)
}
