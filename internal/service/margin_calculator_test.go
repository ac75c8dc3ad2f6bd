package service

import (
	"testing"

	"margin/internal/apperror"
	"margin/internal/model"

	"github.com/shopspring/decimal"
)

func TestSolveSalePriceWorkedExample(t *testing.T) {
	price, err := SolveSalePrice(MarginInput{
		NetCostWithoutTaxes: dec("1000"),
		ICMSRate:            dec("21"),
		OtherTaxes:          dec("10"),
		Margin:              dec("10"),
		Commission:          dec("5"),
	})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if !price.Equal(dec("1852")) {
		t.Fatalf("expected 1852, got %s", price)
	}
}

func TestSolveSalePriceAddsFreightComponent(t *testing.T) {
	in := MarginInput{
		NetCostWithoutTaxes: dec("1000"),
		FreightValue:        dec("100"),
		ICMSRate:            dec("21"),
		OtherTaxes:          dec("10"),
		Margin:              dec("10"),
		Commission:          dec("5"),
		AdminRate:           dec("5"),
	}
	price, err := SolveSalePrice(in)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	// 1000/0.54 + 100/0.80 = 1851.85 + 125 = 1976.85 -> 1977
	if !price.Equal(dec("1977")) {
		t.Fatalf("expected 1977, got %s", price)
	}
}

func TestSolveSalePriceAppliesEndConsumerRate(t *testing.T) {
	price, err := SolveSalePrice(MarginInput{
		NetCostWithoutTaxes: dec("1000"),
		ICMSRate:            dec("21"),
		OtherTaxes:          dec("10"),
		Margin:              dec("10"),
		Commission:          dec("5"),
		EndConsumerRate:     dec("4"),
	})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	// 1000/0.50 = 2000 -> round(2000.5) = 2000 with half-even
	if !price.Equal(dec("2000")) {
		t.Fatalf("expected 2000, got %s", price)
	}
}

func TestSolveSalePriceRejectsRatesOver100(t *testing.T) {
	cases := map[string]MarginInput{
		"margin denominator": {
			NetCostWithoutTaxes: dec("1000"),
			ICMSRate:            dec("50"),
			OtherTaxes:          dec("20"),
			Margin:              dec("30"),
		},
		"freight denominator": {
			NetCostWithoutTaxes: dec("1000"),
			FreightValue:        dec("10"),
			OtherTaxes:          dec("10"),
			AdminRate:           dec("90"),
		},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := SolveSalePrice(in)
			if !apperror.Is(err, apperror.KindBadRequest) {
				t.Fatalf("expected bad request, got %v", err)
			}
		})
	}
}

func TestMarginInputForUsesInternalRateForTaxpayers(t *testing.T) {
	c := &model.Contract{
		ICMSRate: &model.ICMSRate{InternalRate: dec("18"), DifalRate: dec("2"), PovertyRate: dec("1")},
	}
	if got := MarginInputFor(c, dec("10"), decimal.Zero).ICMSRate; !got.Equal(dec("21")) {
		t.Fatalf("non taxpayer should bear the total rate, got %s", got)
	}
	c.IsICMSTaxpayer = true
	if got := MarginInputFor(c, dec("10"), decimal.Zero).ICMSRate; !got.Equal(dec("18")) {
		t.Fatalf("taxpayer should bear the internal rate, got %s", got)
	}
}

func TestICMSTotalRate(t *testing.T) {
	r := model.ICMSRate{InternalRate: dec("18"), DifalRate: dec("2"), PovertyRate: dec("1")}
	if !r.TotalRate().Equal(dec("21")) {
		t.Fatalf("expected 21, got %s", r.TotalRate())
	}
}

func TestDistributeSalePriceIsIdempotent(t *testing.T) {
	items := []model.ContractItem{
		{Index: 1, ContributionRate: dec("75")},
		{Index: 2, ContributionRate: dec("25")},
	}
	in := MarginInput{NetCostWithoutTaxes: dec("1000"), ICMSRate: dec("21"), OtherTaxes: dec("10"), Margin: dec("10"), Commission: dec("5")}

	var first []string
	for run := 0; run < 2; run++ {
		price, err := SolveSalePrice(in)
		if err != nil {
			t.Fatalf("solve: %v", err)
		}
		DistributeSalePrice(price, items)
		got := []string{items[0].UpdatedValue.String(), items[1].UpdatedValue.String()}
		if run == 0 {
			first = got
			continue
		}
		if got[0] != first[0] || got[1] != first[1] {
			t.Fatalf("second run changed values: %v vs %v", got, first)
		}
	}
	if first[0] != "1389" || first[1] != "463" {
		t.Fatalf("unexpected distribution %v", first)
	}
}
