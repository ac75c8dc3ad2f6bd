package service

import (
	"context"
	"strings"
	"testing"

	"margin/internal/apperror"
	"margin/internal/erp"
	"margin/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func contributorOf(code int) ContributorLookup {
	return func(ctx context.Context, clientID int64) (int, error) { return code, nil }
}

func normalizeInput(f fixture, rec *erp.ContractRecord) NormalizeInput {
	return NormalizeInput{
		Record:      rec,
		Company:     &f.company,
		TaxIDs:      []uuid.UUID{f.pis.ID, f.irpj.ID},
		Contributor: contributorOf(9),
	}
}

func TestNormalizeBuildsContract(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	n := NewContractNormalizer(newRateResolver(db))

	c, err := n.Normalize(context.Background(), normalizeInput(f, erpRecord()))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	if c.ContractID != 77 || c.ContractNumber != "C-100" || c.ClientID != 42 {
		t.Fatalf("unexpected identity %+v", c)
	}
	if c.ICMSRateID != f.icms.ID || c.NCMID != f.ncm.ID || c.StateID != f.state.ID {
		t.Fatalf("references not resolved")
	}
	if !c.OtherTaxes.Equal(dec("10")) || c.TaxesConsidered != "PIS (10.00%)" {
		t.Fatalf("unexpected other taxes %s %q", c.OtherTaxes, c.TaxesConsidered)
	}
	if !c.NetCost.Equal(dec("1000")) || !c.NetCostWithoutTaxes.Equal(dec("900")) {
		t.Fatalf("unexpected net costs %s / %s", c.NetCost, c.NetCostWithoutTaxes)
	}
	if !c.Commission.Equal(dec("5")) || c.Xped != "N/A" || c.IsICMSTaxpayer {
		t.Fatalf("unexpected commission/xped/taxpayer %s %q %v", c.Commission, c.Xped, c.IsICMSTaxpayer)
	}
	if c.DeliveryDate.Format("2006-01-02") != "2026-11-30" {
		t.Fatalf("unexpected delivery date %s", c.DeliveryDate)
	}
	if len(c.Items) != 2 || c.Items[0].Index != 1 || c.Items[1].Index != 2 {
		t.Fatalf("items must be 1-based and ordered")
	}
	if !c.Items[0].ContributionRate.Equal(dec("75")) || c.Items[1].Quantity != 10 || c.Items[1].UpdatedValue != nil {
		t.Fatalf("unexpected items %+v", c.Items)
	}
}

func TestNormalizeContributionRatesSumTo100(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	n := NewContractNormalizer(newRateResolver(db))

	rec := erpRecord()
	products := *rec.Produtos
	products[0].Valores.ValorProdutosSemICMS = ptr(dec("333.33"))
	products[1].Valores.ValorProdutosSemICMS = ptr(dec("666.67"))
	third := products[0]
	third.ID = ptr(int64(503))
	third.Valores = &erp.ProductValues{ValorProdutosSemICMS: ptr(dec("0.01"))}
	products = append(products, third)
	rec.Produtos = &products

	c, err := n.Normalize(context.Background(), normalizeInput(f, rec))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	sum := decimal.Zero
	for _, item := range c.Items {
		sum = sum.Add(item.ContributionRate)
	}
	if sum.Sub(dec("100")).Abs().GreaterThan(dec("0.000001")) {
		t.Fatalf("contribution rates sum to %s", sum)
	}
}

func TestNormalizeZeroNetCostGivesZeroRates(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	n := NewContractNormalizer(newRateResolver(db))

	rec := erpRecord()
	for i := range *rec.Produtos {
		(*rec.Produtos)[i].Valores.ValorProdutosSemICMS = ptr(decimal.Zero)
	}

	c, err := n.Normalize(context.Background(), normalizeInput(f, rec))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	for _, item := range c.Items {
		if !item.ContributionRate.IsZero() {
			t.Fatalf("expected zero rate, got %s", item.ContributionRate)
		}
	}
}

func TestNormalizeRejectsInvalidContracts(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	n := NewContractNormalizer(newRateResolver(db))

	cases := []struct {
		name   string
		mutate func(in *NormalizeInput)
		kind   apperror.Kind
		msg    string
	}{
		{
			name:   "no products",
			mutate: func(in *NormalizeInput) { in.Record.Produtos = &[]erp.ProductRecord{} },
			kind:   apperror.KindBadRequest,
			msg:    "contract has no products",
		},
		{
			name: "two NCMs",
			mutate: func(in *NormalizeInput) {
				(*in.Record.Produtos)[1].Produto.NCM = ptr("6810.11.00")
				in.Record.Cliente = nil
			},
			kind: apperror.KindBadRequest,
			msg:  "all products must share one NCM",
		},
		{
			name:   "no taxes",
			mutate: func(in *NormalizeInput) { in.TaxIDs = nil },
			kind:   apperror.KindBadRequest,
			msg:    "missing considered taxes",
		},
		{
			name:   "unknown tax",
			mutate: func(in *NormalizeInput) { in.TaxIDs = []uuid.UUID{uuid.New()} },
			kind:   apperror.KindNotFound,
		},
		{
			name:   "unknown state",
			mutate: func(in *NormalizeInput) { in.Record.Cliente.Estado = ptr("XX") },
			kind:   apperror.KindNotFound,
			msg:    "state not found",
		},
		{
			name:   "missing client name",
			mutate: func(in *NormalizeInput) { in.Record.Cliente.Nome = nil },
			kind:   apperror.KindBadRequest,
			msg:    "'cliente.nome'",
		},
		{
			name:   "missing product value",
			mutate: func(in *NormalizeInput) { (*in.Record.Produtos)[1].Valores = nil },
			kind:   apperror.KindBadRequest,
			msg:    "'produtos.2.valores.valor_produtos_sem_icms'",
		},
		{
			name:   "fractional quantity",
			mutate: func(in *NormalizeInput) { (*in.Record.Produtos)[0].Qtde = ptr(2.5) },
			kind:   apperror.KindBadRequest,
			msg:    "'produtos.1.qtde'",
		},
		{
			name:   "bad delivery date",
			mutate: func(in *NormalizeInput) { in.Record.Datas.DataPrevisaoFaturamento = ptr("30/11/2026") },
			kind:   apperror.KindBadRequest,
		},
		{
			name: "end consumer without percentage",
			mutate: func(in *NormalizeInput) {
				in.IsEndConsumer = true
				db.Model(&model.NCM{}).Where("id = ?", f.ncm.ID).Update("percentage_end_consumer", 0)
			},
			kind: apperror.KindBadRequest,
			msg:  "NCM has no end-consumer percentage",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := normalizeInput(f, erpRecord())
			tc.mutate(&in)
			_, err := n.Normalize(context.Background(), in)
			assertKind(t, err, tc.kind)
			if tc.msg != "" && !strings.Contains(err.Error(), tc.msg) {
				t.Fatalf("expected message containing %q, got %q", tc.msg, err.Error())
			}
		})
	}
}

func TestNormalizeEndConsumerAndTaxpayer(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	n := NewContractNormalizer(newRateResolver(db))

	in := normalizeInput(f, erpRecord())
	in.IsEndConsumer = true
	in.Contributor = contributorOf(1)

	c, err := n.Normalize(context.Background(), in)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !c.EndConsumerRate.Equal(dec("3")) || !c.IsICMSTaxpayer {
		t.Fatalf("unexpected end consumer %s / taxpayer %v", c.EndConsumerRate, c.IsICMSTaxpayer)
	}
}

func TestParseCommission(t *testing.T) {
	cases := []struct {
		seller *erp.SellerRecord
		want   string
	}{
		{&erp.SellerRecord{Nome: ptr("Gimi_5,5%")}, "5.5"},
		{&erp.SellerRecord{Nome: ptr("Ana Souza_12,25%")}, "12.25"},
		{&erp.SellerRecord{Nome: ptr("Gimi_0%")}, "0"},
		{nil, "0"},
		{&erp.SellerRecord{}, "0"},
	}
	for _, tc := range cases {
		got, err := ParseCommission(tc.seller)
		if err != nil {
			t.Fatalf("parse %+v: %v", tc.seller, err)
		}
		if !got.Equal(dec(tc.want)) {
			t.Fatalf("expected %s, got %s", tc.want, got)
		}
	}

	for _, bad := range []string{"Gimi", "Gimi_abc%", "Gimi_-1%"} {
		if _, err := ParseCommission(&erp.SellerRecord{Nome: ptr(bad)}); !apperror.Is(err, apperror.KindBadRequest) {
			t.Fatalf("expected bad request for %q, got %v", bad, err)
		}
	}
}
