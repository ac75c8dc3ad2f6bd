package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"margin/internal/apperror"
	"margin/internal/database"
	"margin/internal/erp"
	"margin/internal/model"
	"margin/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), database.Config())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := database.SeedStates(db); err != nil {
		t.Fatalf("seed states: %v", err)
	}
	return db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

func assertKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	if !apperror.Is(err, kind) {
		t.Fatalf("expected %s error, got %v", kind, err)
	}
}

// fixture is the reference data most contract tests price against:
// PR / group G4 with ICMS 18+2+1 and two taxes.
type fixture struct {
	state   model.State
	group   model.NCMGroup
	ncm     model.NCM
	icms    model.ICMSRate
	pis     model.Tax
	irpj    model.Tax
	company model.Company
	ten     model.Percentage
}

func seedFixture(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	var f fixture
	if err := db.First(&f.state, "code = ?", "PR").Error; err != nil {
		t.Fatalf("load PR: %v", err)
	}
	f.group = model.NCMGroup{Name: "G4"}
	f.ncm = model.NCM{Code: "7308.90.10", PercentageEndConsumer: dec("3")}
	f.pis = model.Tax{Name: "PIS", PresumedProfitRate: dec("10"), RealProfitRate: dec("1.65"), PresumedProfitDeductsNetCost: true, RealProfitDeductsNetCost: true}
	f.irpj = model.Tax{Name: "IRPJ", PresumedProfitRate: dec("4.8"), RealProfitRate: dec("15")}
	f.company = model.Company{Name: "Gimi", ProfitType: model.ProfitTypePresumed}
	f.ten = model.Percentage{Value: dec("10")}

	mustCreate(t, db, &f.group)
	f.ncm.GroupID = f.group.ID
	mustCreate(t, db, &f.ncm)
	f.icms = model.ICMSRate{StateID: f.state.ID, GroupID: f.group.ID, InternalRate: dec("18"), DifalRate: dec("2"), PovertyRate: dec("1")}
	mustCreate(t, db, &f.icms)
	mustCreate(t, db, &f.pis)
	mustCreate(t, db, &f.irpj)
	mustCreate(t, db, &f.company)
	mustCreate(t, db, &f.ten)
	return f
}

func mustCreate(t *testing.T, db *gorm.DB, v any) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}

func newRateResolver(db *gorm.DB) RateResolver {
	return NewRateResolver(
		repository.NewStateRepository(db),
		repository.NewNCMRepository(db),
		repository.NewICMSRateRepository(db),
		repository.NewTaxRepository(db),
	)
}

// --- fakes ---

type fakeGateway struct {
	record      *erp.ContractRecord
	raw         json.RawMessage
	findErr     error
	contributor int
	updateErr   error

	findCalls   int
	updateCalls int
	lastPayload erp.UpdatePayload
	lastCreds   erp.Credentials
}

func (g *fakeGateway) FindContract(ctx context.Context, creds erp.Credentials, number string) (*erp.ContractRecord, json.RawMessage, error) {
	g.findCalls++
	g.lastCreds = creds
	if g.findErr != nil {
		return nil, nil, g.findErr
	}
	return g.record, g.raw, nil
}

func (g *fakeGateway) FindClientContributor(ctx context.Context, creds erp.Credentials, clientID int64) (int, error) {
	return g.contributor, nil
}

func (g *fakeGateway) UpdateContract(ctx context.Context, creds erp.Credentials, contractID int64, payload erp.UpdatePayload) error {
	g.updateCalls++
	g.lastPayload = payload
	return g.updateErr
}

type fakeCredentials map[string]erp.Credentials

func (f fakeCredentials) Credentials(company string) (erp.Credentials, error) {
	c, ok := f[company]
	if !ok {
		return erp.Credentials{}, apperror.Unauthorized("credentials not configured for company %s", company)
	}
	return c, nil
}

type fakeDirectory struct {
	emails []string
	err    error
}

func (d fakeDirectory) MarginAdminEmails(ctx context.Context, bearerToken string) ([]string, error) {
	return d.emails, d.err
}

type fakeNotifier struct {
	err        error
	calls      int
	recipients []string
}

func (n *fakeNotifier) ContractReturned(ctx context.Context, contract *model.Contract, recipients []string) error {
	n.calls++
	n.recipients = recipients
	return n.err
}

type fakeEvents struct {
	events []string
}

func (e *fakeEvents) Publish(event string, payload any) {
	e.events = append(e.events, event)
}

// erpRecord builds a two-product contract sharing NCM 7308.90.10.
func erpRecord() *erp.ContractRecord {
	products := []erp.ProductRecord{
		{
			ID:      ptr(int64(501)),
			Qtde:    ptr(2.0),
			Produto: &erp.ProductRef{ID: ptr(int64(9001)), NCM: ptr("7308.90.10")},
			Tags:    &erp.ProductTags{Produto: ptr("Telha termoacústica")},
			Valores: &erp.ProductValues{ValorProdutosSemICMS: ptr(dec("750"))},
		},
		{
			ID:      ptr(int64(502)),
			Qtde:    ptr(10.0),
			Produto: &erp.ProductRef{ID: ptr(int64(9002)), NCM: ptr("7308.90.10")},
			Tags:    &erp.ProductTags{Produto: ptr("Parafuso")},
			Valores: &erp.ProductValues{ValorProdutosSemICMS: ptr(dec("250"))},
		},
	}
	return &erp.ContractRecord{
		ID:            ptr(int64(77)),
		Identificacao: ptr("C-100"),
		Cliente:       &erp.ClientRecord{ID: ptr(int64(42)), Nome: ptr("ACME"), Estado: ptr("PR")},
		Projeto:       &erp.ProjectRecord{Nome: ptr("Obra Norte")},
		Datas:         &erp.DatesRecord{DataPrevisaoFaturamento: ptr("2026-11-30")},
		Valores:       &erp.ValuesRecord{ValorFrete: ptr(decimal.Zero)},
		Vendedor:      &erp.SellerRecord{Nome: ptr("Gimi_5%")},
		ContaCorrente: ptr(int64(3)),
		Parcelamento:  ptr(int64(4)),
		Produtos:      &products,
	}
}
