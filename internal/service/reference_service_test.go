package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"margin/internal/apperror"
	"margin/internal/model"
	"margin/internal/repository"

	"gorm.io/gorm"
)

func newICMSServiceForTest(db *gorm.DB) ICMSService {
	return NewICMSService(
		repository.NewICMSRateRepository(db),
		repository.NewStateRepository(db),
		repository.NewNCMGroupRepository(db),
		repository.NewTransactionManager(db),
		repository.NewAuditRepository(db),
	)
}

func bulkFor(states []model.State, groupID string) BulkICMSRatesRequest {
	req := BulkICMSRatesRequest{}
	for _, st := range states {
		req.Rates = append(req.Rates, CreateICMSRateRequest{
			StateID:      st.ID.String(),
			GroupID:      groupID,
			InternalRate: ptr(17.0),
			DifalRate:    ptr(1.0),
			PovertyRate:  ptr(0.0),
		})
	}
	return req
}

func TestCreateICMSRateTwiceIsConflict(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	svc := newICMSServiceForTest(db)

	_, err := svc.CreateRate(context.Background(), CreateICMSRateRequest{
		StateID:      f.state.ID.String(),
		GroupID:      f.group.ID.String(),
		InternalRate: ptr(12.0),
		DifalRate:    ptr(0.0),
		PovertyRate:  ptr(0.0),
	}, "admin@x.com")
	assertKind(t, err, apperror.KindConflict)
}

func TestCreateICMSRateReportsTotal(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	svc := newICMSServiceForTest(db)

	var sp model.State
	if err := db.First(&sp, "code = ?", "SP").Error; err != nil {
		t.Fatalf("load SP: %v", err)
	}
	res, err := svc.CreateRate(context.Background(), CreateICMSRateRequest{
		StateID:      sp.ID.String(),
		GroupID:      f.group.ID.String(),
		InternalRate: ptr(18.0),
		DifalRate:    ptr(2.0),
		PovertyRate:  ptr(1.0),
	}, "admin@x.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.TotalRate != 21 || res.State == nil || res.State.Code != "SP" {
		t.Fatalf("unexpected response %+v", res)
	}

	var logs []model.AuditLog
	db.Where("action = ?", model.ActionCreateICMSRate).Find(&logs)
	if len(logs) != 1 || logs[0].UserEmail != "admin@x.com" {
		t.Fatalf("expected one audit entry, got %+v", logs)
	}
}

func TestBulkCreateICMSRates(t *testing.T) {
	db := setupTestDB(t)
	svc := newICMSServiceForTest(db)
	ctx := context.Background()

	group := model.NCMGroup{Name: "G1"}
	mustCreate(t, db, &group)
	var states []model.State
	db.Order("code asc").Find(&states)

	_, err := svc.BulkCreateRates(ctx, bulkFor(states[1:], group.ID.String()), "")
	assertKind(t, err, apperror.KindBadRequest)
	if !strings.Contains(err.Error(), "AC") {
		t.Fatalf("missing state should be named, got %q", err.Error())
	}

	mixed := bulkFor(states, group.ID.String())
	other := model.NCMGroup{Name: "G2"}
	mustCreate(t, db, &other)
	mixed.Rates[3].GroupID = other.ID.String()
	_, err = svc.BulkCreateRates(ctx, mixed, "")
	assertKind(t, err, apperror.KindBadRequest)

	res, err := svc.BulkCreateRates(ctx, bulkFor(states, group.ID.String()), "")
	if err != nil {
		t.Fatalf("bulk create: %v", err)
	}
	if res.Detail != "27 rates created" {
		t.Fatalf("unexpected detail %q", res.Detail)
	}

	_, err = svc.BulkCreateRates(ctx, bulkFor(states, group.ID.String()), "")
	assertKind(t, err, apperror.KindConflict)

	var count int64
	db.Model(&model.ICMSRate{}).Count(&count)
	if count != 27 {
		t.Fatalf("failed batch must not leave rows, got %d", count)
	}
}

func TestBulkUpdateICMSRatesIsAllOrNothing(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	svc := newICMSServiceForTest(db)
	ctx := context.Background()

	var sp model.State
	db.First(&sp, "code = ?", "SP")
	req := bulkFor([]model.State{f.state, sp}, f.group.ID.String())

	_, err := svc.BulkUpdateRates(ctx, req, "")
	assertKind(t, err, apperror.KindNotFound)

	var pr model.ICMSRate
	db.First(&pr, "id = ?", f.icms.ID)
	if !pr.InternalRate.Equal(dec("18")) {
		t.Fatalf("rollback expected, internal rate is %s", pr.InternalRate)
	}

	res, err := svc.BulkUpdateRates(ctx, bulkFor([]model.State{f.state}, f.group.ID.String()), "")
	if err != nil {
		t.Fatalf("bulk update: %v", err)
	}
	if res.Detail != "1 rates updated" {
		t.Fatalf("unexpected detail %q", res.Detail)
	}
	db.First(&pr, "id = ?", f.icms.ID)
	if !pr.InternalRate.Equal(dec("17")) {
		t.Fatalf("expected 17, got %s", pr.InternalRate)
	}
}

func TestNCMGuards(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	svc := NewNCMService(repository.NewNCMGroupRepository(db), repository.NewNCMRepository(db), repository.NewAuditRepository(db))
	ctx := context.Background()

	_, err := svc.CreateNCM(ctx, CreateNCMRequest{Code: "73089010", GroupID: f.group.ID.String()}, "")
	assertKind(t, err, apperror.KindBadRequest)

	_, err = svc.CreateNCM(ctx, CreateNCMRequest{Code: "7308.90.10", GroupID: f.group.ID.String()}, "")
	assertKind(t, err, apperror.KindConflict)

	err = svc.DeleteNCM(ctx, f.ncm.ID.String(), "")
	assertKind(t, err, apperror.KindBadRequest)

	err = svc.DeleteGroup(ctx, f.group.ID.String(), "")
	assertKind(t, err, apperror.KindBadRequest)

	created, err := svc.CreateNCM(ctx, CreateNCMRequest{Code: "6810.11.00", GroupID: f.group.ID.String(), PercentageEndConsumer: ptr(2.5)}, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.GroupName != "G4" || created.PercentageEndConsumer != 2.5 {
		t.Fatalf("unexpected NCM %+v", created)
	}
	if err := svc.DeleteNCM(ctx, created.ID, ""); err != nil {
		t.Fatalf("delete: %v", err)
	}

	group, err := svc.GetGroup(ctx, f.group.ID.String())
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if len(group.NCMs) != 1 || group.NCMs[0].Code != "7308.90.10" {
		t.Fatalf("unexpected group NCMs %+v", group.NCMs)
	}

	_, err = svc.GetNCM(ctx, "not-a-uuid")
	assertKind(t, err, apperror.KindBadRequest)
}

func TestTaxLimitsAndTotals(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	svc := NewTaxService(repository.NewTaxRepository(db), repository.NewCompanyRepository(db), repository.NewAuditRepository(db))
	ctx := context.Background()

	list, err := svc.ListTaxes(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Count != 2 || list.TotalPresumedProfitRate != 14.8 || list.TotalPresumedProfitRateWithDeduct != 10 || list.TotalRealProfitRateWithDeduct != 1.65 {
		t.Fatalf("unexpected totals %+v", list)
	}

	_, err = svc.CreateTax(ctx, CreateTaxRequest{Name: "PIS", PresumedProfitRate: ptr(1.0), RealProfitRate: ptr(1.0)}, "")
	assertKind(t, err, apperror.KindConflict)

	for i := 0; i < model.MaxTaxes-2; i++ {
		if _, err := svc.CreateTax(ctx, CreateTaxRequest{Name: fmt.Sprintf("T%d", i), PresumedProfitRate: ptr(1.0), RealProfitRate: ptr(1.0)}, ""); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	_, err = svc.CreateTax(ctx, CreateTaxRequest{Name: "Extra", PresumedProfitRate: ptr(1.0), RealProfitRate: ptr(1.0)}, "")
	assertKind(t, err, apperror.KindBadRequest)

	byCompany, err := svc.ListTaxesByCompany(ctx, f.company.ID.String())
	if err != nil {
		t.Fatalf("by company: %v", err)
	}
	if len(byCompany) != model.MaxTaxes {
		t.Fatalf("expected %d taxes, got %d", model.MaxTaxes, len(byCompany))
	}
}

func TestDeleteLastTaxIsRejected(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTaxService(repository.NewTaxRepository(db), repository.NewCompanyRepository(db), nil)
	ctx := context.Background()

	only, err := svc.CreateTax(ctx, CreateTaxRequest{Name: "COFINS", PresumedProfitRate: ptr(3.0), RealProfitRate: ptr(7.6)}, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	err = svc.DeleteTax(ctx, only.ID, "")
	assertKind(t, err, apperror.KindBadRequest)
}

func TestCompanyAndPercentageCRUD(t *testing.T) {
	db := setupTestDB(t)
	audit := repository.NewAuditRepository(db)
	companies := NewCompanyService(repository.NewCompanyRepository(db), audit)
	percentages := NewPercentageService(repository.NewPercentageRepository(db), audit)
	ctx := context.Background()

	c, err := companies.CreateCompany(ctx, CreateCompanyRequest{Name: "Gimi", ProfitType: model.ProfitTypeReal}, "")
	if err != nil {
		t.Fatalf("create company: %v", err)
	}
	_, err = companies.CreateCompany(ctx, CreateCompanyRequest{Name: "Gimi", ProfitType: model.ProfitTypeReal}, "")
	assertKind(t, err, apperror.KindConflict)

	updated, err := companies.UpdateCompany(ctx, c.ID, UpdateCompanyRequest{ProfitType: ptr(model.ProfitTypePresumed)}, "")
	if err != nil || updated.ProfitType != model.ProfitTypePresumed || updated.Name != "Gimi" {
		t.Fatalf("update company: %+v %v", updated, err)
	}
	if err := companies.DeleteCompany(ctx, c.ID, ""); err != nil {
		t.Fatalf("delete company: %v", err)
	}
	_, err = companies.GetCompany(ctx, c.ID)
	assertKind(t, err, apperror.KindNotFound)

	p, err := percentages.CreatePercentage(ctx, PercentageRequest{Value: ptr(10.0)}, "")
	if err != nil {
		t.Fatalf("create percentage: %v", err)
	}
	_, err = percentages.CreatePercentage(ctx, PercentageRequest{Value: ptr(10.0)}, "")
	assertKind(t, err, apperror.KindConflict)

	list, err := percentages.ListPercentages(ctx)
	if err != nil || list.Count != 1 || list.Percentages[0].ID != p.ID {
		t.Fatalf("list percentages: %+v %v", list, err)
	}
	err = percentages.DeletePercentage(ctx, "00000000-0000-0000-0000-000000000000", "")
	assertKind(t, err, apperror.KindNotFound)
}
