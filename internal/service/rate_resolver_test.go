package service

import (
	"context"
	"testing"

	"margin/internal/apperror"
	"margin/internal/model"

	"github.com/google/uuid"
)

func TestResolveICMSForStateAndNCMGroup(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	r := newRateResolver(db)

	rate, err := r.ResolveICMS(context.Background(), "pr", "7308.90.10")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rate.ID != f.icms.ID {
		t.Fatalf("resolved the wrong rate")
	}
	if rate.State == nil || rate.State.Code != "PR" || rate.Group == nil || rate.Group.Name != "G4" {
		t.Fatalf("state and group must be loaded")
	}
	if !rate.TotalRate().Equal(dec("21")) {
		t.Fatalf("expected total 21, got %s", rate.TotalRate())
	}
}

func TestResolveICMSNotFound(t *testing.T) {
	db := setupTestDB(t)
	seedFixture(t, db)
	r := newRateResolver(db)
	ctx := context.Background()

	_, err := r.ResolveICMS(ctx, "ZZ", "7308.90.10")
	assertKind(t, err, apperror.KindNotFound)

	_, err = r.ResolveICMS(ctx, "PR", "0000.00.00")
	assertKind(t, err, apperror.KindNotFound)

	// SP has no rate for G4
	_, err = r.ResolveICMS(ctx, "SP", "7308.90.10")
	assertKind(t, err, apperror.KindNotFound)
}

func TestOtherTaxesFollowsProfitRegime(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	r := newRateResolver(db)
	ctx := context.Background()
	ids := []uuid.UUID{f.pis.ID, f.irpj.ID, f.pis.ID}

	presumed, err := r.OtherTaxes(ctx, model.ProfitTypePresumed, ids)
	if err != nil {
		t.Fatalf("presumed: %v", err)
	}
	if !presumed.Total.Equal(dec("10")) || presumed.Description != "PIS (10.00%)" {
		t.Fatalf("unexpected presumed result %+v", presumed)
	}

	actual, err := r.OtherTaxes(ctx, model.ProfitTypeReal, ids)
	if err != nil {
		t.Fatalf("real: %v", err)
	}
	if !actual.Total.Equal(dec("1.65")) || actual.Description != "PIS (1.65%)" {
		t.Fatalf("unexpected real result %+v", actual)
	}

	_, err = r.OtherTaxes(ctx, model.ProfitTypeReal, nil)
	assertKind(t, err, apperror.KindBadRequest)

	_, err = r.OtherTaxes(ctx, "simples", ids)
	assertKind(t, err, apperror.KindBadRequest)
}
