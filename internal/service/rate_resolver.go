package service

import (
	"context"
	"fmt"
	"strings"

	"margin/internal/apperror"
	"margin/internal/model"
	"margin/internal/repository"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// OtherTaxes is the sum of the non-ICMS taxes that deduct from the net cost
// under a profit regime, plus its human readable breakdown.
type OtherTaxes struct {
	Total       decimal.Decimal
	Description string
}

// RateResolver looks up the reference data a contract is priced with.
type RateResolver interface {
	ResolveState(ctx context.Context, code string) (*model.State, error)
	ResolveNCM(ctx context.Context, code string) (*model.NCM, error)
	ResolveICMS(ctx context.Context, stateCode, ncmCode string) (*model.ICMSRate, error)
	OtherTaxes(ctx context.Context, profitType string, taxIDs []uuid.UUID) (OtherTaxes, error)
}

type rateResolver struct {
	states repository.StateRepository
	ncms   repository.NCMRepository
	rates  repository.ICMSRateRepository
	taxes  repository.TaxRepository
}

func NewRateResolver(
	states repository.StateRepository,
	ncms repository.NCMRepository,
	rates repository.ICMSRateRepository,
	taxes repository.TaxRepository,
) RateResolver {
	return &rateResolver{states: states, ncms: ncms, rates: rates, taxes: taxes}
}

func (r *rateResolver) ResolveState(ctx context.Context, code string) (*model.State, error) {
	state, err := r.states.FindByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, repoError(err, "state not found", "")
	}
	return state, nil
}

func (r *rateResolver) ResolveNCM(ctx context.Context, code string) (*model.NCM, error) {
	ncm, err := r.ncms.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, repoError(err, "NCM not found", "")
	}
	return ncm, nil
}

// ResolveICMS returns the rate of (state, NCM group) with State and Group loaded.
func (r *rateResolver) ResolveICMS(ctx context.Context, stateCode, ncmCode string) (*model.ICMSRate, error) {
	state, err := r.ResolveState(ctx, stateCode)
	if err != nil {
		return nil, err
	}
	ncm, err := r.ResolveNCM(ctx, ncmCode)
	if err != nil {
		return nil, err
	}

	rate, err := r.rates.FindByStateAndGroup(ctx, state.ID, ncm.GroupID)
	if err != nil {
		return nil, repoError(err, "ICMS rate not found", "")
	}
	return rate, nil
}

func (r *rateResolver) OtherTaxes(ctx context.Context, profitType string, taxIDs []uuid.UUID) (OtherTaxes, error) {
	if len(taxIDs) == 0 {
		return OtherTaxes{}, apperror.BadRequest("missing considered taxes")
	}
	if profitType != model.ProfitTypePresumed && profitType != model.ProfitTypeReal {
		return OtherTaxes{}, apperror.BadRequest("unknown profit type %q", profitType)
	}

	ids := lo.Uniq(taxIDs)
	taxes, err := r.taxes.FindByIDs(ctx, ids)
	if err != nil {
		return OtherTaxes{}, apperror.Internal("failed to load taxes", err)
	}
	byID := lo.KeyBy(taxes, func(t model.Tax) uuid.UUID { return t.ID })

	result := OtherTaxes{Total: decimal.Zero}
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		tax, ok := byID[id]
		if !ok {
			return OtherTaxes{}, apperror.NotFound("tax %s not found", id)
		}
		rate, deducts, _ := tax.RateFor(profitType)
		if !deducts {
			continue
		}
		result.Total = result.Total.Add(rate)
		parts = append(parts, fmt.Sprintf("%s (%s%%)", tax.Name, rate.StringFixed(2)))
	}
	result.Description = strings.Join(parts, ", ")
	return result, nil
}
