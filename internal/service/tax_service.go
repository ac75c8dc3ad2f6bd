package service

import (
	"context"

	"margin/internal/apperror"
	"margin/internal/model"
	"margin/internal/repository"

	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateTaxRequest struct {
	Name                         string   `json:"name" binding:"required,max=100"`
	PresumedProfitRate           *float64 `json:"presumed_profit_rate" binding:"required,gte=0,lt=100"`
	RealProfitRate               *float64 `json:"real_profit_rate" binding:"required,gte=0,lt=100"`
	PresumedProfitDeductsNetCost bool     `json:"presumed_profit_deducts_net_cost"`
	RealProfitDeductsNetCost     bool     `json:"real_profit_deducts_net_cost"`
}

// UpdateTaxRequest is partial: nil fields are left untouched.
type UpdateTaxRequest struct {
	Name                         *string  `json:"name" binding:"omitempty,max=100"`
	PresumedProfitRate           *float64 `json:"presumed_profit_rate" binding:"omitempty,gte=0,lt=100"`
	RealProfitRate               *float64 `json:"real_profit_rate" binding:"omitempty,gte=0,lt=100"`
	PresumedProfitDeductsNetCost *bool    `json:"presumed_profit_deducts_net_cost"`
	RealProfitDeductsNetCost     *bool    `json:"real_profit_deducts_net_cost"`
}

type TaxResponse struct {
	ID                           string  `json:"id"`
	Name                         string  `json:"name"`
	PresumedProfitRate           float64 `json:"presumed_profit_rate"`
	RealProfitRate               float64 `json:"real_profit_rate"`
	PresumedProfitDeductsNetCost bool    `json:"presumed_profit_deducts_net_cost"`
	RealProfitDeductsNetCost     bool    `json:"real_profit_deducts_net_cost"`
}

// TaxListResponse carries the registered taxes and their totals per regime.
type TaxListResponse struct {
	Count                             int           `json:"count"`
	TotalPresumedProfitRate           float64       `json:"total_presumed_profit_rate"`
	TotalPresumedProfitRateWithDeduct float64       `json:"total_presumed_profit_rate_with_deduct"`
	TotalRealProfitRate               float64       `json:"total_real_profit_rate"`
	TotalRealProfitRateWithDeduct     float64       `json:"total_real_profit_rate_with_deduct"`
	Taxes                             []TaxResponse `json:"taxes"`
}

// CompanyTaxResponse is a tax seen through one company's profit regime.
type CompanyTaxResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Rate           float64 `json:"rate"`
	DeductsNetCost bool    `json:"deducts_net_cost"`
}

// --- Interface ---

type TaxService interface {
	ListTaxes(ctx context.Context) (TaxListResponse, error)
	GetTax(ctx context.Context, id string) (TaxResponse, error)
	CreateTax(ctx context.Context, req CreateTaxRequest, userEmail string) (TaxResponse, error)
	UpdateTax(ctx context.Context, id string, req UpdateTaxRequest, userEmail string) (TaxResponse, error)
	DeleteTax(ctx context.Context, id string, userEmail string) error
	ListTaxesByCompany(ctx context.Context, companyID string) ([]CompanyTaxResponse, error)
}

type taxService struct {
	taxes     repository.TaxRepository
	companies repository.CompanyRepository
	audit     auditRecorder
}

func NewTaxService(taxes repository.TaxRepository, companies repository.CompanyRepository, audit repository.AuditRepository) TaxService {
	return &taxService{taxes: taxes, companies: companies, audit: auditRecorder{repo: audit}}
}

const taxConflict = "tax already exists"

// --- Implementation ---

func (s *taxService) ListTaxes(ctx context.Context) (TaxListResponse, error) {
	taxes, err := s.taxes.List(ctx)
	if err != nil {
		return TaxListResponse{}, apperror.Internal("failed to fetch taxes", err)
	}

	var presumedTotal, presumedDeduct, realTotal, realDeduct decimal.Decimal
	res := TaxListResponse{Count: len(taxes), Taxes: make([]TaxResponse, 0, len(taxes))}
	for _, t := range taxes {
		presumedTotal = presumedTotal.Add(t.PresumedProfitRate)
		realTotal = realTotal.Add(t.RealProfitRate)
		if t.PresumedProfitDeductsNetCost {
			presumedDeduct = presumedDeduct.Add(t.PresumedProfitRate)
		}
		if t.RealProfitDeductsNetCost {
			realDeduct = realDeduct.Add(t.RealProfitRate)
		}
		res.Taxes = append(res.Taxes, toTaxResponse(t))
	}
	res.TotalPresumedProfitRate = toFloat(presumedTotal)
	res.TotalPresumedProfitRateWithDeduct = toFloat(presumedDeduct)
	res.TotalRealProfitRate = toFloat(realTotal)
	res.TotalRealProfitRateWithDeduct = toFloat(realDeduct)

	return res, nil
}

func (s *taxService) GetTax(ctx context.Context, id string) (TaxResponse, error) {
	tax, err := s.findTax(ctx, id)
	if err != nil {
		return TaxResponse{}, err
	}
	return toTaxResponse(*tax), nil
}

func (s *taxService) CreateTax(ctx context.Context, req CreateTaxRequest, userEmail string) (TaxResponse, error) {
	count, err := s.taxes.Count(ctx)
	if err != nil {
		return TaxResponse{}, apperror.Internal("failed to count taxes", err)
	}
	if count >= model.MaxTaxes {
		return TaxResponse{}, apperror.BadRequest("the limit of %d taxes was reached", model.MaxTaxes)
	}

	tax := model.Tax{
		Name:                         req.Name,
		PresumedProfitRate:           rate(*req.PresumedProfitRate),
		RealProfitRate:               rate(*req.RealProfitRate),
		PresumedProfitDeductsNetCost: req.PresumedProfitDeductsNetCost,
		RealProfitDeductsNetCost:     req.RealProfitDeductsNetCost,
	}
	if err := s.taxes.Create(ctx, &tax); err != nil {
		return TaxResponse{}, repoError(err, "tax not found", taxConflict)
	}

	s.audit.record(ctx, userEmail, model.ActionCreateTax, tax.ID.String(), tax.Name, req)
	return toTaxResponse(tax), nil
}

func (s *taxService) UpdateTax(ctx context.Context, id string, req UpdateTaxRequest, userEmail string) (TaxResponse, error) {
	tax, err := s.findTax(ctx, id)
	if err != nil {
		return TaxResponse{}, err
	}

	if req.Name != nil {
		tax.Name = *req.Name
	}
	if req.PresumedProfitRate != nil {
		tax.PresumedProfitRate = rate(*req.PresumedProfitRate)
	}
	if req.RealProfitRate != nil {
		tax.RealProfitRate = rate(*req.RealProfitRate)
	}
	if req.PresumedProfitDeductsNetCost != nil {
		tax.PresumedProfitDeductsNetCost = *req.PresumedProfitDeductsNetCost
	}
	if req.RealProfitDeductsNetCost != nil {
		tax.RealProfitDeductsNetCost = *req.RealProfitDeductsNetCost
	}

	if err := s.taxes.Update(ctx, tax); err != nil {
		return TaxResponse{}, repoError(err, "tax not found", taxConflict)
	}

	s.audit.record(ctx, userEmail, model.ActionUpdateTax, tax.ID.String(), tax.Name, req)
	return toTaxResponse(*tax), nil
}

// DeleteTax refuses to remove the last remaining tax.
func (s *taxService) DeleteTax(ctx context.Context, id string, userEmail string) error {
	tax, err := s.findTax(ctx, id)
	if err != nil {
		return err
	}

	count, err := s.taxes.Count(ctx)
	if err != nil {
		return apperror.Internal("failed to count taxes", err)
	}
	if count <= 1 {
		return apperror.BadRequest("cannot delete the last tax")
	}

	if err := s.taxes.Delete(ctx, tax.ID); err != nil {
		return repoError(err, "tax not found", "")
	}

	s.audit.record(ctx, userEmail, model.ActionDeleteTax, tax.ID.String(), tax.Name, map[string]string{"deleted_id": id})
	return nil
}

// ListTaxesByCompany shows each tax with the rate of the company's regime.
func (s *taxService) ListTaxesByCompany(ctx context.Context, companyID string) ([]CompanyTaxResponse, error) {
	id, err := parseID(companyID, "company")
	if err != nil {
		return nil, err
	}
	company, err := s.companies.FindByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "company not found", "")
	}

	taxes, err := s.taxes.List(ctx)
	if err != nil {
		return nil, apperror.Internal("failed to fetch taxes", err)
	}

	res := make([]CompanyTaxResponse, 0, len(taxes))
	for _, t := range taxes {
		r, deducts, ok := t.RateFor(company.ProfitType)
		if !ok {
			return nil, apperror.BadRequest("unknown profit type %q", company.ProfitType)
		}
		res = append(res, CompanyTaxResponse{ID: t.ID.String(), Name: t.Name, Rate: toFloat(r), DeductsNetCost: deducts})
	}
	return res, nil
}

// --- Helpers ---

func (s *taxService) findTax(ctx context.Context, id string) (*model.Tax, error) {
	taxID, err := parseID(id, "tax")
	if err != nil {
		return nil, err
	}
	tax, err := s.taxes.FindByID(ctx, taxID)
	if err != nil {
		return nil, repoError(err, "tax not found", "")
	}
	return tax, nil
}

func toTaxResponse(t model.Tax) TaxResponse {
	return TaxResponse{
		ID:                           t.ID.String(),
		Name:                         t.Name,
		PresumedProfitRate:           toFloat(t.PresumedProfitRate),
		RealProfitRate:               toFloat(t.RealProfitRate),
		PresumedProfitDeductsNetCost: t.PresumedProfitDeductsNetCost,
		RealProfitDeductsNetCost:     t.RealProfitDeductsNetCost,
	}
}
