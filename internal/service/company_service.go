package service

import (
	"context"

	"margin/internal/apperror"
	"margin/internal/model"
	"margin/internal/repository"
)

type CreateCompanyRequest struct {
	Name       string `json:"name" binding:"required,max=100"`
	ProfitType string `json:"profit_type" binding:"required,oneof=presumed real"`
}

type UpdateCompanyRequest struct {
	Name       *string `json:"name" binding:"omitempty,max=100"`
	ProfitType *string `json:"profit_type" binding:"omitempty,oneof=presumed real"`
}

type CompanyResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ProfitType string `json:"profit_type"`
}

type CompanyListResponse struct {
	Count     int               `json:"count"`
	Companies []CompanyResponse `json:"companies"`
}

type CompanyService interface {
	ListCompanies(ctx context.Context) (CompanyListResponse, error)
	GetCompany(ctx context.Context, id string) (CompanyResponse, error)
	CreateCompany(ctx context.Context, req CreateCompanyRequest, userEmail string) (CompanyResponse, error)
	UpdateCompany(ctx context.Context, id string, req UpdateCompanyRequest, userEmail string) (CompanyResponse, error)
	DeleteCompany(ctx context.Context, id string, userEmail string) error
}

type companyService struct {
	repo  repository.CompanyRepository
	audit auditRecorder
}

func NewCompanyService(repo repository.CompanyRepository, audit repository.AuditRepository) CompanyService {
	return &companyService{repo: repo, audit: auditRecorder{repo: audit}}
}

const companyConflict = "company already exists"

func (s *companyService) ListCompanies(ctx context.Context) (CompanyListResponse, error) {
	companies, err := s.repo.List(ctx)
	if err != nil {
		return CompanyListResponse{}, apperror.Internal("failed to fetch companies", err)
	}

	res := CompanyListResponse{Count: len(companies), Companies: make([]CompanyResponse, 0, len(companies))}
	for _, c := range companies {
		res.Companies = append(res.Companies, toCompanyResponse(c))
	}
	return res, nil
}

func (s *companyService) GetCompany(ctx context.Context, id string) (CompanyResponse, error) {
	company, err := s.findCompany(ctx, id)
	if err != nil {
		return CompanyResponse{}, err
	}
	return toCompanyResponse(*company), nil
}

func (s *companyService) CreateCompany(ctx context.Context, req CreateCompanyRequest, userEmail string) (CompanyResponse, error) {
	company := model.Company{Name: req.Name, ProfitType: req.ProfitType}
	if err := s.repo.Create(ctx, &company); err != nil {
		return CompanyResponse{}, repoError(err, "company not found", companyConflict)
	}

	s.audit.record(ctx, userEmail, model.ActionCreateCompany, company.ID.String(), company.Name, req)
	return toCompanyResponse(company), nil
}

func (s *companyService) UpdateCompany(ctx context.Context, id string, req UpdateCompanyRequest, userEmail string) (CompanyResponse, error) {
	company, err := s.findCompany(ctx, id)
	if err != nil {
		return CompanyResponse{}, err
	}

	if req.Name != nil {
		company.Name = *req.Name
	}
	if req.ProfitType != nil {
		company.ProfitType = *req.ProfitType
	}
	if err := s.repo.Update(ctx, company); err != nil {
		return CompanyResponse{}, repoError(err, "company not found", companyConflict)
	}

	s.audit.record(ctx, userEmail, model.ActionUpdateCompany, company.ID.String(), company.Name, req)
	return toCompanyResponse(*company), nil
}

func (s *companyService) DeleteCompany(ctx context.Context, id string, userEmail string) error {
	company, err := s.findCompany(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, company.ID); err != nil {
		return repoError(err, "company not found", "")
	}

	s.audit.record(ctx, userEmail, model.ActionDeleteCompany, company.ID.String(), company.Name, map[string]string{"deleted_id": id})
	return nil
}

func (s *companyService) findCompany(ctx context.Context, id string) (*model.Company, error) {
	companyID, err := parseID(id, "company")
	if err != nil {
		return nil, err
	}
	company, err := s.repo.FindByID(ctx, companyID)
	if err != nil {
		return nil, repoError(err, "company not found", "")
	}
	return company, nil
}

func toCompanyResponse(c model.Company) CompanyResponse {
	return CompanyResponse{ID: c.ID.String(), Name: c.Name, ProfitType: c.ProfitType}
}
