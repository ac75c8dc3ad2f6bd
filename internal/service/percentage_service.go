package service

import (
	"context"

	"margin/internal/apperror"
	"margin/internal/model"
	"margin/internal/repository"
)

type PercentageRequest struct {
	Value *float64 `json:"value" binding:"required,gt=0,lt=100"`
}

type PercentageResponse struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
}

type PercentageListResponse struct {
	Count       int                  `json:"count"`
	Percentages []PercentageResponse `json:"percentages"`
}

type PercentageService interface {
	ListPercentages(ctx context.Context) (PercentageListResponse, error)
	GetPercentage(ctx context.Context, id string) (PercentageResponse, error)
	CreatePercentage(ctx context.Context, req PercentageRequest, userEmail string) (PercentageResponse, error)
	UpdatePercentage(ctx context.Context, id string, req PercentageRequest, userEmail string) (PercentageResponse, error)
	DeletePercentage(ctx context.Context, id string, userEmail string) error
}

type percentageService struct {
	repo  repository.PercentageRepository
	audit auditRecorder
}

func NewPercentageService(repo repository.PercentageRepository, audit repository.AuditRepository) PercentageService {
	return &percentageService{repo: repo, audit: auditRecorder{repo: audit}}
}

const percentageConflict = "percentage already exists"

func (s *percentageService) ListPercentages(ctx context.Context) (PercentageListResponse, error) {
	percentages, err := s.repo.List(ctx)
	if err != nil {
		return PercentageListResponse{}, apperror.Internal("failed to fetch percentages", err)
	}

	res := PercentageListResponse{Count: len(percentages), Percentages: make([]PercentageResponse, 0, len(percentages))}
	for _, p := range percentages {
		res.Percentages = append(res.Percentages, toPercentageResponse(p))
	}
	return res, nil
}

func (s *percentageService) GetPercentage(ctx context.Context, id string) (PercentageResponse, error) {
	p, err := s.findPercentage(ctx, id)
	if err != nil {
		return PercentageResponse{}, err
	}
	return toPercentageResponse(*p), nil
}

func (s *percentageService) CreatePercentage(ctx context.Context, req PercentageRequest, userEmail string) (PercentageResponse, error) {
	p := model.Percentage{Value: rate(*req.Value)}
	if err := s.repo.Create(ctx, &p); err != nil {
		return PercentageResponse{}, repoError(err, "percentage not found", percentageConflict)
	}

	s.audit.record(ctx, userEmail, model.ActionCreatePercent, p.ID.String(), p.Value.StringFixed(2), req)
	return toPercentageResponse(p), nil
}

func (s *percentageService) UpdatePercentage(ctx context.Context, id string, req PercentageRequest, userEmail string) (PercentageResponse, error) {
	p, err := s.findPercentage(ctx, id)
	if err != nil {
		return PercentageResponse{}, err
	}

	p.Value = rate(*req.Value)
	if err := s.repo.Update(ctx, p); err != nil {
		return PercentageResponse{}, repoError(err, "percentage not found", percentageConflict)
	}

	s.audit.record(ctx, userEmail, model.ActionUpdatePercent, p.ID.String(), p.Value.StringFixed(2), req)
	return toPercentageResponse(*p), nil
}

func (s *percentageService) DeletePercentage(ctx context.Context, id string, userEmail string) error {
	p, err := s.findPercentage(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, p.ID); err != nil {
		return repoError(err, "percentage not found", "")
	}

	s.audit.record(ctx, userEmail, model.ActionDeletePercent, p.ID.String(), p.Value.StringFixed(2), map[string]string{"deleted_id": id})
	return nil
}

func (s *percentageService) findPercentage(ctx context.Context, id string) (*model.Percentage, error) {
	percentageID, err := parseID(id, "percentage")
	if err != nil {
		return nil, err
	}
	p, err := s.repo.FindByID(ctx, percentageID)
	if err != nil {
		return nil, repoError(err, "percentage not found", "")
	}
	return p, nil
}

func toPercentageResponse(p model.Percentage) PercentageResponse {
	return PercentageResponse{ID: p.ID.String(), Value: toFloat(p.Value)}
}
