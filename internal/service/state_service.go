package service

import (
	"context"

	"margin/internal/apperror"
	"margin/internal/model"
	"margin/internal/repository"
)

type StateResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

type StateListResponse struct {
	Count  int             `json:"count"`
	States []StateResponse `json:"states"`
}

// StateService exposes the seeded states. States are read-only.
type StateService interface {
	ListStates(ctx context.Context) (StateListResponse, error)
	GetState(ctx context.Context, id string) (StateResponse, error)
}

type stateService struct {
	repo repository.StateRepository
}

func NewStateService(repo repository.StateRepository) StateService {
	return &stateService{repo: repo}
}

func (s *stateService) ListStates(ctx context.Context) (StateListResponse, error) {
	states, err := s.repo.List(ctx)
	if err != nil {
		return StateListResponse{}, apperror.Internal("failed to fetch states", err)
	}

	res := StateListResponse{Count: len(states), States: make([]StateResponse, 0, len(states))}
	for _, st := range states {
		res.States = append(res.States, toStateResponse(st))
	}
	return res, nil
}

func (s *stateService) GetState(ctx context.Context, id string) (StateResponse, error) {
	stateID, err := parseID(id, "state")
	if err != nil {
		return StateResponse{}, err
	}
	state, err := s.repo.FindByID(ctx, stateID)
	if err != nil {
		return StateResponse{}, repoError(err, "state not found", "")
	}
	return toStateResponse(*state), nil
}

func toStateResponse(s model.State) StateResponse {
	return StateResponse{ID: s.ID.String(), Name: s.Name, Code: s.Code}
}
