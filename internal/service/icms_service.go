package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"margin/internal/apperror"
	"margin/internal/model"
	"margin/internal/repository"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// --- DTOs ---

type CreateICMSRateRequest struct {
	StateID      string   `json:"state_id" binding:"required,uuid"`
	GroupID      string   `json:"group_id" binding:"required,uuid"`
	InternalRate *float64 `json:"internal_rate" binding:"required,gte=0,lt=100"`
	DifalRate    *float64 `json:"difal_rate" binding:"required,gte=0,lt=100"`
	PovertyRate  *float64 `json:"poverty_rate" binding:"required,gte=0,lt=100"`
}

// UpdateICMSRateRequest is partial: nil fields are left untouched.
type UpdateICMSRateRequest struct {
	StateID      *string  `json:"state_id" binding:"omitempty,uuid"`
	GroupID      *string  `json:"group_id" binding:"omitempty,uuid"`
	InternalRate *float64 `json:"internal_rate" binding:"omitempty,gte=0,lt=100"`
	DifalRate    *float64 `json:"difal_rate" binding:"omitempty,gte=0,lt=100"`
	PovertyRate  *float64 `json:"poverty_rate" binding:"omitempty,gte=0,lt=100"`
}

type BulkICMSRatesRequest struct {
	Rates []CreateICMSRateRequest `json:"rates" binding:"required,dive"`
}

type ICMSRateResponse struct {
	ID           string         `json:"id"`
	State        *StateResponse `json:"state,omitempty"`
	StateID      string         `json:"state_id"`
	GroupID      string         `json:"group_id"`
	GroupName    string         `json:"group_name,omitempty"`
	InternalRate float64        `json:"internal_rate"`
	DifalRate    float64        `json:"difal_rate"`
	PovertyRate  float64        `json:"poverty_rate"`
	TotalRate    float64        `json:"total_rate"`
}

type ICMSRateListResponse struct {
	Count     int                `json:"count"`
	ICMSRates []ICMSRateResponse `json:"icms_rates"`
}

// --- Interface ---

type ICMSService interface {
	ListRates(ctx context.Context) (ICMSRateListResponse, error)
	ListRatesByGroup(ctx context.Context, groupID string) (ICMSRateListResponse, error)
	GetRate(ctx context.Context, id string) (ICMSRateResponse, error)
	CreateRate(ctx context.Context, req CreateICMSRateRequest, userEmail string) (ICMSRateResponse, error)
	UpdateRate(ctx context.Context, id string, req UpdateICMSRateRequest, userEmail string) (ICMSRateResponse, error)
	DeleteRate(ctx context.Context, id string, userEmail string) error
	BulkCreateRates(ctx context.Context, req BulkICMSRatesRequest, userEmail string) (DetailResponse, error)
	BulkUpdateRates(ctx context.Context, req BulkICMSRatesRequest, userEmail string) (DetailResponse, error)
}

type icmsService struct {
	rates     repository.ICMSRateRepository
	states    repository.StateRepository
	groups    repository.NCMGroupRepository
	txManager repository.TransactionManager
	audit     auditRecorder
}

func NewICMSService(
	rates repository.ICMSRateRepository,
	states repository.StateRepository,
	groups repository.NCMGroupRepository,
	txManager repository.TransactionManager,
	audit repository.AuditRepository,
) ICMSService {
	return &icmsService{
		rates:     rates,
		states:    states,
		groups:    groups,
		txManager: txManager,
		audit:     auditRecorder{repo: audit},
	}
}

const icmsConflict = "ICMS rate already exists for this state and group"

// --- Implementation ---

func (s *icmsService) ListRates(ctx context.Context) (ICMSRateListResponse, error) {
	rates, err := s.rates.List(ctx)
	if err != nil {
		return ICMSRateListResponse{}, apperror.Internal("failed to fetch ICMS rates", err)
	}
	return toICMSRateList(rates), nil
}

func (s *icmsService) ListRatesByGroup(ctx context.Context, groupID string) (ICMSRateListResponse, error) {
	group, err := s.findGroup(ctx, groupID)
	if err != nil {
		return ICMSRateListResponse{}, err
	}
	rates, err := s.rates.ListByGroup(ctx, group.ID)
	if err != nil {
		return ICMSRateListResponse{}, apperror.Internal("failed to fetch ICMS rates", err)
	}
	return toICMSRateList(rates), nil
}

func (s *icmsService) GetRate(ctx context.Context, id string) (ICMSRateResponse, error) {
	rate, err := s.findRate(ctx, id)
	if err != nil {
		return ICMSRateResponse{}, err
	}
	return toICMSRateResponse(*rate), nil
}

func (s *icmsService) CreateRate(ctx context.Context, req CreateICMSRateRequest, userEmail string) (ICMSRateResponse, error) {
	state, err := s.findState(ctx, req.StateID)
	if err != nil {
		return ICMSRateResponse{}, err
	}
	group, err := s.findGroup(ctx, req.GroupID)
	if err != nil {
		return ICMSRateResponse{}, err
	}

	icms := newICMSRate(state, group, req)
	if err := s.rates.Create(ctx, &icms); err != nil {
		return ICMSRateResponse{}, repoError(err, "ICMS rate not found", icmsConflict)
	}

	s.audit.record(ctx, userEmail, model.ActionCreateICMSRate, icms.ID.String(), state.Code+"/"+group.Name, req)
	return toICMSRateResponse(icms), nil
}

func (s *icmsService) UpdateRate(ctx context.Context, id string, req UpdateICMSRateRequest, userEmail string) (ICMSRateResponse, error) {
	icms, err := s.findRate(ctx, id)
	if err != nil {
		return ICMSRateResponse{}, err
	}

	if req.StateID != nil {
		state, err := s.findState(ctx, *req.StateID)
		if err != nil {
			return ICMSRateResponse{}, err
		}
		icms.StateID, icms.State = state.ID, state
	}
	if req.GroupID != nil {
		group, err := s.findGroup(ctx, *req.GroupID)
		if err != nil {
			return ICMSRateResponse{}, err
		}
		icms.GroupID, icms.Group = group.ID, group
	}
	if req.InternalRate != nil {
		icms.InternalRate = rate(*req.InternalRate)
	}
	if req.DifalRate != nil {
		icms.DifalRate = rate(*req.DifalRate)
	}
	if req.PovertyRate != nil {
		icms.PovertyRate = rate(*req.PovertyRate)
	}

	if err := s.rates.Update(ctx, icms); err != nil {
		return ICMSRateResponse{}, repoError(err, "ICMS rate not found", icmsConflict)
	}

	s.audit.record(ctx, userEmail, model.ActionUpdateICMSRate, icms.ID.String(), rateLabel(*icms), req)
	return toICMSRateResponse(*icms), nil
}

func (s *icmsService) DeleteRate(ctx context.Context, id string, userEmail string) error {
	icms, err := s.findRate(ctx, id)
	if err != nil {
		return err
	}
	if err := s.rates.Delete(ctx, icms.ID); err != nil {
		return repoError(err, "ICMS rate not found", "")
	}

	s.audit.record(ctx, userEmail, model.ActionDeleteICMSRate, icms.ID.String(), rateLabel(*icms), map[string]string{"deleted_id": id})
	return nil
}

// BulkCreateRates registers one group's rates for every state at once.
func (s *icmsService) BulkCreateRates(ctx context.Context, req BulkICMSRatesRequest, userEmail string) (DetailResponse, error) {
	group, err := s.bulkGroup(ctx, req)
	if err != nil {
		return DetailResponse{}, err
	}
	states, err := s.statesByID(ctx)
	if err != nil {
		return DetailResponse{}, err
	}

	sent := make(map[uuid.UUID]bool, len(req.Rates))
	toCreate := make([]model.ICMSRate, 0, len(req.Rates))
	for _, r := range req.Rates {
		state, err := lookupState(states, r.StateID)
		if err != nil {
			return DetailResponse{}, err
		}
		if sent[state.ID] {
			return DetailResponse{}, apperror.BadRequest("state %s sent more than once", state.Code)
		}
		sent[state.ID] = true
		toCreate = append(toCreate, newICMSRate(state, group, r))
	}

	missing := lo.FilterMap(lo.Values(states), func(st *model.State, _ int) (string, bool) {
		return st.Code, !sent[st.ID]
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return DetailResponse{}, apperror.BadRequest("the following states were not sent: %s", strings.Join(missing, ", "))
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.rates.CreateBatch(txCtx, toCreate); err != nil {
			return repoError(err, "ICMS rate not found", icmsConflict)
		}
		s.audit.record(txCtx, userEmail, model.ActionBulkCreateICMS, group.ID.String(), group.Name, map[string]int{"count": len(toCreate)})
		return nil
	})
	if err != nil {
		return DetailResponse{}, err
	}

	return DetailResponse{Detail: fmt.Sprintf("%d rates created", len(toCreate))}, nil
}

// BulkUpdateRates rewrites existing rates of one group; all or nothing.
func (s *icmsService) BulkUpdateRates(ctx context.Context, req BulkICMSRatesRequest, userEmail string) (DetailResponse, error) {
	group, err := s.bulkGroup(ctx, req)
	if err != nil {
		return DetailResponse{}, err
	}
	states, err := s.statesByID(ctx)
	if err != nil {
		return DetailResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for _, r := range req.Rates {
			state, err := lookupState(states, r.StateID)
			if err != nil {
				return err
			}
			icms, err := s.rates.FindByStateAndGroup(txCtx, state.ID, group.ID)
			if err != nil {
				if repository.IsNotFound(err) {
					return apperror.NotFound("ICMS rate for state %s and group %s not found", state.Code, group.Name)
				}
				return apperror.Internal("failed to fetch ICMS rate", err)
			}
			icms.InternalRate = rate(*r.InternalRate)
			icms.DifalRate = rate(*r.DifalRate)
			icms.PovertyRate = rate(*r.PovertyRate)
			if err := s.rates.Update(txCtx, icms); err != nil {
				return repoError(err, "ICMS rate not found", icmsConflict)
			}
		}
		s.audit.record(txCtx, userEmail, model.ActionBulkUpdateICMS, group.ID.String(), group.Name, map[string]int{"count": len(req.Rates)})
		return nil
	})
	if err != nil {
		return DetailResponse{}, err
	}

	return DetailResponse{Detail: fmt.Sprintf("%d rates updated", len(req.Rates))}, nil
}

// --- Helpers ---

// bulkGroup checks the batch is non-empty, complete and bound to a single group.
func (s *icmsService) bulkGroup(ctx context.Context, req BulkICMSRatesRequest) (*model.NCMGroup, error) {
	if len(req.Rates) == 0 {
		return nil, apperror.BadRequest("no rates sent")
	}
	groupID := req.Rates[0].GroupID
	for _, r := range req.Rates {
		if r.GroupID != groupID {
			return nil, apperror.BadRequest("all rates must use the same NCM group")
		}
		if r.InternalRate == nil || r.DifalRate == nil || r.PovertyRate == nil {
			return nil, apperror.BadRequest("rates cannot be null")
		}
	}
	return s.findGroup(ctx, groupID)
}

func (s *icmsService) statesByID(ctx context.Context) (map[uuid.UUID]*model.State, error) {
	states, err := s.states.List(ctx)
	if err != nil {
		return nil, apperror.Internal("failed to fetch states", err)
	}
	byID := make(map[uuid.UUID]*model.State, len(states))
	for i := range states {
		byID[states[i].ID] = &states[i]
	}
	return byID, nil
}

func lookupState(states map[uuid.UUID]*model.State, id string) (*model.State, error) {
	stateID, err := parseID(id, "state")
	if err != nil {
		return nil, err
	}
	state, ok := states[stateID]
	if !ok {
		return nil, apperror.NotFound("state %s not found", id)
	}
	return state, nil
}

func (s *icmsService) findRate(ctx context.Context, id string) (*model.ICMSRate, error) {
	rateID, err := parseID(id, "ICMS rate")
	if err != nil {
		return nil, err
	}
	icms, err := s.rates.FindByID(ctx, rateID)
	if err != nil {
		return nil, repoError(err, "ICMS rate not found", "")
	}
	return icms, nil
}

func (s *icmsService) findState(ctx context.Context, id string) (*model.State, error) {
	stateID, err := parseID(id, "state")
	if err != nil {
		return nil, err
	}
	state, err := s.states.FindByID(ctx, stateID)
	if err != nil {
		return nil, repoError(err, "state not found", "")
	}
	return state, nil
}

func (s *icmsService) findGroup(ctx context.Context, id string) (*model.NCMGroup, error) {
	groupID, err := parseID(id, "NCM group")
	if err != nil {
		return nil, err
	}
	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return nil, repoError(err, "NCM group not found", "")
	}
	return group, nil
}

func newICMSRate(state *model.State, group *model.NCMGroup, req CreateICMSRateRequest) model.ICMSRate {
	return model.ICMSRate{
		StateID:      state.ID,
		State:        state,
		GroupID:      group.ID,
		Group:        group,
		InternalRate: rate(lo.FromPtr(req.InternalRate)),
		DifalRate:    rate(lo.FromPtr(req.DifalRate)),
		PovertyRate:  rate(lo.FromPtr(req.PovertyRate)),
	}
}

func rateLabel(r model.ICMSRate) string {
	label := r.StateID.String()
	if r.State != nil {
		label = r.State.Code
	}
	if r.Group != nil {
		label += "/" + r.Group.Name
	}
	return label
}

func toICMSRateResponse(r model.ICMSRate) ICMSRateResponse {
	res := ICMSRateResponse{
		ID:           r.ID.String(),
		StateID:      r.StateID.String(),
		GroupID:      r.GroupID.String(),
		InternalRate: toFloat(r.InternalRate),
		DifalRate:    toFloat(r.DifalRate),
		PovertyRate:  toFloat(r.PovertyRate),
		TotalRate:    toFloat(r.TotalRate()),
	}
	if r.State != nil {
		state := toStateResponse(*r.State)
		res.State = &state
	}
	if r.Group != nil {
		res.GroupName = r.Group.Name
	}
	return res
}

func toICMSRateList(rates []model.ICMSRate) ICMSRateListResponse {
	res := ICMSRateListResponse{Count: len(rates), ICMSRates: make([]ICMSRateResponse, 0, len(rates))}
	for _, r := range rates {
		res.ICMSRates = append(res.ICMSRates, toICMSRateResponse(r))
	}
	return res
}
