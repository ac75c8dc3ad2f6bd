package service

import (
	"context"

	"margin/internal/apperror"
	"margin/internal/model"
	"margin/internal/repository"
)

// --- DTOs ---

type NCMGroupRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

type CreateNCMRequest struct {
	Code                  string   `json:"code" binding:"required,ncm"`
	GroupID               string   `json:"group_id" binding:"required,uuid"`
	PercentageEndConsumer *float64 `json:"percentage_end_consumer" binding:"omitempty,gte=0,lt=100"`
}

// UpdateNCMRequest is partial: nil fields are left untouched.
type UpdateNCMRequest struct {
	Code                  *string  `json:"code" binding:"omitempty,ncm"`
	GroupID               *string  `json:"group_id" binding:"omitempty,uuid"`
	PercentageEndConsumer *float64 `json:"percentage_end_consumer" binding:"omitempty,gte=0,lt=100"`
}

type NCMResponse struct {
	ID                    string  `json:"id"`
	Code                  string  `json:"code"`
	GroupID               string  `json:"group_id"`
	GroupName             string  `json:"group_name,omitempty"`
	PercentageEndConsumer float64 `json:"percentage_end_consumer"`
}

type NCMListResponse struct {
	Count int           `json:"count"`
	NCMs  []NCMResponse `json:"ncms"`
}

type NCMGroupResponse struct {
	ID   string        `json:"id"`
	Name string        `json:"name"`
	NCMs []NCMResponse `json:"ncms"`
}

type NCMGroupListResponse struct {
	Count     int                `json:"count"`
	NCMGroups []NCMGroupResponse `json:"ncm_groups"`
}

// --- Interface ---

type NCMService interface {
	ListGroups(ctx context.Context) (NCMGroupListResponse, error)
	GetGroup(ctx context.Context, id string) (NCMGroupResponse, error)
	CreateGroup(ctx context.Context, req NCMGroupRequest, userEmail string) (NCMGroupResponse, error)
	UpdateGroup(ctx context.Context, id string, req NCMGroupRequest, userEmail string) (NCMGroupResponse, error)
	DeleteGroup(ctx context.Context, id string, userEmail string) error

	ListNCMs(ctx context.Context) (NCMListResponse, error)
	GetNCM(ctx context.Context, id string) (NCMResponse, error)
	CreateNCM(ctx context.Context, req CreateNCMRequest, userEmail string) (NCMResponse, error)
	UpdateNCM(ctx context.Context, id string, req UpdateNCMRequest, userEmail string) (NCMResponse, error)
	DeleteNCM(ctx context.Context, id string, userEmail string) error
}

type ncmService struct {
	groups repository.NCMGroupRepository
	ncms   repository.NCMRepository
	audit  auditRecorder
}

func NewNCMService(groups repository.NCMGroupRepository, ncms repository.NCMRepository, audit repository.AuditRepository) NCMService {
	return &ncmService{groups: groups, ncms: ncms, audit: auditRecorder{repo: audit}}
}

// --- Groups ---

func (s *ncmService) ListGroups(ctx context.Context) (NCMGroupListResponse, error) {
	groups, err := s.groups.List(ctx)
	if err != nil {
		return NCMGroupListResponse{}, apperror.Internal("failed to fetch NCM groups", err)
	}

	res := NCMGroupListResponse{Count: len(groups), NCMGroups: make([]NCMGroupResponse, 0, len(groups))}
	for _, g := range groups {
		res.NCMGroups = append(res.NCMGroups, toNCMGroupResponse(g))
	}
	return res, nil
}

func (s *ncmService) GetGroup(ctx context.Context, id string) (NCMGroupResponse, error) {
	group, err := s.findGroup(ctx, id)
	if err != nil {
		return NCMGroupResponse{}, err
	}
	return toNCMGroupResponse(*group), nil
}

func (s *ncmService) CreateGroup(ctx context.Context, req NCMGroupRequest, userEmail string) (NCMGroupResponse, error) {
	group := model.NCMGroup{Name: req.Name}
	if err := s.groups.Create(ctx, &group); err != nil {
		return NCMGroupResponse{}, repoError(err, "NCM group not found", "NCM group already exists")
	}

	s.audit.record(ctx, userEmail, model.ActionCreateNCMGroup, group.ID.String(), group.Name, req)
	return toNCMGroupResponse(group), nil
}

func (s *ncmService) UpdateGroup(ctx context.Context, id string, req NCMGroupRequest, userEmail string) (NCMGroupResponse, error) {
	group, err := s.findGroup(ctx, id)
	if err != nil {
		return NCMGroupResponse{}, err
	}

	group.Name = req.Name
	if err := s.groups.Update(ctx, group); err != nil {
		return NCMGroupResponse{}, repoError(err, "NCM group not found", "NCM group already exists")
	}

	s.audit.record(ctx, userEmail, model.ActionUpdateNCMGroup, group.ID.String(), group.Name, req)
	return toNCMGroupResponse(*group), nil
}

// DeleteGroup refuses to remove the last remaining group.
func (s *ncmService) DeleteGroup(ctx context.Context, id string, userEmail string) error {
	group, err := s.findGroup(ctx, id)
	if err != nil {
		return err
	}

	count, err := s.groups.Count(ctx)
	if err != nil {
		return apperror.Internal("failed to count NCM groups", err)
	}
	if count <= 1 {
		return apperror.BadRequest("cannot delete the last NCM group")
	}

	if err := s.groups.Delete(ctx, group.ID); err != nil {
		return repoError(err, "NCM group not found", "")
	}

	s.audit.record(ctx, userEmail, model.ActionDeleteNCMGroup, group.ID.String(), group.Name, map[string]string{"deleted_id": id})
	return nil
}

func (s *ncmService) findGroup(ctx context.Context, id string) (*model.NCMGroup, error) {
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

// --- NCMs ---

func (s *ncmService) ListNCMs(ctx context.Context) (NCMListResponse, error) {
	ncms, err := s.ncms.List(ctx)
	if err != nil {
		return NCMListResponse{}, apperror.Internal("failed to fetch NCMs", err)
	}

	res := NCMListResponse{Count: len(ncms), NCMs: make([]NCMResponse, 0, len(ncms))}
	for _, n := range ncms {
		res.NCMs = append(res.NCMs, toNCMResponse(n))
	}
	return res, nil
}

func (s *ncmService) GetNCM(ctx context.Context, id string) (NCMResponse, error) {
	ncm, err := s.findNCM(ctx, id)
	if err != nil {
		return NCMResponse{}, err
	}
	return toNCMResponse(*ncm), nil
}

func (s *ncmService) CreateNCM(ctx context.Context, req CreateNCMRequest, userEmail string) (NCMResponse, error) {
	if !model.ValidNCMCode(req.Code) {
		return NCMResponse{}, apperror.BadRequest("invalid NCM code format, expected NNNN.NN.NN")
	}
	group, err := s.findGroup(ctx, req.GroupID)
	if err != nil {
		return NCMResponse{}, err
	}

	ncm := model.NCM{Code: req.Code, GroupID: group.ID}
	if req.PercentageEndConsumer != nil {
		ncm.PercentageEndConsumer = rate(*req.PercentageEndConsumer)
	}
	if err := s.ncms.Create(ctx, &ncm); err != nil {
		return NCMResponse{}, repoError(err, "NCM not found", "NCM with this code already exists")
	}
	ncm.Group = group

	s.audit.record(ctx, userEmail, model.ActionCreateNCM, ncm.ID.String(), ncm.Code, req)
	return toNCMResponse(ncm), nil
}

func (s *ncmService) UpdateNCM(ctx context.Context, id string, req UpdateNCMRequest, userEmail string) (NCMResponse, error) {
	ncm, err := s.findNCM(ctx, id)
	if err != nil {
		return NCMResponse{}, err
	}

	if req.Code != nil {
		if !model.ValidNCMCode(*req.Code) {
			return NCMResponse{}, apperror.BadRequest("invalid NCM code format, expected NNNN.NN.NN")
		}
		ncm.Code = *req.Code
	}
	if req.GroupID != nil {
		group, err := s.findGroup(ctx, *req.GroupID)
		if err != nil {
			return NCMResponse{}, err
		}
		ncm.GroupID = group.ID
		ncm.Group = group
	}
	if req.PercentageEndConsumer != nil {
		ncm.PercentageEndConsumer = rate(*req.PercentageEndConsumer)
	}

	if err := s.ncms.Update(ctx, ncm); err != nil {
		return NCMResponse{}, repoError(err, "NCM not found", "NCM with this code already exists")
	}

	s.audit.record(ctx, userEmail, model.ActionUpdateNCM, ncm.ID.String(), ncm.Code, req)
	return toNCMResponse(*ncm), nil
}

// DeleteNCM refuses to remove the last remaining NCM.
func (s *ncmService) DeleteNCM(ctx context.Context, id string, userEmail string) error {
	ncm, err := s.findNCM(ctx, id)
	if err != nil {
		return err
	}

	count, err := s.ncms.Count(ctx)
	if err != nil {
		return apperror.Internal("failed to count NCMs", err)
	}
	if count <= 1 {
		return apperror.BadRequest("cannot delete the last NCM")
	}

	if err := s.ncms.Delete(ctx, ncm.ID); err != nil {
		return repoError(err, "NCM not found", "")
	}

	s.audit.record(ctx, userEmail, model.ActionDeleteNCM, ncm.ID.String(), ncm.Code, map[string]string{"deleted_id": id})
	return nil
}

func (s *ncmService) findNCM(ctx context.Context, id string) (*model.NCM, error) {
	ncmID, err := parseID(id, "NCM")
	if err != nil {
		return nil, err
	}
	ncm, err := s.ncms.FindByID(ctx, ncmID)
	if err != nil {
		return nil, repoError(err, "NCM not found", "")
	}
	return ncm, nil
}

// --- Helpers ---

func toNCMResponse(n model.NCM) NCMResponse {
	res := NCMResponse{
		ID:                    n.ID.String(),
		Code:                  n.Code,
		GroupID:               n.GroupID.String(),
		PercentageEndConsumer: toFloat(n.PercentageEndConsumer),
	}
	if n.Group != nil {
		res.GroupName = n.Group.Name
	}
	return res
}

func toNCMGroupResponse(g model.NCMGroup) NCMGroupResponse {
	res := NCMGroupResponse{ID: g.ID.String(), Name: g.Name, NCMs: make([]NCMResponse, 0, len(g.NCMs))}
	for _, n := range g.NCMs {
		res.NCMs = append(res.NCMs, toNCMResponse(n))
	}
	return res
}
