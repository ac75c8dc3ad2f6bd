package service

import (
	"context"
	"encoding/json"
	"log"

	"margin/internal/apperror"
	"margin/internal/model"
	"margin/internal/repository"
	"margin/pkg/pagination"
)

// AuditLogQuery selects one page of the history.
type AuditLogQuery struct {
	Page      int    `form:"-"`
	Limit     int    `form:"-"`
	EntityID  string `form:"entity_id"`
	Action    string `form:"action"`
	UserEmail string `form:"user_email"`
}

type AuditLogResponse struct {
	ID         string          `json:"id"`
	UserEmail  string          `json:"user_email"`
	Action     string          `json:"action"`
	EntityID   string          `json:"entity_id"`
	EntityName string          `json:"entity_name"`
	Details    json.RawMessage `json:"details"`
	CreatedAt  string          `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, query AuditLogQuery) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// GetAuditLogs returns one page of entries, newest first.
func (s *auditService) GetAuditLogs(ctx context.Context, query AuditLogQuery) ([]AuditLogResponse, int64, error) {
	p := pagination.New(query.Page, query.Limit)
	filter := repository.AuditFilter{EntityID: query.EntityID, Action: query.Action, UserEmail: query.UserEmail}
	logs, total, err := s.repo.List(ctx, filter, p.Page, p.Limit)
	if err != nil {
		return nil, 0, apperror.Internal("failed to fetch audit logs", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		email := l.UserEmail
		if email == "" {
			email = "System"
		}
		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserEmail:  email,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    json.RawMessage(l.Details),
			CreatedAt:  l.CreatedAt.Format(timeLayout),
		})
	}

	return res, total, nil
}

// auditRecorder writes audit entries on behalf of the other services.
type auditRecorder struct {
	repo repository.AuditRepository
}

// record is best-effort: a failed audit write never fails the operation.
// Inside RunInTx the entry shares the caller's transaction.
func (a auditRecorder) record(ctx context.Context, userEmail, action, entityID, entityName string, details any) {
	if a.repo == nil {
		return
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("null")
	}

	entry := model.AuditLog{
		UserEmail:  userEmail,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    detailsJSON,
	}
	if err := a.repo.Log(ctx, &entry); err != nil {
		log.Printf("audit: failed to record %s on %s: %v", action, entityID, err)
	}
}
