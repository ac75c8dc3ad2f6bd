package handler

import (
	"net/http"

	"margin/internal/service"
	"margin/pkg/pagination"
	"margin/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs returns the reference-data and contract history, newest first
// @Summary      Get audit logs
// @Description  Lists who changed rates, taxes and contracts
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20)"
// @Param        entity_id  query     string  false  "Only entries about this entity"
// @Param        action     query     string  false  "Only entries with this action"
// @Param        user_email query     string  false  "Only entries made by this user"
// @Success      200        {object}  response.Response{data=response.Page{items=[]service.AuditLogResponse}}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	var query service.AuditLogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}
	p := pagination.Parse(c)
	query.Page, query.Limit = p.Page, p.Limit

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, logs, total, p.Page, p.Limit))
}
