package handler

import (
	"net/http"

	"margin/internal/middleware"
	"margin/internal/service"
	"margin/pkg/response"

	"github.com/gin-gonic/gin"
)

// ICMSHandler serves the fiscal reference data: states, NCM groups, NCMs and
// ICMS rates.
type ICMSHandler struct {
	stateService service.StateService
	ncmService   service.NCMService
	icmsService  service.ICMSService
}

func NewICMSHandler(stateService service.StateService, ncmService service.NCMService, icmsService service.ICMSService) *ICMSHandler {
	return &ICMSHandler{stateService: stateService, ncmService: ncmService, icmsService: icmsService}
}

func (h *ICMSHandler) RegisterRoutes(router *gin.RouterGroup) {
	icms := router.Group("/icms")
	admin := middleware.RequireMarginAdmin()

	states := icms.Group("/states")
	{
		states.GET("", h.ListStates)
		states.GET("/:id", h.GetState)
	}

	groups := icms.Group("/ncm-groups")
	{
		groups.GET("", h.ListNCMGroups)
		groups.GET("/:id", h.GetNCMGroup)
		groups.POST("", admin, h.CreateNCMGroup)
		groups.PUT("/:id", admin, h.UpdateNCMGroup)
		groups.DELETE("/:id", admin, h.DeleteNCMGroup)
	}

	ncm := icms.Group("/ncm")
	{
		ncm.GET("", h.ListNCMs)
		ncm.GET("/:id", h.GetNCM)
		ncm.POST("", admin, h.CreateNCM)
		ncm.PUT("/:id", admin, h.UpdateNCM)
		ncm.DELETE("/:id", admin, h.DeleteNCM)
	}

	rates := icms.Group("/rates")
	{
		rates.GET("", h.ListICMSRates)
		rates.GET("/group/:id", h.ListICMSRatesByGroup)
		rates.GET("/:id", h.GetICMSRate)
		rates.POST("", admin, h.CreateICMSRate)
		rates.POST("/bulk", admin, h.BulkCreateICMSRates)
		rates.PUT("/bulk", admin, h.BulkUpdateICMSRates)
		rates.PUT("/:id", admin, h.UpdateICMSRate)
		rates.DELETE("/:id", admin, h.DeleteICMSRate)
	}
}

// ListStates
// @Summary      List states
// @Tags         icms
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.StateListResponse}
// @Router       /icms/states [get]
func (h *ICMSHandler) ListStates(c *gin.Context) {
	states, err := h.stateService.ListStates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, states))
}

// GetState
// @Summary      Get a state
// @Tags         icms
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "State ID"
// @Success      200  {object}  response.Response{data=service.StateResponse}
// @Failure      404  {object}  response.Response
// @Router       /icms/states/{id} [get]
func (h *ICMSHandler) GetState(c *gin.Context) {
	state, err := h.stateService.GetState(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, state))
}

// ListNCMGroups
// @Summary      List NCM groups with their NCMs
// @Tags         icms
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.NCMGroupListResponse}
// @Router       /icms/ncm-groups [get]
func (h *ICMSHandler) ListNCMGroups(c *gin.Context) {
	groups, err := h.ncmService.ListGroups(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, groups))
}

// GetNCMGroup
// @Summary      Get an NCM group
// @Tags         icms
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "NCM group ID"
// @Success      200  {object}  response.Response{data=service.NCMGroupResponse}
// @Failure      404  {object}  response.Response
// @Router       /icms/ncm-groups/{id} [get]
func (h *ICMSHandler) GetNCMGroup(c *gin.Context) {
	group, err := h.ncmService.GetGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, group))
}

// CreateNCMGroup
// @Summary      Create an NCM group
// @Tags         icms
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.NCMGroupRequest  true  "NCM group"
// @Success      201      {object}  response.Response{data=service.NCMGroupResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /icms/ncm-groups [post]
func (h *ICMSHandler) CreateNCMGroup(c *gin.Context) {
	var req service.NCMGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	group, err := h.ncmService.CreateGroup(c.Request.Context(), req, middleware.UserEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, group))
}

// UpdateNCMGroup
// @Summary      Rename an NCM group
// @Tags         icms
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "NCM group ID"
// @Param        payload  body      service.NCMGroupRequest  true  "NCM group"
// @Success      200      {object}  response.Response{data=service.NCMGroupResponse}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /icms/ncm-groups/{id} [put]
func (h *ICMSHandler) UpdateNCMGroup(c *gin.Context) {
	var req service.NCMGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	group, err := h.ncmService.UpdateGroup(c.Request.Context(), c.Param("id"), req, middleware.UserEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, group))
}

// DeleteNCMGroup
// @Summary      Delete an NCM group
// @Tags         icms
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "NCM group ID"
// @Success      200  {object}  response.Response{data=service.DetailResponse}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /icms/ncm-groups/{id} [delete]
func (h *ICMSHandler) DeleteNCMGroup(c *gin.Context) {
	if err := h.ncmService.DeleteGroup(c.Request.Context(), c.Param("id"), middleware.UserEmail(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.DetailResponse{Detail: "NCM group deleted"}))
}

// ListNCMs
// @Summary      List NCMs
// @Tags         icms
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.NCMListResponse}
// @Router       /icms/ncm [get]
func (h *ICMSHandler) ListNCMs(c *gin.Context) {
	ncms, err := h.ncmService.ListNCMs(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, ncms))
}

// GetNCM
// @Summary      Get an NCM
// @Tags         icms
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "NCM ID"
// @Success      200  {object}  response.Response{data=service.NCMResponse}
// @Failure      404  {object}  response.Response
// @Router       /icms/ncm/{id} [get]
func (h *ICMSHandler) GetNCM(c *gin.Context) {
	ncm, err := h.ncmService.GetNCM(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, ncm))
}

// CreateNCM
// @Summary      Create an NCM
// @Description  Code must follow the NNNN.NN.NN format
// @Tags         icms
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateNCMRequest  true  "NCM"
// @Success      201      {object}  response.Response{data=service.NCMResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /icms/ncm [post]
func (h *ICMSHandler) CreateNCM(c *gin.Context) {
	var req service.CreateNCMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ncm, err := h.ncmService.CreateNCM(c.Request.Context(), req, middleware.UserEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, ncm))
}

// UpdateNCM
// @Summary      Update an NCM
// @Tags         icms
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "NCM ID"
// @Param        payload  body      service.UpdateNCMRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=service.NCMResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /icms/ncm/{id} [put]
func (h *ICMSHandler) UpdateNCM(c *gin.Context) {
	var req service.UpdateNCMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ncm, err := h.ncmService.UpdateNCM(c.Request.Context(), c.Param("id"), req, middleware.UserEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, ncm))
}

// DeleteNCM
// @Summary      Delete an NCM
// @Tags         icms
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "NCM ID"
// @Success      200  {object}  response.Response{data=service.DetailResponse}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /icms/ncm/{id} [delete]
func (h *ICMSHandler) DeleteNCM(c *gin.Context) {
	if err := h.ncmService.DeleteNCM(c.Request.Context(), c.Param("id"), middleware.UserEmail(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.DetailResponse{Detail: "NCM deleted"}))
}

// ListICMSRates
// @Summary      List ICMS rates
// @Tags         icms
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.ICMSRateListResponse}
// @Router       /icms/rates [get]
func (h *ICMSHandler) ListICMSRates(c *gin.Context) {
	rates, err := h.icmsService.ListRates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rates))
}

// ListICMSRatesByGroup
// @Summary      List the ICMS rates of one NCM group
// @Tags         icms
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "NCM group ID"
// @Success      200  {object}  response.Response{data=service.ICMSRateListResponse}
// @Failure      404  {object}  response.Response
// @Router       /icms/rates/group/{id} [get]
func (h *ICMSHandler) ListICMSRatesByGroup(c *gin.Context) {
	rates, err := h.icmsService.ListRatesByGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rates))
}

// GetICMSRate
// @Summary      Get an ICMS rate
// @Tags         icms
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "ICMS rate ID"
// @Success      200  {object}  response.Response{data=service.ICMSRateResponse}
// @Failure      404  {object}  response.Response
// @Router       /icms/rates/{id} [get]
func (h *ICMSHandler) GetICMSRate(c *gin.Context) {
	rate, err := h.icmsService.GetRate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rate))
}

// CreateICMSRate
// @Summary      Create an ICMS rate
// @Description  A state may have only one rate per NCM group
// @Tags         icms
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateICMSRateRequest  true  "ICMS rate"
// @Success      201      {object}  response.Response{data=service.ICMSRateResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /icms/rates [post]
func (h *ICMSHandler) CreateICMSRate(c *gin.Context) {
	var req service.CreateICMSRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	rate, err := h.icmsService.CreateRate(c.Request.Context(), req, middleware.UserEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rate))
}

// UpdateICMSRate
// @Summary      Update an ICMS rate
// @Tags         icms
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "ICMS rate ID"
// @Param        payload  body      service.UpdateICMSRateRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=service.ICMSRateResponse}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /icms/rates/{id} [put]
func (h *ICMSHandler) UpdateICMSRate(c *gin.Context) {
	var req service.UpdateICMSRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	rate, err := h.icmsService.UpdateRate(c.Request.Context(), c.Param("id"), req, middleware.UserEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rate))
}

// DeleteICMSRate
// @Summary      Delete an ICMS rate
// @Tags         icms
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "ICMS rate ID"
// @Success      200  {object}  response.Response{data=service.DetailResponse}
// @Failure      404  {object}  response.Response
// @Router       /icms/rates/{id} [delete]
func (h *ICMSHandler) DeleteICMSRate(c *gin.Context) {
	if err := h.icmsService.DeleteRate(c.Request.Context(), c.Param("id"), middleware.UserEmail(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.DetailResponse{Detail: "ICMS rate deleted"}))
}

// BulkCreateICMSRates
// @Summary      Create the ICMS rates of a group for every state
// @Description  All rates must target the same group and every state must be sent exactly once
// @Tags         icms
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.BulkICMSRatesRequest  true  "Rates"
// @Success      201      {object}  response.Response{data=service.DetailResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /icms/rates/bulk [post]
func (h *ICMSHandler) BulkCreateICMSRates(c *gin.Context) {
	var req service.BulkICMSRatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.icmsService.BulkCreateRates(c.Request.Context(), req, middleware.UserEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// BulkUpdateICMSRates
// @Summary      Update many ICMS rates at once
// @Description  Rates are matched by state and group; nothing is written if one is missing
// @Tags         icms
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.BulkICMSRatesRequest  true  "Rates"
// @Success      200      {object}  response.Response{data=service.DetailResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /icms/rates/bulk [put]
func (h *ICMSHandler) BulkUpdateICMSRates(c *gin.Context) {
	var req service.BulkICMSRatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.icmsService.BulkUpdateRates(c.Request.Context(), req, middleware.UserEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
