package handler

import (
	"net/http"

	"margin/internal/middleware"
	"margin/internal/service"
	"margin/pkg/response"

	"github.com/gin-gonic/gin"
)

type PercentageHandler struct {
	percentageService service.PercentageService
}

func NewPercentageHandler(percentageService service.PercentageService) *PercentageHandler {
	return &PercentageHandler{percentageService: percentageService}
}

func (h *PercentageHandler) RegisterRoutes(router *gin.RouterGroup) {
	percentages := router.Group("/percentages")
	admin := middleware.RequireMarginAdmin()
	{
		percentages.GET("", h.ListPercentages)
		percentages.GET("/:id", h.GetPercentage)
		percentages.POST("", admin, h.CreatePercentage)
		percentages.PUT("/:id", admin, h.UpdatePercentage)
		percentages.DELETE("/:id", admin, h.DeletePercentage)
	}
}

// @Summary      List margin percentages
// @Tags         percentages
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.PercentageListResponse}
// @Router       /percentages [get]
func (h *PercentageHandler) ListPercentages(c *gin.Context) {
	percentages, err := h.percentageService.ListPercentages(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, percentages))
}

// @Summary      Get a margin percentage
// @Tags         percentages
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Percentage ID"
// @Success      200  {object}  response.Response{data=service.PercentageResponse}
// @Failure      404  {object}  response.Response
// @Router       /percentages/{id} [get]
func (h *PercentageHandler) GetPercentage(c *gin.Context) {
	percentage, err := h.percentageService.GetPercentage(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, percentage))
}

// @Summary      Create a margin percentage
// @Tags         percentages
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.PercentageRequest  true  "Percentage"
// @Success      201      {object}  response.Response{data=service.PercentageResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /percentages [post]
func (h *PercentageHandler) CreatePercentage(c *gin.Context) {
	var req service.PercentageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	percentage, err := h.percentageService.CreatePercentage(c.Request.Context(), req, middleware.UserEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, percentage))
}

// @Summary      Update a margin percentage
// @Tags         percentages
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Percentage ID"
// @Param        payload  body      service.PercentageRequest  true  "Percentage"
// @Success      200      {object}  response.Response{data=service.PercentageResponse}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /percentages/{id} [put]
func (h *PercentageHandler) UpdatePercentage(c *gin.Context) {
	var req service.PercentageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	percentage, err := h.percentageService.UpdatePercentage(c.Request.Context(), c.Param("id"), req, middleware.UserEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, percentage))
}

// @Summary      Delete a margin percentage
// @Tags         percentages
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Percentage ID"
// @Success      200  {object}  response.Response{data=service.DetailResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /percentages/{id} [delete]
func (h *PercentageHandler) DeletePercentage(c *gin.Context) {
	if err := h.percentageService.DeletePercentage(c.Request.Context(), c.Param("id"), middleware.UserEmail(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.DetailResponse{Detail: "percentage deleted"}))
}
