package handler

import (
	"net/http"

	"margin/internal/middleware"
	"margin/internal/service"
	"margin/pkg/response"

	"github.com/gin-gonic/gin"
)

type TaxHandler struct {
	taxService service.TaxService
}

func NewTaxHandler(taxService service.TaxService) *TaxHandler {
	return &TaxHandler{taxService: taxService}
}

func (h *TaxHandler) RegisterRoutes(router *gin.RouterGroup) {
	tax := router.Group("/taxes")
	admin := middleware.RequireMarginAdmin()
	{
		tax.GET("", h.ListTaxes)
		tax.GET("/company/:id", h.ListTaxesByCompany)
		tax.GET("/:id", h.GetTax)
		tax.POST("", admin, h.CreateTax)
		tax.PUT("/:id", admin, h.UpdateTax)
		tax.DELETE("/:id", admin, h.DeleteTax)
	}
}

// ListTaxes returns every tax with the totals per profit regime
// @Summary      List taxes
// @Tags         taxes
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.TaxListResponse}
// @Router       /taxes [get]
func (h *TaxHandler) ListTaxes(c *gin.Context) {
	taxes, err := h.taxService.ListTaxes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, taxes))
}

// ListTaxesByCompany returns the taxes with the rate of the company's regime
// @Summary      List taxes for a company
// @Tags         taxes
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Company ID"
// @Success      200  {object}  response.Response{data=[]service.CompanyTaxResponse}
// @Failure      404  {object}  response.Response
// @Router       /taxes/company/{id} [get]
func (h *TaxHandler) ListTaxesByCompany(c *gin.Context) {
	taxes, err := h.taxService.ListTaxesByCompany(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, taxes))
}

// GetTax
// @Summary      Get a tax
// @Tags         taxes
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Tax ID"
// @Success      200  {object}  response.Response{data=service.TaxResponse}
// @Failure      404  {object}  response.Response
// @Router       /taxes/{id} [get]
func (h *TaxHandler) GetTax(c *gin.Context) {
	tax, err := h.taxService.GetTax(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, tax))
}

// CreateTax creates a new tax entry
// @Summary      Create a tax
// @Tags         taxes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateTaxRequest  true  "Tax"
// @Success      201      {object}  response.Response{data=service.TaxResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /taxes [post]
func (h *TaxHandler) CreateTax(c *gin.Context) {
	var req service.CreateTaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tax, err := h.taxService.CreateTax(c.Request.Context(), req, middleware.UserEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, tax))
}

// UpdateTax
// @Summary      Update a tax
// @Tags         taxes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Tax ID"
// @Param        payload  body      service.UpdateTaxRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=service.TaxResponse}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /taxes/{id} [put]
func (h *TaxHandler) UpdateTax(c *gin.Context) {
	var req service.UpdateTaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tax, err := h.taxService.UpdateTax(c.Request.Context(), c.Param("id"), req, middleware.UserEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, tax))
}

// DeleteTax
// @Summary      Delete a tax
// @Tags         taxes
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Tax ID"
// @Success      200  {object}  response.Response{data=service.DetailResponse}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /taxes/{id} [delete]
func (h *TaxHandler) DeleteTax(c *gin.Context) {
	if err := h.taxService.DeleteTax(c.Request.Context(), c.Param("id"), middleware.UserEmail(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.DetailResponse{Detail: "tax deleted"}))
}
