package handler

import (
	"net/http"

	"margin/internal/middleware"
	"margin/internal/service"
	"margin/pkg/response"

	"github.com/gin-gonic/gin"
)

type ContractHandler struct {
	contractService service.ContractService
}

func NewContractHandler(contractService service.ContractService) *ContractHandler {
	return &ContractHandler{contractService: contractService}
}

// RegisterRoutes expects router to already run middleware.RequireAuth.
func (h *ContractHandler) RegisterRoutes(router *gin.RouterGroup) {
	contracts := router.Group("/contracts")
	{
		contracts.GET("/find", h.FindContract)
		contracts.GET("/calculate", h.CalculateContract)
		contracts.GET("/return", h.ReturnContract)
		contracts.GET("/:id", h.GetContract)
	}
}

func actorFrom(c *gin.Context) service.Actor {
	return service.Actor{
		Email:       middleware.UserEmail(c),
		BearerToken: middleware.BearerToken(c),
	}
}

// FindContract pulls a contract from the ERP and stores a normalized snapshot
// @Summary      Find a contract in the ERP
// @Description  Fetches the contract by its control number, resolves the tax rates and persists it
// @Tags         contracts
// @Security     BearerAuth
// @Produce      json
// @Param        company_id        query     string    true   "Company ID"
// @Param        contract          query     string    true   "ERP contract number"
// @Param        is_end_consumer   query     bool      false  "Client is the end consumer"
// @Param        taxes_considered  query     []string  true   "Tax IDs (repeated or comma separated)"
// @Success      201  {object}  response.Response{data=service.ContractResponse}
// @Failure      400  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      503  {object}  response.Response
// @Router       /contracts/find [get]
func (h *ContractHandler) FindContract(c *gin.Context) {
	var req service.FindContractRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	contract, err := h.contractService.FindContract(c.Request.Context(), req, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, contract))
}

// CalculateContract applies a margin to a stored contract
// @Summary      Calculate contract sale price
// @Description  Solves the sale price for the chosen margin and distributes it over the items
// @Tags         contracts
// @Security     BearerAuth
// @Produce      json
// @Param        contract_id    query     string  true   "Contract ID"
// @Param        percentage_id  query     string  true   "Margin percentage ID"
// @Param        admin_rate     query     number  true   "Administrative rate applied to freight"
// @Success      200  {object}  response.Response{data=service.ContractResponse}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /contracts/calculate [get]
func (h *ContractHandler) CalculateContract(c *gin.Context) {
	var req service.CalculateContractRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	contract, err := h.contractService.CalculateContract(c.Request.Context(), req, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, contract))
}

// ReturnContract pushes the calculated prices back to the ERP
// @Summary      Return contract to the ERP
// @Description  Updates the ERP contract with the new unit values and notifies the margin admins
// @Tags         contracts
// @Security     BearerAuth
// @Produce      json
// @Param        contract_id  query     string  true  "Contract ID"
// @Success      200  {object}  response.Response{data=service.ReturnContractResponse}
// @Failure      400  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      503  {object}  response.Response
// @Router       /contracts/return [get]
func (h *ContractHandler) ReturnContract(c *gin.Context) {
	var req service.ReturnContractRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.contractService.ReturnContract(c.Request.Context(), req, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// GetContract
// @Summary      Get a stored contract
// @Tags         contracts
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Contract ID"
// @Success      200  {object}  response.Response{data=service.ContractResponse}
// @Failure      404  {object}  response.Response
// @Router       /contracts/{id} [get]
func (h *ContractHandler) GetContract(c *gin.Context) {
	contract, err := h.contractService.GetContract(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, contract))
}
