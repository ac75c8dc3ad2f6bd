package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"margin/internal/apperror"
	"margin/internal/erp"
	"margin/internal/model"
	"margin/internal/notify"
	"margin/internal/repository"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Contract events pushed to websocket subscribers.
const (
	EventContractFound      = "contract.found"
	EventContractCalculated = "contract.calculated"
	EventContractReturned   = "contract.returned"
)

// --- DTOs ---

type FindContractRequest struct {
	CompanyID       string   `form:"company_id" binding:"required,uuid"`
	Contract        string   `form:"contract" binding:"required"`
	IsEndConsumer   bool     `form:"is_end_consumer"`
	TaxesConsidered []string `form:"taxes_considered"` // repeated or comma separated
}

type CalculateContractRequest struct {
	ContractID   string   `form:"contract_id" binding:"required,uuid"`
	PercentageID string   `form:"percentage_id" binding:"required,uuid"`
	AdminRate    *float64 `form:"admin_rate" binding:"required"`
}

type ReturnContractRequest struct {
	ContractID string `form:"contract_id" binding:"required,uuid"`
}

type ContractItemResponse struct {
	ID               string   `json:"id"`
	Index            int      `json:"index"`
	Name             string   `json:"name"`
	ContributionRate float64  `json:"contribution_rate"`
	SaleItemID       int64    `json:"sale_item_id"`
	ProductID        int64    `json:"product_id"`
	Quantity         int64    `json:"quantity"`
	UpdatedValue     *float64 `json:"updated_value"`
}

type ContractResponse struct {
	ID                  string                 `json:"id"`
	ContractID          int64                  `json:"contract_id"`
	ContractNumber      string                 `json:"contract_number"`
	Company             *CompanyResponse       `json:"company,omitempty"`
	ClientID            int64                  `json:"client_id"`
	ClientName          string                 `json:"client_name"`
	ConstructionName    string                 `json:"construction_name"`
	DeliveryDate        string                 `json:"delivery_date"`
	NetCost             float64                `json:"net_cost"`
	NetCostWithoutTaxes float64                `json:"net_cost_without_taxes"`
	NetCostWithMargin   *float64               `json:"net_cost_with_margin"`
	FreightValue        float64                `json:"freight_value"`
	Commission          float64                `json:"commission"`
	State               *StateResponse         `json:"state,omitempty"`
	NCM                 *NCMResponse           `json:"ncm,omitempty"`
	ICMS                *ICMSRateResponse      `json:"icms,omitempty"`
	OtherTaxes          float64                `json:"other_taxes"`
	TaxesConsidered     string                 `json:"taxes_considered"`
	IsEndConsumer       bool                   `json:"is_end_consumer"`
	EndConsumerRate     float64                `json:"end_consumer_rate"`
	IsICMSTaxpayer      bool                   `json:"is_icms_taxpayer"`
	Account             int64                  `json:"account"`
	Installments        int64                  `json:"installments"`
	Xped                string                 `json:"xped"`
	Margin              *PercentageResponse    `json:"margin"`
	AdminRate           *float64               `json:"admin_rate"`
	CalculatedAt        *string                `json:"calculated_at"`
	ReturnedAt          *string                `json:"returned_at"`
	Items               []ContractItemResponse `json:"items"`
}

type ReturnContractResponse struct {
	Detail string `json:"detail"`
	URL    string `json:"url"`
}

// Actor is the authenticated caller of a contract operation.
type Actor struct {
	Email       string
	BearerToken string
}

// EventPublisher fans contract events out to live subscribers.
type EventPublisher interface {
	Publish(event string, payload any)
}

// --- Interface ---

type ContractService interface {
	FindContract(ctx context.Context, req FindContractRequest, actor Actor) (ContractResponse, error)
	CalculateContract(ctx context.Context, req CalculateContractRequest, actor Actor) (ContractResponse, error)
	ReturnContract(ctx context.Context, req ReturnContractRequest, actor Actor) (ReturnContractResponse, error)
	GetContract(ctx context.Context, id string) (ContractResponse, error)
}

// ContractDeps groups the collaborators of the contract pipeline.
type ContractDeps struct {
	Contracts   repository.ContractRepository
	Companies   repository.CompanyRepository
	Percentages repository.PercentageRepository
	Audit       repository.AuditRepository
	TxManager   repository.TransactionManager
	Normalizer  *ContractNormalizer
	Gateway     erp.Gateway
	Credentials erp.CredentialProvider
	Directory   notify.RecipientDirectory
	Notifier    notify.Notifier
	Events      EventPublisher
	ERPWebURL   string
}

type contractService struct {
	ContractDeps
	audit auditRecorder
	now   func() time.Time
}

func NewContractService(deps ContractDeps) ContractService {
	if deps.ERPWebURL == "" {
		deps.ERPWebURL = erp.DefaultWebURL
	}
	return &contractService{ContractDeps: deps, audit: auditRecorder{repo: deps.Audit}, now: time.Now}
}

// --- Implementation ---

// FindContract pulls a contract from the ERP, normalizes it and stores the snapshot.
func (s *contractService) FindContract(ctx context.Context, req FindContractRequest, actor Actor) (ContractResponse, error) {
	companyID, err := parseID(req.CompanyID, "company")
	if err != nil {
		return ContractResponse{}, err
	}
	taxIDs, err := parseTaxIDs(req.TaxesConsidered)
	if err != nil {
		return ContractResponse{}, err
	}

	company, err := s.Companies.FindByID(ctx, companyID)
	if err != nil {
		return ContractResponse{}, repoError(err, "company not found", "")
	}

	creds, err := s.Credentials.Credentials(company.Name)
	if err != nil {
		return ContractResponse{}, err
	}

	record, raw, err := s.Gateway.FindContract(ctx, creds, strings.TrimSpace(req.Contract))
	if err != nil {
		return ContractResponse{}, err
	}

	contract, err := s.Normalizer.Normalize(ctx, NormalizeInput{
		Record:        record,
		Raw:           raw,
		Company:       company,
		IsEndConsumer: req.IsEndConsumer,
		TaxIDs:        taxIDs,
		Contributor: func(ctx context.Context, clientID int64) (int, error) {
			return s.Gateway.FindClientContributor(ctx, creds, clientID)
		},
	})
	if err != nil {
		return ContractResponse{}, err
	}

	err = s.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.Contracts.Create(txCtx, contract); err != nil {
			return apperror.Internal("could not save contract", err)
		}
		s.audit.record(txCtx, actor.Email, model.ActionFindContract, contract.ID.String(), contract.ContractNumber,
			map[string]any{"company": company.Name, "is_end_consumer": req.IsEndConsumer, "taxes_considered": contract.TaxesConsidered})
		return nil
	})
	if err != nil {
		return ContractResponse{}, err
	}

	log.Printf("contract %s stored from ERP (%d items)", contract.ContractNumber, len(contract.Items))
	res := toContractResponse(contract)
	s.publish(EventContractFound, res)
	return res, nil
}

// CalculateContract solves the sale price for a margin and spreads it over
// the items. Contract and items are written in one transaction.
func (s *contractService) CalculateContract(ctx context.Context, req CalculateContractRequest, actor Actor) (ContractResponse, error) {
	contractID, err := parseID(req.ContractID, "contract")
	if err != nil {
		return ContractResponse{}, err
	}
	percentageID, err := parseID(req.PercentageID, "percentage")
	if err != nil {
		return ContractResponse{}, err
	}
	if req.AdminRate == nil {
		return ContractResponse{}, apperror.BadRequest("missing admin_rate")
	}
	if *req.AdminRate < 0 || *req.AdminRate >= 100 {
		return ContractResponse{}, apperror.BadRequest("admin_rate must be between 0 and 100")
	}
	adminRate := rate(*req.AdminRate)

	var contract *model.Contract
	err = s.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		contract, err = s.Contracts.FindByID(txCtx, contractID)
		if err != nil {
			return repoError(err, "contract not found", "")
		}
		if contract.IsReturned() {
			return apperror.BadRequest("contract %s was already returned to the ERP", contract.ContractNumber)
		}

		percentage, err := s.Percentages.FindByID(txCtx, percentageID)
		if err != nil {
			return repoError(err, "percentage not found", "")
		}

		price, err := SolveSalePrice(MarginInputFor(contract, percentage.Value, adminRate))
		if err != nil {
			return err
		}
		DistributeSalePrice(price, contract.Items)

		now := s.now()
		contract.NetCostWithMargin = &price
		contract.MarginID = &percentage.ID
		contract.Margin = percentage
		contract.AdminRate = &adminRate
		contract.CalculatedAt = &now

		if err := s.Contracts.Update(txCtx, contract); err != nil {
			return apperror.Internal("could not save contract", err)
		}
		for i := range contract.Items {
			if err := s.Contracts.UpdateItem(txCtx, &contract.Items[i]); err != nil {
				return apperror.Internal("could not save contract", err)
			}
		}

		s.audit.record(txCtx, actor.Email, model.ActionCalcContract, contract.ID.String(), contract.ContractNumber,
			map[string]any{"margin": percentage.Value, "admin_rate": adminRate, "sale_price": price})
		return nil
	})
	if err != nil {
		return ContractResponse{}, err
	}

	res := toContractResponse(contract)
	s.publish(EventContractCalculated, res)
	return res, nil
}

// ReturnContract pushes the calculated values back to the ERP and notifies
// the margin administrators and the caller.
func (s *contractService) ReturnContract(ctx context.Context, req ReturnContractRequest, actor Actor) (ReturnContractResponse, error) {
	contractID, err := parseID(req.ContractID, "contract")
	if err != nil {
		return ReturnContractResponse{}, err
	}

	contract, err := s.Contracts.FindByID(ctx, contractID)
	if err != nil {
		return ReturnContractResponse{}, repoError(err, "contract not found", "")
	}
	if contract.IsReturned() {
		return ReturnContractResponse{}, apperror.BadRequest("contract %s was already returned to the ERP", contract.ContractNumber)
	}
	if !contract.IsCalculated() {
		return ReturnContractResponse{}, apperror.BadRequest("contract %s must be calculated before it is returned", contract.ContractNumber)
	}

	companyName := ""
	if contract.Company != nil {
		companyName = contract.Company.Name
	}
	creds, err := s.Credentials.Credentials(companyName)
	if err != nil {
		return ReturnContractResponse{}, err
	}

	if err := s.Gateway.UpdateContract(ctx, creds, contract.ContractID, UpdatePayloadFor(contract)); err != nil {
		return ReturnContractResponse{}, err
	}

	now := s.now()
	contract.ReturnedAt = &now
	if err := s.Contracts.Update(ctx, contract); err != nil {
		return ReturnContractResponse{}, apperror.Internal("could not save contract", err)
	}
	s.audit.record(ctx, actor.Email, model.ActionReturnContract, contract.ID.String(), contract.ContractNumber,
		map[string]any{"erp_contract_id": contract.ContractID})

	recipients := s.recipients(ctx, actor)
	if err := s.Notifier.ContractReturned(ctx, contract, recipients); err != nil {
		log.Printf("contract %s returned but notification failed: %v", contract.ContractNumber, err)
		return ReturnContractResponse{}, apperror.Internal("could not send notification", err)
	}

	url := erp.EditURL(s.ERPWebURL, contract.ContractID)
	s.publish(EventContractReturned, map[string]any{"id": contract.ID.String(), "contract_number": contract.ContractNumber, "url": url})

	return ReturnContractResponse{
		Detail: fmt.Sprintf("contract %s returned successfully", contract.ContractNumber),
		URL:    url,
	}, nil
}

func (s *contractService) GetContract(ctx context.Context, id string) (ContractResponse, error) {
	contractID, err := parseID(id, "contract")
	if err != nil {
		return ContractResponse{}, err
	}
	contract, err := s.Contracts.FindByID(ctx, contractID)
	if err != nil {
		return ContractResponse{}, repoError(err, "contract not found", "")
	}
	return toContractResponse(contract), nil
}

// --- Helpers ---

// recipients merges the margin admins with the caller. A directory outage
// only narrows the list: the ERP was already updated at this point.
func (s *contractService) recipients(ctx context.Context, actor Actor) []string {
	var admins []string
	if s.Directory != nil {
		var err error
		admins, err = s.Directory.MarginAdminEmails(ctx, actor.BearerToken)
		if err != nil {
			log.Printf("margin admin lookup failed, notifying caller only: %v", err)
		}
	}
	return lo.Uniq(lo.Compact(append(admins, actor.Email)))
}

func (s *contractService) publish(event string, payload any) {
	if s.Events != nil {
		s.Events.Publish(event, payload)
	}
}

// UpdatePayloadFor builds the ERP update body from a calculated contract.
func UpdatePayloadFor(c *model.Contract) erp.UpdatePayload {
	products := make([]erp.ProductUpdate, 0, len(c.Items))
	for _, item := range c.Items {
		products = append(products, erp.ProductUpdate{
			Produto:       item.ProductID,
			Qtde:          item.Quantity,
			ValorUnitario: lo.FromPtr(item.UpdatedValue).InexactFloat64(),
			ID:            item.SaleItemID,
		})
	}
	return erp.UpdatePayload{
		Cliente:        c.ClientID,
		NumeroControle: c.ContractNumber,
		DataEntrega:    c.DeliveryDate.Format(erpDateLayout),
		Xped:           c.Xped,
		ContaCorrente:  c.Account,
		Parcelamento:   c.Installments,
		Produtos:       products,
	}
}

// parseTaxIDs accepts repeated values and comma separated lists alike.
func parseTaxIDs(values []string) ([]uuid.UUID, error) {
	raw := lo.FlatMap(values, func(v string, _ int) []string { return strings.Split(v, ",") })
	raw = lo.Compact(lo.Map(raw, func(v string, _ int) string { return strings.TrimSpace(v) }))

	ids := make([]uuid.UUID, 0, len(raw))
	for _, v := range raw {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, apperror.BadRequest("invalid tax id %q", v)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func toContractResponse(c *model.Contract) ContractResponse {
	res := ContractResponse{
		ID:                  c.ID.String(),
		ContractID:          c.ContractID,
		ContractNumber:      c.ContractNumber,
		ClientID:            c.ClientID,
		ClientName:          c.ClientName,
		ConstructionName:    c.ConstructionName,
		DeliveryDate:        c.DeliveryDate.Format(erpDateLayout),
		NetCost:             toFloat(c.NetCost),
		NetCostWithoutTaxes: toFloat(c.NetCostWithoutTaxes),
		NetCostWithMargin:   toFloatPtr(c.NetCostWithMargin),
		FreightValue:        toFloat(c.FreightValue),
		Commission:          toFloat(c.Commission),
		OtherTaxes:          toFloat(c.OtherTaxes),
		TaxesConsidered:     c.TaxesConsidered,
		IsEndConsumer:       c.IsEndConsumer,
		EndConsumerRate:     toFloat(c.EndConsumerRate),
		IsICMSTaxpayer:      c.IsICMSTaxpayer,
		Account:             c.Account,
		Installments:        c.Installments,
		Xped:                c.Xped,
		AdminRate:           toFloatPtr(c.AdminRate),
		CalculatedAt:        formatTimePtr(c.CalculatedAt),
		ReturnedAt:          formatTimePtr(c.ReturnedAt),
		Items:               make([]ContractItemResponse, 0, len(c.Items)),
	}
	if c.Company != nil {
		company := toCompanyResponse(*c.Company)
		res.Company = &company
	}
	if c.State != nil {
		state := toStateResponse(*c.State)
		res.State = &state
	}
	if c.NCM != nil {
		ncm := toNCMResponse(*c.NCM)
		res.NCM = &ncm
	}
	if c.ICMSRate != nil {
		icms := toICMSRateResponse(*c.ICMSRate)
		res.ICMS = &icms
	}
	if c.Margin != nil {
		margin := toPercentageResponse(*c.Margin)
		res.Margin = &margin
	}
	for _, item := range c.Items {
		res.Items = append(res.Items, ContractItemResponse{
			ID:               item.ID.String(),
			Index:            item.Index,
			Name:             item.Name,
			ContributionRate: toFloat(item.ContributionRate),
			SaleItemID:       item.SaleItemID,
			ProductID:        item.ProductID,
			Quantity:         item.Quantity,
			UpdatedValue:     toFloatPtr(item.UpdatedValue),
		})
	}
	return res
}
