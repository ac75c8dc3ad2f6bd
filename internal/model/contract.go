package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Contract is a snapshot of an ERP contract taken when it was fetched.
// Snapshot fields never change; the margin fields are written by the
// calculation and the whole row is frozen once ReturnedAt is set.
type Contract struct {
	Base
	ContractID          int64            `gorm:"not null;index" json:"contract_id"` // ERP id
	ContractNumber      string           `gorm:"type:varchar(20);not null;index" json:"contract_number"`
	CompanyID           uuid.UUID        `gorm:"type:uuid;not null;index" json:"company_id"`
	Company             *Company         `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	ClientID            int64            `gorm:"not null" json:"client_id"`
	ClientName          string           `gorm:"type:varchar(255);not null" json:"client_name"`
	ConstructionName    string           `gorm:"type:varchar(255);not null" json:"construction_name"`
	DeliveryDate        time.Time        `gorm:"type:date;not null" json:"delivery_date"`
	NetCost             decimal.Decimal  `gorm:"type:decimal(18,4);not null" json:"net_cost"`
	NetCostWithoutTaxes decimal.Decimal  `gorm:"type:decimal(18,4);not null" json:"net_cost_without_taxes"`
	NetCostWithMargin   *decimal.Decimal `gorm:"type:decimal(18,4)" json:"net_cost_with_margin"`
	FreightValue        decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0" json:"freight_value"`
	Commission          decimal.Decimal  `gorm:"type:decimal(5,2);not null;default:0" json:"commission"`
	StateID             uuid.UUID        `gorm:"type:uuid;not null" json:"state_id"`
	State               *State           `gorm:"foreignKey:StateID" json:"state,omitempty"`
	NCMID               uuid.UUID        `gorm:"column:ncm_id;type:uuid;not null" json:"ncm_id"`
	NCM                 *NCM             `gorm:"foreignKey:NCMID" json:"ncm,omitempty"`
	ICMSRateID          uuid.UUID        `gorm:"column:icms_rate_id;type:uuid;not null" json:"icms_rate_id"`
	ICMSRate            *ICMSRate        `gorm:"foreignKey:ICMSRateID" json:"icms,omitempty"`
	OtherTaxes          decimal.Decimal  `gorm:"type:decimal(5,2);not null" json:"other_taxes"`
	TaxesConsidered     string           `gorm:"type:text" json:"taxes_considered"`
	Account             int64            `gorm:"not null" json:"account"`
	Installments        int64            `gorm:"not null" json:"installments"`
	Xped                string           `gorm:"type:varchar(255);not null;default:'N/A'" json:"xped"`
	MarginID            *uuid.UUID       `gorm:"type:uuid" json:"margin_id"`
	Margin              *Percentage      `gorm:"foreignKey:MarginID" json:"margin,omitempty"`
	IsEndConsumer       bool             `gorm:"not null;default:false" json:"is_end_consumer"`
	EndConsumerRate     decimal.Decimal  `gorm:"type:decimal(5,2);not null;default:0" json:"end_consumer_rate"`
	AdminRate           *decimal.Decimal `gorm:"type:decimal(5,2)" json:"admin_rate"`
	IsICMSTaxpayer      bool             `gorm:"column:is_icms_taxpayer;not null;default:false" json:"is_icms_taxpayer"`
	CalculatedAt        *time.Time       `json:"calculated_at"`
	ReturnedAt          *time.Time       `json:"returned_at"`
	RawPayload          datatypes.JSON   `json:"-"`
	Items               []ContractItem   `gorm:"foreignKey:ContractID;constraint:OnDelete:CASCADE" json:"items"`
}

// IsReturned reports whether the contract was already pushed back to the ERP.
func (c *Contract) IsReturned() bool {
	return c.ReturnedAt != nil
}

// IsCalculated reports whether a margin was applied.
func (c *Contract) IsCalculated() bool {
	return c.NetCostWithMargin != nil && c.MarginID != nil
}

// ContractItem is one product line of a contract.
type ContractItem struct {
	Base
	ContractID       uuid.UUID        `gorm:"type:uuid;not null;index" json:"contract_id"`
	Index            int              `gorm:"column:item_index;not null" json:"index"` // 1-based position
	Name             string           `gorm:"type:varchar(255);not null" json:"name"`
	ContributionRate decimal.Decimal  `gorm:"type:decimal(18,10);not null" json:"contribution_rate"` // % of the contract net cost
	SaleItemID       int64            `gorm:"not null" json:"sale_item_id"`
	ProductID        int64            `gorm:"not null" json:"product_id"`
	Quantity         int64            `gorm:"not null" json:"quantity"`
	UpdatedValue     *decimal.Decimal `gorm:"type:decimal(18,4)" json:"updated_value"` // null until calculated
}
