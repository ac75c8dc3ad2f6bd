package model

import "github.com/shopspring/decimal"

// Profit regimes
const (
	ProfitTypePresumed = "presumed"
	ProfitTypeReal     = "real"
)

// Company is an issuing company; its name keys the ERP credentials.
type Company struct {
	Base
	Name       string `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	ProfitType string `gorm:"type:varchar(10);not null" json:"profit_type"` // presumed, real
}

// Percentage is a selectable margin value, e.g. 10.00.
type Percentage struct {
	Base
	Value decimal.Decimal `gorm:"type:decimal(5,2);uniqueIndex;not null" json:"value"`
}
