package model

import (
	"regexp"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// State is a Brazilian federative unit. Seeded at startup and read-only afterwards.
type State struct {
	Base
	Name string `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Code string `gorm:"type:varchar(2);uniqueIndex;not null" json:"code"`
}

// NCMGroup clusters NCM codes that share the same ICMS rates.
type NCMGroup struct {
	Base
	Name string `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	NCMs []NCM  `gorm:"foreignKey:GroupID" json:"ncms"`
}

// NCM is a merchandise classification code (NNNN.NN.NN).
type NCM struct {
	Base
	Code                  string          `gorm:"type:varchar(10);uniqueIndex;not null" json:"code"`
	GroupID               uuid.UUID       `gorm:"type:uuid;not null;index" json:"group_id"`
	Group                 *NCMGroup       `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	PercentageEndConsumer decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"percentage_end_consumer"`
}

// ICMSRate holds the ICMS components for one (state, NCM group) pair.
type ICMSRate struct {
	Base
	StateID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_icms_state_group" json:"state_id"`
	State        *State          `gorm:"foreignKey:StateID" json:"state,omitempty"`
	GroupID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_icms_state_group;index" json:"group_id"`
	Group        *NCMGroup       `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	InternalRate decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"internal_rate"`
	DifalRate    decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"difal_rate"`
	PovertyRate  decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"poverty_rate"`
}

// TotalRate is internal + difal + poverty, in percentage points.
func (r ICMSRate) TotalRate() decimal.Decimal {
	return r.InternalRate.Add(r.DifalRate).Add(r.PovertyRate)
}

var ncmCodePattern = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}$`)

// ValidNCMCode reports whether code has the NNNN.NN.NN shape.
func ValidNCMCode(code string) bool {
	return ncmCodePattern.MatchString(code)
}
