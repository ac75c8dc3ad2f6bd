package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionCreateNCMGroup = "CREATE_NCM_GROUP"
	ActionUpdateNCMGroup = "UPDATE_NCM_GROUP"
	ActionDeleteNCMGroup = "DELETE_NCM_GROUP"
	ActionCreateNCM      = "CREATE_NCM"
	ActionUpdateNCM      = "UPDATE_NCM"
	ActionDeleteNCM      = "DELETE_NCM"
	ActionCreateICMSRate = "CREATE_ICMS_RATE"
	ActionUpdateICMSRate = "UPDATE_ICMS_RATE"
	ActionDeleteICMSRate = "DELETE_ICMS_RATE"
	ActionBulkCreateICMS = "BULK_CREATE_ICMS_RATES"
	ActionBulkUpdateICMS = "BULK_UPDATE_ICMS_RATES"
	ActionCreateTax      = "CREATE_TAX"
	ActionUpdateTax      = "UPDATE_TAX"
	ActionDeleteTax      = "DELETE_TAX"
	ActionCreateCompany  = "CREATE_COMPANY"
	ActionUpdateCompany  = "UPDATE_COMPANY"
	ActionDeleteCompany  = "DELETE_COMPANY"
	ActionCreatePercent  = "CREATE_PERCENTAGE"
	ActionUpdatePercent  = "UPDATE_PERCENTAGE"
	ActionDeletePercent  = "DELETE_PERCENTAGE"
	ActionFindContract   = "FIND_CONTRACT"
	ActionCalcContract   = "CALCULATE_CONTRACT"
	ActionReturnContract = "RETURN_CONTRACT"
)

// AuditLog tracks who changed what and when. Users live in an external
// service, so the actor is identified by the e-mail claim of the token.
type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserEmail  string         `gorm:"type:varchar(255);index" json:"user_email"` // empty for automated actions
	Action     string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string         `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string         `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    datatypes.JSON `json:"details"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
