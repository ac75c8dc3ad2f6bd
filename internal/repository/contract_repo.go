package repository

import (
	"context"

	"margin/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ContractRepository interface {
	// Create inserts the contract and its items.
	Create(ctx context.Context, contract *model.Contract) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	// Update saves the contract columns only.
	Update(ctx context.Context, contract *model.Contract) error
	UpdateItem(ctx context.Context, item *model.ContractItem) error
}

type contractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) ContractRepository {
	return &contractRepository{db: db}
}

func (r *contractRepository) Create(ctx context.Context, contract *model.Contract) error {
	return GetDB(ctx, r.db).
		Omit("Company", "State", "NCM", "ICMSRate", "Margin").
		Create(contract).Error
}

func (r *contractRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var contract model.Contract
	err := GetDB(ctx, r.db).
		Preload("Company").
		Preload("State").
		Preload("NCM").
		Preload("ICMSRate").
		Preload("ICMSRate.State").
		Preload("ICMSRate.Group").
		Preload("Margin").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("contract_items.item_index asc")
		}).
		First(&contract, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *contractRepository) Update(ctx context.Context, contract *model.Contract) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(contract).Error
}

func (r *contractRepository) UpdateItem(ctx context.Context, item *model.ContractItem) error {
	return GetDB(ctx, r.db).Model(item).Update("updated_value", item.UpdatedValue).Error
}
