package repository

import (
	"context"

	"margin/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ICMSRateRepository interface {
	EntityRepository[model.ICMSRate]
	CreateBatch(ctx context.Context, rates []model.ICMSRate) error
	FindByStateAndGroup(ctx context.Context, stateID, groupID uuid.UUID) (*model.ICMSRate, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]model.ICMSRate, error)
}

type icmsRateRepository struct {
	*entityRepository[model.ICMSRate]
}

func NewICMSRateRepository(db *gorm.DB) ICMSRateRepository {
	return &icmsRateRepository{newEntityRepository[model.ICMSRate](db, "created_at asc", "State", "Group")}
}

func (r *icmsRateRepository) CreateBatch(ctx context.Context, rates []model.ICMSRate) error {
	if len(rates) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(&rates).Error
}

func (r *icmsRateRepository) FindByStateAndGroup(ctx context.Context, stateID, groupID uuid.UUID) (*model.ICMSRate, error) {
	var rate model.ICMSRate
	if err := r.query(ctx).
		Where("state_id = ? AND group_id = ?", stateID, groupID).
		First(&rate).Error; err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *icmsRateRepository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]model.ICMSRate, error) {
	var rates []model.ICMSRate
	if err := r.query(ctx).Where("group_id = ?", groupID).Order("created_at asc").Find(&rates).Error; err != nil {
		return nil, err
	}
	return rates, nil
}
