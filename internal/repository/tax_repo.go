package repository

import (
	"context"

	"margin/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaxRepository interface {
	EntityRepository[model.Tax]
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Tax, error)
}

type taxRepository struct {
	*entityRepository[model.Tax]
}

func NewTaxRepository(db *gorm.DB) TaxRepository {
	return &taxRepository{newEntityRepository[model.Tax](db, "name asc")}
}

func (r *taxRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Tax, error) {
	var taxes []model.Tax
	if len(ids) == 0 {
		return taxes, nil
	}
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&taxes).Error; err != nil {
		return nil, err
	}
	return taxes, nil
}
