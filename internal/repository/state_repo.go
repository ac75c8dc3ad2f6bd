package repository

import (
	"context"

	"margin/internal/model"

	"gorm.io/gorm"
)

type StateRepository interface {
	EntityRepository[model.State]
	FindByCode(ctx context.Context, code string) (*model.State, error)
}

type stateRepository struct {
	*entityRepository[model.State]
}

func NewStateRepository(db *gorm.DB) StateRepository {
	return &stateRepository{newEntityRepository[model.State](db, "code asc")}
}

func (r *stateRepository) FindByCode(ctx context.Context, code string) (*model.State, error) {
	var state model.State
	if err := GetDB(ctx, r.db).First(&state, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &state, nil
}
