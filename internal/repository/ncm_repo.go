package repository

import (
	"context"

	"margin/internal/model"

	"gorm.io/gorm"
)

type NCMGroupRepository interface {
	EntityRepository[model.NCMGroup]
}

func NewNCMGroupRepository(db *gorm.DB) NCMGroupRepository {
	return newEntityRepository[model.NCMGroup](db, "name asc", "NCMs")
}

type NCMRepository interface {
	EntityRepository[model.NCM]
	FindByCode(ctx context.Context, code string) (*model.NCM, error)
}

type ncmRepository struct {
	*entityRepository[model.NCM]
}

func NewNCMRepository(db *gorm.DB) NCMRepository {
	return &ncmRepository{newEntityRepository[model.NCM](db, "code asc", "Group")}
}

// FindByCode loads the NCM with its group.
func (r *ncmRepository) FindByCode(ctx context.Context, code string) (*model.NCM, error) {
	var ncm model.NCM
	if err := GetDB(ctx, r.db).Preload("Group").First(&ncm, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &ncm, nil
}
