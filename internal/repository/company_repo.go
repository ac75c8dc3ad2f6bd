package repository

import (
	"margin/internal/model"

	"gorm.io/gorm"
)

type CompanyRepository interface {
	EntityRepository[model.Company]
}

func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return newEntityRepository[model.Company](db, "name asc")
}

type PercentageRepository interface {
	EntityRepository[model.Percentage]
}

func NewPercentageRepository(db *gorm.DB) PercentageRepository {
	return newEntityRepository[model.Percentage](db, "value asc")
}
