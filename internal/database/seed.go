package database

import (
	"margin/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// brazilianStates lists the 26 states plus the Federal District.
var brazilianStates = []model.State{
	{Code: "AC", Name: "Acre"},
	{Code: "AL", Name: "Alagoas"},
	{Code: "AP", Name: "Amapá"},
	{Code: "AM", Name: "Amazonas"},
	{Code: "BA", Name: "Bahia"},
	{Code: "CE", Name: "Ceará"},
	{Code: "DF", Name: "Distrito Federal"},
	{Code: "ES", Name: "Espírito Santo"},
	{Code: "GO", Name: "Goiás"},
	{Code: "MA", Name: "Maranhão"},
	{Code: "MT", Name: "Mato Grosso"},
	{Code: "MS", Name: "Mato Grosso do Sul"},
	{Code: "MG", Name: "Minas Gerais"},
	{Code: "PA", Name: "Pará"},
	{Code: "PB", Name: "Paraíba"},
	{Code: "PR", Name: "Paraná"},
	{Code: "PE", Name: "Pernambuco"},
	{Code: "PI", Name: "Piauí"},
	{Code: "RJ", Name: "Rio de Janeiro"},
	{Code: "RN", Name: "Rio Grande do Norte"},
	{Code: "RS", Name: "Rio Grande do Sul"},
	{Code: "RO", Name: "Rondônia"},
	{Code: "RR", Name: "Roraima"},
	{Code: "SC", Name: "Santa Catarina"},
	{Code: "SP", Name: "São Paulo"},
	{Code: "SE", Name: "Sergipe"},
	{Code: "TO", Name: "Tocantins"},
}

// SeedStates inserts the states that are missing. Existing rows are left untouched.
func SeedStates(db *gorm.DB) error {
	states := make([]model.State, len(brazilianStates))
	copy(states, brazilianStates)
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(&states).Error
}
