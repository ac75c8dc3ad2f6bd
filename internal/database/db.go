package database

import (
	"log"
	"os"
	"time"

	"margin/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), Config())
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}
	if err := SeedStates(db); err != nil {
		log.Println("WARNING: Failed to seed states:", err)
	}

	return db, nil
}

// Config is shared by the postgres connection and the sqlite test databases.
// TranslateError makes unique violations surface as gorm.ErrDuplicatedKey.
func Config() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger: logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

// Migrate creates or updates every table the API owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.State{},
		&model.NCMGroup{},
		&model.NCM{},
		&model.ICMSRate{},
		&model.Tax{},
		&model.Company{},
		&model.Percentage{},
		&model.Contract{},
		&model.ContractItem{},
		&model.AuditLog{},
	)
}
