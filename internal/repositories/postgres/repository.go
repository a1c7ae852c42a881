package postgres

import (
	"github.com/cdc-hr/assessment-engine/internal/models"
	"github.com/cdc-hr/assessment-engine/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	attempt repositories.AttemptRepository
	bank    repositories.BankRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		attempt: NewAttemptPostgreSQL(db),
		bank:    NewBankPostgreSQL(db),
	}
}

func (r *repository) Attempt() repositories.AttemptRepository { return r.attempt }
func (r *repository) Bank() repositories.BankRepository       { return r.bank }

// AutoMigrate creates the engine's tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.AttemptRecord{}, &BankRecord{})
}
