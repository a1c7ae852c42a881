package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cdc-hr/assessment-engine/internal/models"
	"github.com/cdc-hr/assessment-engine/internal/repositories"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BankRecord is the persisted form of one mode's bank: a single JSONB
// document keyed by mode, replaced wholesale on every import.
type BankRecord struct {
	Mode      models.Mode    `gorm:"primaryKey;size:20"`
	Payload   datatypes.JSON `gorm:"type:jsonb"`
	UpdatedAt time.Time
}

func (BankRecord) TableName() string {
	return "bank_records"
}

type BankPostgreSQL struct {
	db *gorm.DB
}

func NewBankPostgreSQL(db *gorm.DB) repositories.BankRepository {
	return &BankPostgreSQL{db: db}
}

func (b *BankPostgreSQL) Save(ctx context.Context, bank *models.Bank) error {
	payload, err := json.Marshal(bank)
	if err != nil {
		return err
	}
	record := BankRecord{Mode: bank.Mode, Payload: payload}
	return b.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "mode"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(&record).Error
}

func (b *BankPostgreSQL) Get(ctx context.Context, mode models.Mode) (*models.Bank, error) {
	var record BankRecord
	if err := b.db.WithContext(ctx).First(&record, "mode = ?", mode).Error; err != nil {
		return nil, err
	}
	var bank models.Bank
	if err := json.Unmarshal(record.Payload, &bank); err != nil {
		return nil, err
	}
	return &bank, nil
}
