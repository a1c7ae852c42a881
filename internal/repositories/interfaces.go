package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/cdc-hr/assessment-engine/internal/models"
	"gorm.io/gorm"
)

// AttemptFilters narrows attempt history queries.
type AttemptFilters struct {
	Mode          *models.Mode `json:"mode"`
	CandidateName *string      `json:"candidate_name"`
	DateFrom      *time.Time   `json:"date_from"`
	DateTo        *time.Time   `json:"date_to"`
	Limit         int          `json:"limit"`
	Offset        int          `json:"offset"`
}

// AttemptRepository stores the append-only attempt history. Attempts
// are immutable once written; there is deliberately no Update.
type AttemptRepository interface {
	Create(ctx context.Context, record *models.AttemptRecord) error
	GetByID(ctx context.Context, id string) (*models.AttemptRecord, error)
	List(ctx context.Context, filters AttemptFilters) ([]*models.AttemptRecord, int64, error)
}

// BankRepository stores the canonical bank per mode. Saving replaces
// the previous bank wholesale.
type BankRepository interface {
	Save(ctx context.Context, bank *models.Bank) error
	Get(ctx context.Context, mode models.Mode) (*models.Bank, error)
}

// Repository aggregates all repositories behind one handle.
type Repository interface {
	Attempt() AttemptRepository
	Bank() BankRepository
}

// IsNotFoundError reports whether err is a record-not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
