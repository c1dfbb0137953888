// internal/store/store.go
package store

import (
	"context"

	"github.com/vatanpay/remit/internal/store/models"
)

// Store records completed and failed transfers for reconciliation.
type Store interface {
	SaveTransfer(ctx context.Context, transfer *models.Transfer) error
	GetTransfer(ctx context.Context, hash string) (*models.Transfer, error)
	ListTransfers(ctx context.Context, account string, limit, offset int) ([]*models.Transfer, error)

	RunMigrations() error
	Close() error
}
