package cache

import (
	"context"
	"time"

	"salepoint/backend/internal/domain"
)

// TransactionCache holds hydrated transaction views on the read path. The
// service evicts an entry whenever the transaction's status changes, so a hit
// always reflects committed state.
type TransactionCache interface {
	Get(ctx context.Context, transactionID string) (*domain.TransactionView, bool, error)
	Set(ctx context.Context, view *domain.TransactionView, ttl time.Duration) error
	Delete(ctx context.Context, transactionID string) error
}

type NoopTransactionCache struct{}

func (NoopTransactionCache) Get(_ context.Context, _ string) (*domain.TransactionView, bool, error) {
	return nil, false, nil
}

func (NoopTransactionCache) Set(_ context.Context, _ *domain.TransactionView, _ time.Duration) error {
	return nil
}

func (NoopTransactionCache) Delete(_ context.Context, _ string) error {
	return nil
}
