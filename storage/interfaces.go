package storage

import (
	"context"

	"showroom-kpi/models"
)

// Encoder serializes a finalized table into an artifact payload.
type Encoder interface {
	Encode(t *models.Table) ([]byte, error)
}

// Deliverer stores a finished artifact under name and returns where it
// ended up.
type Deliverer interface {
	Deliver(ctx context.Context, name string, data []byte) (string, error)
}

// TableStore is any secondary backend that keeps a copy of a month's
// normalized table.
type TableStore interface {
	Save(ctx context.Context, t *models.Table) error
	Close() error
}
