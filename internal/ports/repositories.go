package ports

import (
	"context"

	"github.com/Ramon-Alomia/entradas-app/internal/domain"
)

// UserRepository reads operator identities and their authorized warehouses.
// The receiving core only consumes this data; account CRUD lives elsewhere.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (domain.User, error)
}

// WarehouseRepository lists receivable locations for UI pickers.
type WarehouseRepository interface {
	List(ctx context.Context) ([]domain.Warehouse, error)
}

// ReceiptLogRepository is the append-only audit store keyed by operation
// fingerprint. FingerprintExists is a fast-path pre-check only: the insert in
// Append must rely on a storage-level uniqueness constraint and report a
// violation as domain.ErrDuplicateOperation, which is the authoritative
// duplicate signal under concurrency.
type ReceiptLogRepository interface {
	FingerprintExists(ctx context.Context, fingerprint string) (bool, error)
	Append(ctx context.Context, op domain.ReceiptOperation) error
}
