package domain

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// OrderRepository is the abstraction for any kind of database intended to
// persist orders, split in an open area (mirroring the in-memory books) and a
// closed/history area.
type OrderRepository interface {
	// GetOrder returns the open order with the given hash, or ErrOrderNotFound.
	GetOrder(ctx context.Context, hash chainhash.Hash) (*Order, error)
	// GetOrdersByPair returns all the open orders of a pair.
	GetOrdersByPair(ctx context.Context, pairHash chainhash.Hash) ([]Order, error)
	// AddOrder persists a new open order, failing with ErrDuplicateOrder on a
	// taken hash.
	AddOrder(ctx context.Context, order Order) error
	// UpdateOrder commits changes of an open order in a transactional way.
	UpdateOrder(
		ctx context.Context, hash chainhash.Hash,
		updateFn func(o *Order) (*Order, error),
	) error
	// DeleteOrder removes an open order. Absence is not an error, deletion
	// happens during rollback of a possibly never-committed placement.
	DeleteOrder(ctx context.Context, hash chainhash.Hash) error

	// MoveToHistory removes the order from the open area and stores its
	// closed state in the history area, atomically within the ambient
	// transaction.
	MoveToHistory(ctx context.Context, order Order) error
	// GetClosedOrder returns the order from the history area, or
	// ErrOrderNotFound.
	GetClosedOrder(ctx context.Context, hash chainhash.Hash) (*Order, error)
	// RestoreFromHistory moves the given order state back to the open area,
	// dropping the history record. Used by rollbacks.
	RestoreFromHistory(ctx context.Context, order Order) error
}
