package ports

import (
	"context"

	"github.com/chaindex-network/chaindexd/internal/core/domain"
)

// RepoManager gives access to all the domain repositories backed by the same
// storage and lets callers run multi-repository operations atomically.
type RepoManager interface {
	PairRepository() domain.PairRepository
	OrderRepository() domain.OrderRepository
	DealRepository() domain.DealRepository

	// RunTransaction runs the handler with a context carrying a storage
	// transaction. All repository reads and writes done through that context
	// either commit together or leave the storage untouched.
	RunTransaction(
		ctx context.Context,
		readOnly bool,
		handler func(ctx context.Context) (interface{}, error),
	) (interface{}, error)

	Close()
}

// Transaction defines the methods to commit or discard a storage transaction.
type Transaction interface {
	Commit() error
	Discard()
}
