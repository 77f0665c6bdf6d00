package domain

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// PairRepository is the abstraction for any kind of database intended to
// persist trading pairs and the before-images of their edits.
type PairRepository interface {
	// GetPair returns the pair with the given hash, or ErrPairNotFound.
	GetPair(ctx context.Context, hash chainhash.Hash) (*TradingPair, error)
	// GetAllPairs returns all the registered pairs.
	GetAllPairs(ctx context.Context) ([]TradingPair, error)
	// AddPair persists a new pair, failing with ErrPairExists on a taken hash.
	AddPair(ctx context.Context, pair TradingPair) error
	// UpdatePair commits changes of a pair in a transactional way.
	UpdatePair(
		ctx context.Context, hash chainhash.Hash,
		updateFn func(p *TradingPair) (*TradingPair, error),
	) error
	// DeletePair removes the pair. Absence is not an error, deletion happens
	// during rollback of a possibly never-committed creation.
	DeletePair(ctx context.Context, hash chainhash.Hash) error

	// AddBackup persists the before-image of an edited pair.
	AddBackup(ctx context.Context, backup PairBackup) error
	// GetBackup returns the before-image stored for the given edit
	// transaction, or ErrPairNotFound when absent.
	GetBackup(ctx context.Context, txHash chainhash.Hash) (*PairBackup, error)
	// DeleteBackup removes the before-image. Absence is not an error.
	DeleteBackup(ctx context.Context, txHash chainhash.Hash) error
}
