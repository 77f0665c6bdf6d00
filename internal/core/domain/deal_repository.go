package domain

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// DealRepository is the abstraction for any kind of database intended to
// persist committed deals.
type DealRepository interface {
	// GetDeal returns the deal with the given hash, or ErrDealNotFound.
	GetDeal(ctx context.Context, hash chainhash.Hash) (*Deal, error)
	// GetDealsByPair returns all the deals settled on a pair.
	GetDealsByPair(ctx context.Context, pairHash chainhash.Hash) ([]Deal, error)
	// AddDeal persists a new deal.
	AddDeal(ctx context.Context, deal Deal) error
	// DeleteDeal removes the deal. Absence is not an error, deletion happens
	// during rollback of a possibly never-committed settlement.
	DeleteDeal(ctx context.Context, hash chainhash.Hash) error
}
