package inmemory

import (
	"context"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/chaindex-network/chaindexd/internal/core/domain"
)

// DealRepositoryImpl represents an in memory storage for committed deals.
type DealRepositoryImpl struct {
	deals map[chainhash.Hash]domain.Deal

	lock *sync.RWMutex
}

// NewDealRepositoryImpl returns a new empty DealRepositoryImpl.
func NewDealRepositoryImpl() *DealRepositoryImpl {
	return &DealRepositoryImpl{
		deals: map[chainhash.Hash]domain.Deal{},
		lock:  &sync.RWMutex{},
	}
}

func (r *DealRepositoryImpl) GetDeal(
	_ context.Context, hash chainhash.Hash,
) (*domain.Deal, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	deal, ok := r.deals[hash]
	if !ok {
		return nil, domain.ErrDealNotFound
	}
	return &deal, nil
}

func (r *DealRepositoryImpl) GetDealsByPair(
	_ context.Context, pairHash chainhash.Hash,
) ([]domain.Deal, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var deals []domain.Deal
	for _, d := range r.deals {
		if d.PairHash == pairHash {
			deals = append(deals, d)
		}
	}
	return deals, nil
}

func (r *DealRepositoryImpl) AddDeal(
	_ context.Context, deal domain.Deal,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.deals[deal.Hash] = deal
	return nil
}

func (r *DealRepositoryImpl) DeleteDeal(
	_ context.Context, hash chainhash.Hash,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.deals, hash)
	return nil
}
