package inmemory

import (
	"context"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/chaindex-network/chaindexd/internal/core/domain"
)

// PairRepositoryImpl represents an in memory storage for trading pairs.
type PairRepositoryImpl struct {
	pairs   map[chainhash.Hash]domain.TradingPair
	backups map[chainhash.Hash]domain.PairBackup

	lock *sync.RWMutex
}

// NewPairRepositoryImpl returns a new empty PairRepositoryImpl.
func NewPairRepositoryImpl() *PairRepositoryImpl {
	return &PairRepositoryImpl{
		pairs:   map[chainhash.Hash]domain.TradingPair{},
		backups: map[chainhash.Hash]domain.PairBackup{},
		lock:    &sync.RWMutex{},
	}
}

func (r *PairRepositoryImpl) GetPair(
	_ context.Context, hash chainhash.Hash,
) (*domain.TradingPair, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	pair, ok := r.pairs[hash]
	if !ok {
		return nil, domain.ErrPairNotFound
	}
	return &pair, nil
}

func (r *PairRepositoryImpl) GetAllPairs(
	_ context.Context,
) ([]domain.TradingPair, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	pairs := make([]domain.TradingPair, 0, len(r.pairs))
	for _, p := range r.pairs {
		pairs = append(pairs, p)
	}
	return pairs, nil
}

func (r *PairRepositoryImpl) AddPair(
	_ context.Context, pair domain.TradingPair,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.pairs[pair.Hash]; ok {
		return domain.ErrPairExists
	}
	r.pairs[pair.Hash] = pair
	return nil
}

func (r *PairRepositoryImpl) UpdatePair(
	_ context.Context, hash chainhash.Hash,
	updateFn func(p *domain.TradingPair) (*domain.TradingPair, error),
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	pair, ok := r.pairs[hash]
	if !ok {
		return domain.ErrPairNotFound
	}

	updated, err := updateFn(&pair)
	if err != nil {
		return err
	}
	r.pairs[hash] = *updated
	return nil
}

func (r *PairRepositoryImpl) DeletePair(
	_ context.Context, hash chainhash.Hash,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.pairs, hash)
	return nil
}

func (r *PairRepositoryImpl) AddBackup(
	_ context.Context, backup domain.PairBackup,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.backups[backup.TxHash] = backup
	return nil
}

func (r *PairRepositoryImpl) GetBackup(
	_ context.Context, txHash chainhash.Hash,
) (*domain.PairBackup, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	backup, ok := r.backups[txHash]
	if !ok {
		return nil, domain.ErrPairNotFound
	}
	return &backup, nil
}

func (r *PairRepositoryImpl) DeleteBackup(
	_ context.Context, txHash chainhash.Hash,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.backups, txHash)
	return nil
}
