package application

import (
	"context"
	"sort"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/chaindex-network/chaindexd/internal/core/domain"
	"github.com/chaindex-network/chaindexd/internal/core/ports"
)

type pairEntry struct {
	pair domain.TradingPair
	book *domain.OrderBook
}

// PairRegistry is the process-wide cache mapping a trading pair hash to its
// metadata and order book. It is populated from the persisted pairs and open
// orders at startup and mutated as pair transactions commit or roll back.
//
// The registry is an injected dependency of the processors, not a singleton,
// so lifetime and test isolation stay explicit.
type PairRegistry struct {
	lock        sync.RWMutex
	pairs       map[chainhash.Hash]*pairEntry
	repoManager ports.RepoManager
}

// NewPairRegistry returns an empty registry reading from the given storage.
func NewPairRegistry(repoManager ports.RepoManager) *PairRegistry {
	return &PairRegistry{
		pairs:       map[chainhash.Hash]*pairEntry{},
		repoManager: repoManager,
	}
}

// Load populates the registry from the persisted pairs, rebuilding every
// book from the open orders. Books are independent, so they are rebuilt in
// parallel.
func (r *PairRegistry) Load(ctx context.Context) error {
	pairs, err := r.repoManager.PairRepository().GetAllPairs(ctx)
	if err != nil {
		return err
	}

	entries := make([]*pairEntry, len(pairs))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, pair := range pairs {
		i, pair := i, pair
		eg.Go(func() error {
			book, err := r.loadBook(egCtx, pair.Hash)
			if err != nil {
				return err
			}
			entries[i] = &pairEntry{pair: pair, book: book}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	for _, e := range entries {
		r.pairs[e.pair.Hash] = e
	}

	log.WithField("pairs", len(pairs)).Info("pair registry loaded")
	return nil
}

func (r *PairRegistry) loadBook(
	ctx context.Context, pairHash chainhash.Hash,
) (*domain.OrderBook, error) {
	orders, err := r.repoManager.OrderRepository().GetOrdersByPair(ctx, pairHash)
	if err != nil {
		return nil, err
	}
	// deterministic rebuild: insertion by placement order lets the book
	// re-derive the same price-time ranking on every node
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].Before(&orders[j])
	})

	book := domain.NewOrderBook()
	for i := range orders {
		if err := book.Insert(&orders[i]); err != nil {
			return nil, err
		}
	}
	return book, nil
}

// GetPair returns a copy of the pair metadata, or ErrPairNotFound.
func (r *PairRegistry) GetPair(hash chainhash.Hash) (*domain.TradingPair, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	e, ok := r.pairs[hash]
	if !ok {
		return nil, domain.ErrPairNotFound
	}
	pair := e.pair
	return &pair, nil
}

// GetBook returns the live order book of the pair, or ErrPairNotFound. All
// processors treat the absence as a validation failure, never a panic.
func (r *PairRegistry) GetBook(hash chainhash.Hash) (*domain.OrderBook, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	e, ok := r.pairs[hash]
	if !ok {
		return nil, domain.ErrPairNotFound
	}
	return e.book, nil
}

// AddPair registers a pair with an empty book.
func (r *PairRegistry) AddPair(pair domain.TradingPair) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.pairs[pair.Hash]; ok {
		return domain.ErrPairExists
	}
	r.pairs[pair.Hash] = &pairEntry{pair: pair, book: domain.NewOrderBook()}
	return nil
}

// RemovePair drops the pair and its book. Absence is tolerated, removal
// happens during rollback of a possibly never-committed creation.
func (r *PairRegistry) RemovePair(hash chainhash.Hash) {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.pairs, hash)
}

// UpdatePair replaces the cached metadata of a registered pair.
func (r *PairRegistry) UpdatePair(pair domain.TradingPair) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	e, ok := r.pairs[pair.Hash]
	if !ok {
		return domain.ErrPairNotFound
	}
	e.pair = pair
	return nil
}

// Pairs returns a copy of all the registered pairs.
func (r *PairRegistry) Pairs() []domain.TradingPair {
	r.lock.RLock()
	defer r.lock.RUnlock()

	out := make([]domain.TradingPair, 0, len(r.pairs))
	for _, e := range r.pairs {
		out = append(out, e.pair)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Hash.String() < out[j].Hash.String()
	})
	return out
}
