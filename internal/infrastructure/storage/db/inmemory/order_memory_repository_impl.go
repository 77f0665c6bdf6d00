package inmemory

import (
	"context"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/chaindex-network/chaindexd/internal/core/domain"
)

// OrderRepositoryImpl represents an in memory storage for orders, with
// distinct open and history areas.
type OrderRepositoryImpl struct {
	open   map[chainhash.Hash]domain.Order
	closed map[chainhash.Hash]domain.Order

	lock *sync.RWMutex
}

// NewOrderRepositoryImpl returns a new empty OrderRepositoryImpl.
func NewOrderRepositoryImpl() *OrderRepositoryImpl {
	return &OrderRepositoryImpl{
		open:   map[chainhash.Hash]domain.Order{},
		closed: map[chainhash.Hash]domain.Order{},
		lock:   &sync.RWMutex{},
	}
}

func (r *OrderRepositoryImpl) GetOrder(
	_ context.Context, hash chainhash.Hash,
) (*domain.Order, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	order, ok := r.open[hash]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return &order, nil
}

func (r *OrderRepositoryImpl) GetOrdersByPair(
	_ context.Context, pairHash chainhash.Hash,
) ([]domain.Order, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var orders []domain.Order
	for _, o := range r.open {
		if o.PairHash == pairHash {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

func (r *OrderRepositoryImpl) AddOrder(
	_ context.Context, order domain.Order,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.open[order.Hash]; ok {
		return domain.ErrDuplicateOrder
	}
	r.open[order.Hash] = order
	return nil
}

func (r *OrderRepositoryImpl) UpdateOrder(
	_ context.Context, hash chainhash.Hash,
	updateFn func(o *domain.Order) (*domain.Order, error),
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	order, ok := r.open[hash]
	if !ok {
		return domain.ErrOrderNotFound
	}

	updated, err := updateFn(&order)
	if err != nil {
		return err
	}
	r.open[hash] = *updated
	return nil
}

func (r *OrderRepositoryImpl) DeleteOrder(
	_ context.Context, hash chainhash.Hash,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.open, hash)
	return nil
}

func (r *OrderRepositoryImpl) MoveToHistory(
	_ context.Context, order domain.Order,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.open, order.Hash)
	r.closed[order.Hash] = order
	return nil
}

func (r *OrderRepositoryImpl) GetClosedOrder(
	_ context.Context, hash chainhash.Hash,
) (*domain.Order, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	order, ok := r.closed[hash]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return &order, nil
}

func (r *OrderRepositoryImpl) RestoreFromHistory(
	_ context.Context, order domain.Order,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.closed, order.Hash)
	r.open[order.Hash] = order
	return nil
}
