package dbbadger

import (
	"context"
	"errors"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/timshannon/badgerhold/v4"

	"github.com/chaindex-network/chaindexd/internal/core/domain"
)

// closedOrder is the history-area record type, kept distinct from the open
// order type so the two live in separate badgerhold tables.
type closedOrder struct {
	Order domain.Order
}

type orderRepositoryImpl struct {
	store *badgerhold.Store
}

func newOrderRepositoryImpl(store *badgerhold.Store) domain.OrderRepository {
	return orderRepositoryImpl{store}
}

func (r orderRepositoryImpl) GetOrder(
	ctx context.Context, hash chainhash.Hash,
) (*domain.Order, error) {
	var order domain.Order
	var err error
	if tx, ok := txFromContext(ctx); ok {
		err = r.store.TxGet(tx, hash.String(), &order)
	} else {
		err = r.store.Get(hash.String(), &order)
	}
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r orderRepositoryImpl) GetOrdersByPair(
	ctx context.Context, pairHash chainhash.Hash,
) ([]domain.Order, error) {
	query := badgerhold.Where("PairHash").Eq(pairHash)

	var orders []domain.Order
	var err error
	if tx, ok := txFromContext(ctx); ok {
		err = r.store.TxFind(tx, &orders, query)
	} else {
		err = r.store.Find(&orders, query)
	}
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r orderRepositoryImpl) AddOrder(
	ctx context.Context, order domain.Order,
) error {
	var err error
	if tx, ok := txFromContext(ctx); ok {
		err = r.store.TxInsert(tx, order.Hash.String(), &order)
	} else {
		err = r.store.Insert(order.Hash.String(), &order)
	}
	if errors.Is(err, badgerhold.ErrKeyExists) {
		return domain.ErrDuplicateOrder
	}
	return err
}

func (r orderRepositoryImpl) UpdateOrder(
	ctx context.Context, hash chainhash.Hash,
	updateFn func(o *domain.Order) (*domain.Order, error),
) error {
	order, err := r.GetOrder(ctx, hash)
	if err != nil {
		return err
	}

	updated, err := updateFn(order)
	if err != nil {
		return err
	}

	if tx, ok := txFromContext(ctx); ok {
		return r.store.TxUpdate(tx, hash.String(), updated)
	}
	return r.store.Update(hash.String(), updated)
}

func (r orderRepositoryImpl) DeleteOrder(
	ctx context.Context, hash chainhash.Hash,
) error {
	var err error
	if tx, ok := txFromContext(ctx); ok {
		err = r.store.TxDelete(tx, hash.String(), domain.Order{})
	} else {
		err = r.store.Delete(hash.String(), domain.Order{})
	}
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil
	}
	return err
}

func (r orderRepositoryImpl) MoveToHistory(
	ctx context.Context, order domain.Order,
) error {
	if err := r.DeleteOrder(ctx, order.Hash); err != nil {
		return err
	}

	record := closedOrder{Order: order}
	if tx, ok := txFromContext(ctx); ok {
		return r.store.TxUpsert(tx, order.Hash.String(), &record)
	}
	return r.store.Upsert(order.Hash.String(), &record)
}

func (r orderRepositoryImpl) GetClosedOrder(
	ctx context.Context, hash chainhash.Hash,
) (*domain.Order, error) {
	var record closedOrder
	var err error
	if tx, ok := txFromContext(ctx); ok {
		err = r.store.TxGet(tx, hash.String(), &record)
	} else {
		err = r.store.Get(hash.String(), &record)
	}
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return &record.Order, nil
}

func (r orderRepositoryImpl) RestoreFromHistory(
	ctx context.Context, order domain.Order,
) error {
	var err error
	if tx, ok := txFromContext(ctx); ok {
		err = r.store.TxDelete(tx, order.Hash.String(), closedOrder{})
	} else {
		err = r.store.Delete(order.Hash.String(), closedOrder{})
	}
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return err
	}

	if tx, ok := txFromContext(ctx); ok {
		return r.store.TxUpsert(tx, order.Hash.String(), &order)
	}
	return r.store.Upsert(order.Hash.String(), &order)
}
