package dbbadger

import (
	"context"
	"errors"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/timshannon/badgerhold/v4"

	"github.com/chaindex-network/chaindexd/internal/core/domain"
)

type dealRepositoryImpl struct {
	store *badgerhold.Store
}

func newDealRepositoryImpl(store *badgerhold.Store) domain.DealRepository {
	return dealRepositoryImpl{store}
}

func (r dealRepositoryImpl) GetDeal(
	ctx context.Context, hash chainhash.Hash,
) (*domain.Deal, error) {
	var deal domain.Deal
	var err error
	if tx, ok := txFromContext(ctx); ok {
		err = r.store.TxGet(tx, hash.String(), &deal)
	} else {
		err = r.store.Get(hash.String(), &deal)
	}
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrDealNotFound
		}
		return nil, err
	}
	return &deal, nil
}

func (r dealRepositoryImpl) GetDealsByPair(
	ctx context.Context, pairHash chainhash.Hash,
) ([]domain.Deal, error) {
	query := badgerhold.Where("PairHash").Eq(pairHash)

	var deals []domain.Deal
	var err error
	if tx, ok := txFromContext(ctx); ok {
		err = r.store.TxFind(tx, &deals, query)
	} else {
		err = r.store.Find(&deals, query)
	}
	if err != nil {
		return nil, err
	}
	return deals, nil
}

func (r dealRepositoryImpl) AddDeal(
	ctx context.Context, deal domain.Deal,
) error {
	if tx, ok := txFromContext(ctx); ok {
		return r.store.TxInsert(tx, deal.Hash.String(), &deal)
	}
	return r.store.Insert(deal.Hash.String(), &deal)
}

func (r dealRepositoryImpl) DeleteDeal(
	ctx context.Context, hash chainhash.Hash,
) error {
	var err error
	if tx, ok := txFromContext(ctx); ok {
		err = r.store.TxDelete(tx, hash.String(), domain.Deal{})
	} else {
		err = r.store.Delete(hash.String(), domain.Deal{})
	}
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil
	}
	return err
}
