package dbbadger

import (
	"context"
	"errors"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/timshannon/badgerhold/v4"

	"github.com/chaindex-network/chaindexd/internal/core/domain"
)

type pairRepositoryImpl struct {
	store *badgerhold.Store
}

func newPairRepositoryImpl(store *badgerhold.Store) domain.PairRepository {
	return pairRepositoryImpl{store}
}

func (r pairRepositoryImpl) GetPair(
	ctx context.Context, hash chainhash.Hash,
) (*domain.TradingPair, error) {
	var pair domain.TradingPair
	var err error
	if tx, ok := txFromContext(ctx); ok {
		err = r.store.TxGet(tx, hash.String(), &pair)
	} else {
		err = r.store.Get(hash.String(), &pair)
	}
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrPairNotFound
		}
		return nil, err
	}
	return &pair, nil
}

func (r pairRepositoryImpl) GetAllPairs(
	ctx context.Context,
) ([]domain.TradingPair, error) {
	var pairs []domain.TradingPair
	var err error
	if tx, ok := txFromContext(ctx); ok {
		err = r.store.TxFind(tx, &pairs, nil)
	} else {
		err = r.store.Find(&pairs, nil)
	}
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

func (r pairRepositoryImpl) AddPair(
	ctx context.Context, pair domain.TradingPair,
) error {
	var err error
	if tx, ok := txFromContext(ctx); ok {
		err = r.store.TxInsert(tx, pair.Hash.String(), &pair)
	} else {
		err = r.store.Insert(pair.Hash.String(), &pair)
	}
	if errors.Is(err, badgerhold.ErrKeyExists) {
		return domain.ErrPairExists
	}
	return err
}

func (r pairRepositoryImpl) UpdatePair(
	ctx context.Context, hash chainhash.Hash,
	updateFn func(p *domain.TradingPair) (*domain.TradingPair, error),
) error {
	pair, err := r.GetPair(ctx, hash)
	if err != nil {
		return err
	}

	updated, err := updateFn(pair)
	if err != nil {
		return err
	}

	if tx, ok := txFromContext(ctx); ok {
		return r.store.TxUpdate(tx, hash.String(), updated)
	}
	return r.store.Update(hash.String(), updated)
}

func (r pairRepositoryImpl) DeletePair(
	ctx context.Context, hash chainhash.Hash,
) error {
	var err error
	if tx, ok := txFromContext(ctx); ok {
		err = r.store.TxDelete(tx, hash.String(), domain.TradingPair{})
	} else {
		err = r.store.Delete(hash.String(), domain.TradingPair{})
	}
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil
	}
	return err
}

func (r pairRepositoryImpl) AddBackup(
	ctx context.Context, backup domain.PairBackup,
) error {
	if tx, ok := txFromContext(ctx); ok {
		return r.store.TxInsert(tx, backup.TxHash.String(), &backup)
	}
	return r.store.Insert(backup.TxHash.String(), &backup)
}

func (r pairRepositoryImpl) GetBackup(
	ctx context.Context, txHash chainhash.Hash,
) (*domain.PairBackup, error) {
	var backup domain.PairBackup
	var err error
	if tx, ok := txFromContext(ctx); ok {
		err = r.store.TxGet(tx, txHash.String(), &backup)
	} else {
		err = r.store.Get(txHash.String(), &backup)
	}
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrPairNotFound
		}
		return nil, err
	}
	return &backup, nil
}

func (r pairRepositoryImpl) DeleteBackup(
	ctx context.Context, txHash chainhash.Hash,
) error {
	var err error
	if tx, ok := txFromContext(ctx); ok {
		err = r.store.TxDelete(tx, txHash.String(), domain.PairBackup{})
	} else {
		err = r.store.Delete(txHash.String(), domain.PairBackup{})
	}
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil
	}
	return err
}
