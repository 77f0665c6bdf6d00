package dbbadger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"

	"github.com/chaindex-network/chaindexd/internal/core/domain"
	"github.com/chaindex-network/chaindexd/internal/core/ports"
)

const ctxTxKey = "tx"

type repoManager struct {
	store *badgerhold.Store

	pairRepository  domain.PairRepository
	orderRepository domain.OrderRepository
	dealRepository  domain.DealRepository
}

// NewRepoManager opens (or creates if not exists) the badger store on disk
// and returns the repositories backed by it. An empty dbDir opens an
// in-memory store, useful for tests.
func NewRepoManager(dbDir string, logger badger.Logger) (ports.RepoManager, error) {
	store, err := createDb(dbDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	rm := &repoManager{store: store}
	rm.pairRepository = newPairRepositoryImpl(store)
	rm.orderRepository = newOrderRepositoryImpl(store)
	rm.dealRepository = newDealRepositoryImpl(store)
	return rm, nil
}

func (d *repoManager) PairRepository() domain.PairRepository {
	return d.pairRepository
}

func (d *repoManager) OrderRepository() domain.OrderRepository {
	return d.orderRepository
}

func (d *repoManager) DealRepository() domain.DealRepository {
	return d.dealRepository
}

// RunTransaction runs the handler with a badger transaction in the context.
// Every repository operation made through that context is committed or
// discarded as a whole.
func (d *repoManager) RunTransaction(
	ctx context.Context,
	readOnly bool,
	handler func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	tx := d.store.Badger().NewTransaction(!readOnly)
	defer tx.Discard()

	//nolint:staticcheck
	txCtx := context.WithValue(ctx, ctxTxKey, tx)
	res, err := handler(txCtx)
	if err != nil {
		return nil, err
	}

	if !readOnly {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (d *repoManager) Close() {
	if err := d.store.Close(); err != nil {
		log.WithError(err).Warn("closing db")
	}
}

func txFromContext(ctx context.Context) (*badger.Txn, bool) {
	tx, ok := ctx.Value(ctxTxKey).(*badger.Txn)
	return tx, ok
}

// JSONEncode is a custom JSON based encoder for badger
func JSONEncode(value interface{}) ([]byte, error) {
	var buff bytes.Buffer

	en := json.NewEncoder(&buff)
	if err := en.Encode(value); err != nil {
		return nil, err
	}
	return buff.Bytes(), nil
}

// JSONDecode is a custom JSON based decoder for badger
func JSONDecode(data []byte, value interface{}) error {
	de := json.NewDecoder(bytes.NewReader(data))
	return de.Decode(value)
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger
	if len(dbDir) <= 0 {
		opts.InMemory = true
	}

	return badgerhold.Open(badgerhold.Options{
		Encoder:          JSONEncode,
		Decoder:          JSONDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}
