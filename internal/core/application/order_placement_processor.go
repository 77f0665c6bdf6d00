package application

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/chaindex-network/chaindexd/internal/core/domain"
	"github.com/chaindex-network/chaindexd/internal/core/ports"
)

type orderPlacementProcessor struct {
	repoManager ports.RepoManager
	registry    *PairRegistry
}

func newOrderPlacementProcessor(
	repoManager ports.RepoManager, registry *PairRegistry,
) TxProcessor {
	return &orderPlacementProcessor{repoManager, registry}
}

func (p *orderPlacementProcessor) Type() TxType  { return TxTypeOrderPlacement }
func (p *orderPlacementProcessor) Priority() int { return 2 }

func (p *orderPlacementProcessor) Validate(
	ctx context.Context, batch []*Tx,
) []Rejection {
	var rejs []Rejection
	seen := map[chainhash.Hash]struct{}{}

	for _, tx := range batch {
		if tx.OrderPlacement == nil {
			rejs = reject(rejs, tx, ErrMalformedTx)
			continue
		}
		order := tx.OrderPlacement.Order

		if _, ok := seen[order.Hash]; ok {
			rejs = reject(rejs, tx, domain.ErrDuplicateWithinBatch)
			continue
		}
		seen[order.Hash] = struct{}{}

		book, err := p.registry.GetBook(order.PairHash)
		if err != nil {
			rejs = reject(rejs, tx, err)
			continue
		}
		if book.Contains(order.Hash) {
			rejs = reject(rejs, tx, domain.ErrDuplicateOrder)
			continue
		}
		if _, err := domain.NewOrder(
			order.Hash, order.PairHash, order.Owner, order.Side,
			order.Price, order.Amount, order.LeftQuote,
		); err != nil {
			rejs = reject(rejs, tx, err)
		}
	}
	return rejs
}

func (p *orderPlacementProcessor) Commit(
	ctx context.Context, batch []*Tx, height uint64,
) error {
	for i, tx := range batch {
		order := tx.OrderPlacement.Order
		order.Height = height
		order.TxIndex = uint32(i)

		book, err := p.registry.GetBook(order.PairHash)
		if err != nil {
			p.undo(ctx, batch[:i])
			return err
		}
		if err := book.Insert(&order); err != nil {
			p.undo(ctx, batch[:i])
			return err
		}
		if err := p.repoManager.OrderRepository().AddOrder(ctx, order); err != nil {
			_ = book.Remove(order.Hash)
			p.undo(ctx, batch[:i])
			return err
		}
	}
	return nil
}

func (p *orderPlacementProcessor) Rollback(
	ctx context.Context, batch []*Tx,
) error {
	p.undo(ctx, batch)
	return nil
}

func (p *orderPlacementProcessor) undo(ctx context.Context, batch []*Tx) {
	for i := len(batch) - 1; i >= 0; i-- {
		tx := batch[i]
		if tx.OrderPlacement == nil {
			continue
		}
		order := tx.OrderPlacement.Order

		if book, err := p.registry.GetBook(order.PairHash); err == nil {
			// absence is not an error during rollback
			_ = book.Remove(order.Hash)
		}
		_ = p.repoManager.OrderRepository().DeleteOrder(ctx, order.Hash)
	}
}
