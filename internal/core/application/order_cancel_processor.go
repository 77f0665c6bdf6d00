package application

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/chaindex-network/chaindexd/internal/core/domain"
	"github.com/chaindex-network/chaindexd/internal/core/ports"
)

type orderCancelProcessor struct {
	repoManager ports.RepoManager
	registry    *PairRegistry
}

func newOrderCancelProcessor(
	repoManager ports.RepoManager, registry *PairRegistry,
) TxProcessor {
	return &orderCancelProcessor{repoManager, registry}
}

func (p *orderCancelProcessor) Type() TxType  { return TxTypeOrderCancel }
func (p *orderCancelProcessor) Priority() int { return 1 }

func (p *orderCancelProcessor) Validate(
	ctx context.Context, batch []*Tx,
) []Rejection {
	var rejs []Rejection
	seen := map[chainhash.Hash]struct{}{}

	for _, tx := range batch {
		cancel := tx.OrderCancel
		if cancel == nil {
			rejs = reject(rejs, tx, ErrMalformedTx)
			continue
		}

		if _, ok := seen[cancel.OrderHash]; ok {
			rejs = reject(rejs, tx, domain.ErrDuplicateWithinBatch)
			continue
		}
		seen[cancel.OrderHash] = struct{}{}

		book, err := p.registry.GetBook(cancel.PairHash)
		if err != nil {
			rejs = reject(rejs, tx, err)
			continue
		}
		order, err := book.Get(cancel.OrderHash)
		if err != nil {
			rejs = reject(rejs, tx, err)
			continue
		}
		if order.Owner != cancel.Canceller {
			rejs = reject(rejs, tx, ErrNotCanceller)
		}
	}
	return rejs
}

func (p *orderCancelProcessor) Commit(
	ctx context.Context, batch []*Tx, height uint64,
) error {
	for i, tx := range batch {
		cancel := tx.OrderCancel

		book, err := p.registry.GetBook(cancel.PairHash)
		if err != nil {
			p.undo(ctx, batch[:i])
			return err
		}
		order, err := book.Get(cancel.OrderHash)
		if err != nil {
			p.undo(ctx, batch[:i])
			return err
		}
		if err := order.MarkClosed(domain.CloseTypeCancelled); err != nil {
			p.undo(ctx, batch[:i])
			return err
		}
		if err := book.Remove(order.Hash); err != nil {
			p.undo(ctx, batch[:i])
			return err
		}
		if err := p.repoManager.OrderRepository().MoveToHistory(
			ctx, *order,
		); err != nil {
			order.Reopen()
			_ = book.Insert(order)
			p.undo(ctx, batch[:i])
			return err
		}
	}
	return nil
}

func (p *orderCancelProcessor) Rollback(
	ctx context.Context, batch []*Tx,
) error {
	p.undo(ctx, batch)
	return nil
}

// undo reopens the cancelled orders of the given prefix in reverse order,
// restoring them both in the book and in the open persistence area.
func (p *orderCancelProcessor) undo(ctx context.Context, batch []*Tx) {
	orderRepo := p.repoManager.OrderRepository()

	for i := len(batch) - 1; i >= 0; i-- {
		tx := batch[i]
		if tx.OrderCancel == nil {
			continue
		}
		cancel := tx.OrderCancel

		order, err := orderRepo.GetClosedOrder(ctx, cancel.OrderHash)
		if err != nil {
			// never cancelled, nothing to reverse
			continue
		}
		if order.CloseType != domain.CloseTypeCancelled {
			continue
		}

		order.Reopen()
		if err := orderRepo.RestoreFromHistory(ctx, *order); err != nil {
			continue
		}
		if book, err := p.registry.GetBook(cancel.PairHash); err == nil {
			_ = book.Insert(order)
		}
	}
}
