package application

import (
	"bytes"
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/chaindex-network/chaindexd/internal/core/domain"
	"github.com/chaindex-network/chaindexd/internal/core/ports"
)

type dealProcessor struct {
	repoManager ports.RepoManager
	registry    *PairRegistry
}

func newDealProcessor(
	repoManager ports.RepoManager, registry *PairRegistry,
) TxProcessor {
	return &dealProcessor{repoManager, registry}
}

func (p *dealProcessor) Type() TxType  { return TxTypeDealSettlement }
func (p *dealProcessor) Priority() int { return 3 }

// Validate re-derives every proposed settlement and requires a byte-exact
// match against the recorded legs. Fills are replayed on working snapshots
// of the orders so that a later deal of the same batch validates against the
// state left by the earlier ones.
func (p *dealProcessor) Validate(
	ctx context.Context, batch []*Tx,
) []Rejection {
	var rejs []Rejection
	working := map[chainhash.Hash]*domain.Order{}

	snapshot := func(
		book *domain.OrderBook, hash chainhash.Hash,
	) (*domain.Order, error) {
		if o, ok := working[hash]; ok {
			return o, nil
		}
		o, err := book.Get(hash)
		if err != nil {
			return nil, err
		}
		working[hash] = o
		return o, nil
	}

	for _, tx := range batch {
		settle := tx.DealSettlement
		if settle == nil {
			rejs = reject(rejs, tx, ErrMalformedTx)
			continue
		}
		deal := settle.Deal

		// the embedded deal identity is also the record key of the commit
		// and the lookup key of the rollback
		if deal.Hash != tx.Hash {
			rejs = reject(rejs, tx, domain.ErrDataInconsistent)
			continue
		}

		pair, err := p.registry.GetPair(deal.PairHash)
		if err != nil {
			rejs = reject(rejs, tx, err)
			continue
		}
		book, err := p.registry.GetBook(deal.PairHash)
		if err != nil {
			rejs = reject(rejs, tx, err)
			continue
		}

		buy, err := snapshot(book, deal.BuyOrderHash)
		if err != nil {
			rejs = reject(rejs, tx, err)
			continue
		}
		sell, err := snapshot(book, deal.SellOrderHash)
		if err != nil {
			rejs = reject(rejs, tx, err)
			continue
		}

		computed, err := domain.ComputeDeal(pair, deal.Price, buy, sell)
		if err != nil {
			rejs = reject(rejs, tx, err)
			continue
		}

		proposed := &domain.DealResult{
			Price:       deal.Price,
			BaseAmount:  deal.BaseAmount,
			QuoteAmount: deal.QuoteAmount,
			BuyOver:     deal.Type == domain.DealTypeBuyOver || deal.Type == domain.DealTypeBothOver,
			SellOver:    deal.Type == domain.DealTypeSellOver || deal.Type == domain.DealTypeBothOver,
			FromLegs:    settle.FromLegs,
			ToLegs:      settle.ToLegs,
		}
		if !bytes.Equal(proposed.Serialize(), computed.Serialize()) {
			rejs = reject(rejs, tx, domain.ErrDataInconsistent)
			continue
		}

		// replay the fill on the snapshots for the rest of the batch
		if err := buy.Fill(computed.BaseAmount, computed.QuoteAmount); err != nil {
			rejs = reject(rejs, tx, err)
			continue
		}
		if err := sell.Fill(computed.BaseAmount, computed.QuoteAmount); err != nil {
			rejs = reject(rejs, tx, err)
			continue
		}
		if computed.BuyOver {
			_ = buy.MarkClosed(closeReason(buy))
		}
		if computed.SellOver {
			_ = sell.MarkClosed(closeReason(sell))
		}
	}
	return rejs
}

func (p *dealProcessor) Commit(
	ctx context.Context, batch []*Tx, height uint64,
) error {
	for i, tx := range batch {
		if err := p.commitOne(ctx, tx, height); err != nil {
			p.undo(ctx, batch[:i])
			return err
		}
		dealsSettled.Inc()
	}
	return nil
}

func (p *dealProcessor) commitOne(
	ctx context.Context, tx *Tx, height uint64,
) error {
	deal := tx.DealSettlement.Deal

	pair, err := p.registry.GetPair(deal.PairHash)
	if err != nil {
		return err
	}
	book, err := p.registry.GetBook(deal.PairHash)
	if err != nil {
		return err
	}
	buy, err := book.Get(deal.BuyOrderHash)
	if err != nil {
		return err
	}
	sell, err := book.Get(deal.SellOrderHash)
	if err != nil {
		return err
	}

	res, err := domain.ComputeDeal(pair, deal.Price, buy, sell)
	if err != nil {
		return err
	}

	// pre-fill snapshots, used to self-undo a partially applied settlement
	// so the live book never diverges from the discarded storage writes
	preBuy, preSell := *buy, *sell

	if err := buy.Fill(res.BaseAmount, res.QuoteAmount); err != nil {
		return err
	}
	if err := sell.Fill(res.BaseAmount, res.QuoteAmount); err != nil {
		return err
	}

	if err := p.applyOrder(ctx, book, buy, preBuy, res.BuyOver); err != nil {
		return err
	}
	if err := p.applyOrder(ctx, book, sell, preSell, res.SellOver); err != nil {
		p.unapplyOrder(ctx, book, preBuy, res.BuyOver)
		return err
	}

	deal.Height = height
	if err := p.repoManager.DealRepository().AddDeal(ctx, deal); err != nil {
		p.unapplyOrder(ctx, book, preSell, res.SellOver)
		p.unapplyOrder(ctx, book, preBuy, res.BuyOver)
		return err
	}
	return nil
}

// applyOrder writes the post-fill state of one order: force-closed orders
// leave the book and move to the history area, the others are updated in
// place. On failure the book is restored to the pre-fill state.
func (p *dealProcessor) applyOrder(
	ctx context.Context, book *domain.OrderBook, order *domain.Order,
	pre domain.Order, over bool,
) error {
	orderRepo := p.repoManager.OrderRepository()

	if !over {
		if err := book.UpdateInPlace(order); err != nil {
			return err
		}
		if err := orderRepo.UpdateOrder(
			ctx, order.Hash,
			func(_ *domain.Order) (*domain.Order, error) {
				return order, nil
			},
		); err != nil {
			_ = book.UpdateInPlace(&pre)
			return err
		}
		return nil
	}

	if err := order.MarkClosed(closeReason(order)); err != nil {
		return err
	}
	if err := book.Remove(order.Hash); err != nil {
		return err
	}
	if err := orderRepo.MoveToHistory(ctx, *order); err != nil {
		_ = book.Insert(&pre)
		return err
	}
	return nil
}

// unapplyOrder restores the pre-fill state of one order after a later step
// of the same settlement failed.
func (p *dealProcessor) unapplyOrder(
	ctx context.Context, book *domain.OrderBook, pre domain.Order, over bool,
) {
	orderRepo := p.repoManager.OrderRepository()

	if over {
		_ = orderRepo.RestoreFromHistory(ctx, pre)
		_ = book.Insert(&pre)
		return
	}

	_ = book.UpdateInPlace(&pre)
	_ = orderRepo.UpdateOrder(
		ctx, pre.Hash,
		func(_ *domain.Order) (*domain.Order, error) {
			return &pre, nil
		},
	)
}

func (p *dealProcessor) Rollback(ctx context.Context, batch []*Tx) error {
	p.undo(ctx, batch)
	return nil
}

// undo deletes the deals of the given prefix in reverse order and reverses
// both referenced orders' amount and nonce mutation, restoring force-closed
// orders into the book.
func (p *dealProcessor) undo(ctx context.Context, batch []*Tx) {
	dealRepo := p.repoManager.DealRepository()

	for i := len(batch) - 1; i >= 0; i-- {
		tx := batch[i]
		if tx.DealSettlement == nil {
			continue
		}

		deal, err := dealRepo.GetDeal(ctx, tx.Hash)
		if err != nil {
			// never committed, nothing to reverse
			continue
		}

		book, err := p.registry.GetBook(deal.PairHash)
		if err != nil {
			continue
		}

		buyClosed := deal.Type == domain.DealTypeBuyOver ||
			deal.Type == domain.DealTypeBothOver
		sellClosed := deal.Type == domain.DealTypeSellOver ||
			deal.Type == domain.DealTypeBothOver

		p.undoOrder(ctx, book, deal.BuyOrderHash, deal, buyClosed)
		p.undoOrder(ctx, book, deal.SellOrderHash, deal, sellClosed)

		_ = dealRepo.DeleteDeal(ctx, tx.Hash)
	}
}

func (p *dealProcessor) undoOrder(
	ctx context.Context, book *domain.OrderBook, hash chainhash.Hash,
	deal *domain.Deal, wasClosed bool,
) {
	orderRepo := p.repoManager.OrderRepository()

	var order *domain.Order
	if wasClosed {
		closed, err := orderRepo.GetClosedOrder(ctx, hash)
		if err != nil {
			return
		}
		closed.Reopen()
		if err := orderRepo.RestoreFromHistory(ctx, *closed); err != nil {
			return
		}
		if err := book.Insert(closed); err != nil {
			return
		}
		order = closed
	} else {
		o, err := book.Get(hash)
		if err != nil {
			return
		}
		order = o
	}

	if err := order.Unfill(deal.BaseAmount, deal.QuoteAmount); err != nil {
		return
	}
	_ = book.UpdateInPlace(order)
	_ = orderRepo.UpdateOrder(
		ctx, order.Hash,
		func(_ *domain.Order) (*domain.Order, error) {
			return order, nil
		},
	)
}

// closeReason tells dust from a full fill by what is left on the order.
func closeReason(o *domain.Order) domain.CloseType {
	if o.LeftAmount() == 0 {
		return domain.CloseTypeFilled
	}
	return domain.CloseTypeDust
}
