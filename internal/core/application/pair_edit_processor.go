package application

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/chaindex-network/chaindexd/internal/core/domain"
	"github.com/chaindex-network/chaindexd/internal/core/ports"
)

type pairEditProcessor struct {
	repoManager ports.RepoManager
	registry    *PairRegistry
}

func newPairEditProcessor(
	repoManager ports.RepoManager, registry *PairRegistry,
) TxProcessor {
	return &pairEditProcessor{repoManager, registry}
}

func (p *pairEditProcessor) Type() TxType  { return TxTypePairEdit }
func (p *pairEditProcessor) Priority() int { return 5 }

func (p *pairEditProcessor) Validate(
	ctx context.Context, batch []*Tx,
) []Rejection {
	var rejs []Rejection
	seen := map[chainhash.Hash]struct{}{}

	for _, tx := range batch {
		edit := tx.PairEdit
		if edit == nil {
			rejs = reject(rejs, tx, ErrMalformedTx)
			continue
		}

		if _, ok := seen[edit.PairHash]; ok {
			rejs = reject(rejs, tx, domain.ErrDuplicateWithinBatch)
			continue
		}
		seen[edit.PairHash] = struct{}{}

		pair, err := p.registry.GetPair(edit.PairHash)
		if err != nil {
			rejs = reject(rejs, tx, err)
			continue
		}
		// dry-run the edit on the registry copy
		if _, err := pair.ApplyEdit(
			edit.Editor, edit.ScaleBaseDecimals, edit.ScaleQuoteDecimals,
			edit.MinBaseAmount,
		); err != nil {
			rejs = reject(rejs, tx, err)
		}
	}
	return rejs
}

func (p *pairEditProcessor) Commit(
	ctx context.Context, batch []*Tx, height uint64,
) error {
	pairRepo := p.repoManager.PairRepository()

	for i, tx := range batch {
		edit := tx.PairEdit

		pair, err := p.registry.GetPair(edit.PairHash)
		if err != nil {
			p.undo(ctx, batch[:i])
			return err
		}
		before, err := pair.ApplyEdit(
			edit.Editor, edit.ScaleBaseDecimals, edit.ScaleQuoteDecimals,
			edit.MinBaseAmount,
		)
		if err != nil {
			p.undo(ctx, batch[:i])
			return err
		}

		if err := p.registry.UpdatePair(*pair); err != nil {
			p.undo(ctx, batch[:i])
			return err
		}
		if err := pairRepo.UpdatePair(
			ctx, pair.Hash,
			func(_ *domain.TradingPair) (*domain.TradingPair, error) {
				return pair, nil
			},
		); err != nil {
			p.undo(ctx, batch[:i])
			return err
		}
		// the before-image makes the edit exactly reversible on rollback
		if err := pairRepo.AddBackup(ctx, domain.PairBackup{
			TxHash:   tx.Hash,
			PairHash: pair.Hash,
			Before:   *before,
		}); err != nil {
			p.undo(ctx, batch[:i])
			return err
		}
	}
	return nil
}

func (p *pairEditProcessor) Rollback(ctx context.Context, batch []*Tx) error {
	p.undo(ctx, batch)
	return nil
}

func (p *pairEditProcessor) undo(ctx context.Context, batch []*Tx) {
	pairRepo := p.repoManager.PairRepository()

	for i := len(batch) - 1; i >= 0; i-- {
		tx := batch[i]
		if tx.PairEdit == nil {
			continue
		}

		backup, err := pairRepo.GetBackup(ctx, tx.Hash)
		if err != nil {
			// no before-image means the edit never committed
			continue
		}

		before := backup.Before
		_ = p.registry.UpdatePair(before)
		_ = pairRepo.UpdatePair(
			ctx, before.Hash,
			func(_ *domain.TradingPair) (*domain.TradingPair, error) {
				return &before, nil
			},
		)
		_ = pairRepo.DeleteBackup(ctx, tx.Hash)
	}
}
