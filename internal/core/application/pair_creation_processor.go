package application

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/chaindex-network/chaindexd/internal/core/domain"
	"github.com/chaindex-network/chaindexd/internal/core/ports"
)

type pairCreationProcessor struct {
	repoManager ports.RepoManager
	registry    *PairRegistry
}

func newPairCreationProcessor(
	repoManager ports.RepoManager, registry *PairRegistry,
) TxProcessor {
	return &pairCreationProcessor{repoManager, registry}
}

func (p *pairCreationProcessor) Type() TxType  { return TxTypePairCreation }
func (p *pairCreationProcessor) Priority() int { return 4 }

func (p *pairCreationProcessor) Validate(
	ctx context.Context, batch []*Tx,
) []Rejection {
	var rejs []Rejection
	seen := map[chainhash.Hash]struct{}{}

	for _, tx := range batch {
		if tx.PairCreation == nil {
			rejs = reject(rejs, tx, ErrMalformedTx)
			continue
		}
		pair := tx.PairCreation.Pair

		if _, ok := seen[pair.Hash]; ok {
			rejs = reject(rejs, tx, domain.ErrDuplicateWithinBatch)
			continue
		}
		seen[pair.Hash] = struct{}{}

		if _, err := p.registry.GetPair(pair.Hash); err == nil {
			rejs = reject(rejs, tx, domain.ErrPairExists)
			continue
		}
		if err := pair.Validate(); err != nil {
			rejs = reject(rejs, tx, err)
		}
	}
	return rejs
}

func (p *pairCreationProcessor) Commit(
	ctx context.Context, batch []*Tx, height uint64,
) error {
	for i, tx := range batch {
		pair := tx.PairCreation.Pair
		pair.CreatedAt = height

		if err := p.registry.AddPair(pair); err != nil {
			p.undo(ctx, batch[:i])
			return err
		}
		if err := p.repoManager.PairRepository().AddPair(ctx, pair); err != nil {
			p.registry.RemovePair(pair.Hash)
			p.undo(ctx, batch[:i])
			return err
		}
	}
	return nil
}

func (p *pairCreationProcessor) Rollback(
	ctx context.Context, batch []*Tx,
) error {
	p.undo(ctx, batch)
	return nil
}

// undo deregisters the pairs of the given prefix in reverse order. Missing
// records are tolerated.
func (p *pairCreationProcessor) undo(ctx context.Context, batch []*Tx) {
	for i := len(batch) - 1; i >= 0; i-- {
		tx := batch[i]
		if tx.PairCreation == nil {
			continue
		}
		hash := tx.PairCreation.Pair.Hash
		p.registry.RemovePair(hash)
		// absence is not an error during rollback
		_ = p.repoManager.PairRepository().DeletePair(ctx, hash)
	}
}
