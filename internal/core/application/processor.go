package application

import (
	"context"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/chaindex-network/chaindexd/internal/core/ports"
)

// TxProcessor is the contract every exchange transaction type implements.
// Commit must be all-or-nothing for the batch: on any single transaction's
// failure the processor undoes its own partial effect before reporting the
// failure upward. Rollback applies the exact inverse of Commit in reverse
// transaction order and tolerates partially-absent data, a record may be
// missing because an earlier step of block assembly never completed.
type TxProcessor interface {
	Type() TxType
	// Priority returns this type's position in the per-block application
	// order, lower values are applied first. Cancels free book capacity
	// before new placements and deals read the book.
	Priority() int
	Validate(ctx context.Context, batch []*Tx) []Rejection
	Commit(ctx context.Context, batch []*Tx, height uint64) error
	Rollback(ctx context.Context, batch []*Tx) error
}

// Pipeline applies and rolls back blocks of exchange transactions against
// the pair registry and the persistence layer. It is single-writer per
// chain: no two blocks are ever applied concurrently.
type Pipeline struct {
	repoManager ports.RepoManager
	registry    *PairRegistry
	processors  []TxProcessor
}

// NewPipeline returns a pipeline wiring the five transaction processors,
// sorted by their application priority.
func NewPipeline(
	repoManager ports.RepoManager, registry *PairRegistry,
) *Pipeline {
	processors := []TxProcessor{
		newOrderCancelProcessor(repoManager, registry),
		newOrderPlacementProcessor(repoManager, registry),
		newDealProcessor(repoManager, registry),
		newPairCreationProcessor(repoManager, registry),
		newPairEditProcessor(repoManager, registry),
	}
	sort.Slice(processors, func(i, j int) bool {
		return processors[i].Priority() < processors[j].Priority()
	})

	return &Pipeline{
		repoManager: repoManager,
		registry:    registry,
		processors:  processors,
	}
}

// Validate runs every processor's validation against the current committed
// state and returns the per-type rejection lists. It does not mutate any
// state; the caller decides whether to drop the offending transactions or
// reject the whole block.
func (p *Pipeline) Validate(
	ctx context.Context, block *Block,
) map[TxType][]Rejection {
	out := map[TxType][]Rejection{}
	for _, proc := range p.processors {
		batch := block.Txs[proc.Type()]
		if len(batch) == 0 {
			continue
		}
		if rejs := proc.Validate(ctx, batch); len(rejs) > 0 {
			out[proc.Type()] = rejs
		}
	}
	return out
}

// ApplyBlock validates and commits the block's batches in priority order
// within a single storage transaction. Each batch is validated right before
// its commit so that the book state it reads already reflects the earlier
// batches of the same block. On any failure the already committed batches
// are rolled back in reverse and the block is reported as failed.
func (p *Pipeline) ApplyBlock(
	ctx context.Context, block *Block,
) (map[TxType][]Rejection, error) {
	rejections := map[TxType][]Rejection{}

	_, err := p.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			committed := make([]TxProcessor, 0, len(p.processors))

			undo := func() {
				for i := len(committed) - 1; i >= 0; i-- {
					proc := committed[i]
					if err := proc.Rollback(ctx, block.Txs[proc.Type()]); err != nil {
						log.WithError(err).WithField(
							"type", proc.Type().String(),
						).Error("rolling back partially applied block")
					}
				}
			}

			for _, proc := range p.processors {
				batch := block.Txs[proc.Type()]
				if len(batch) == 0 {
					continue
				}

				if rejs := proc.Validate(ctx, batch); len(rejs) > 0 {
					rejections[proc.Type()] = rejs
					undo()
					return nil, ErrBlockRejected
				}

				if err := proc.Commit(ctx, batch, block.Height); err != nil {
					undo()
					return nil, err
				}
				committed = append(committed, proc)
				txsCommitted.WithLabelValues(proc.Type().String()).
					Add(float64(len(batch)))
			}
			return nil, nil
		},
	)
	if err != nil {
		for _, rejs := range rejections {
			txsRejected.Add(float64(len(rejs)))
		}
		return rejections, err
	}

	blocksApplied.Inc()
	log.WithField("height", block.Height).Debug("block applied")
	return nil, nil
}

// RollbackBlock undoes a previously applied block, batches in reverse
// priority order, transactions within each batch in reverse order. Missing
// records are tolerated: a reorg may roll back state that was only partially
// persisted before a crash.
func (p *Pipeline) RollbackBlock(ctx context.Context, block *Block) error {
	_, err := p.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			for i := len(p.processors) - 1; i >= 0; i-- {
				proc := p.processors[i]
				batch := block.Txs[proc.Type()]
				if len(batch) == 0 {
					continue
				}
				if err := proc.Rollback(ctx, batch); err != nil {
					return nil, err
				}
			}
			return nil, nil
		},
	)
	if err != nil {
		return err
	}

	blocksRolledBack.Inc()
	log.WithField("height", block.Height).Debug("block rolled back")
	return nil
}

// reject is a small helper to append a rejection with the tx hash.
func reject(rejs []Rejection, tx *Tx, reason error) []Rejection {
	return append(rejs, Rejection{TxHash: tx.Hash, Reason: reason})
}
