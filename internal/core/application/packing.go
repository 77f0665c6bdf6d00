package application

import (
	"bytes"
	"context"
	"sort"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	log "github.com/sirupsen/logrus"

	"github.com/chaindex-network/chaindexd/internal/core/domain"
)

// DoPacking arranges the candidate exchange transactions for a new block at
// the given height and synthesizes the deal settlements they enable.
//
// Cancels and placements are simulated on cloned books, then every affected
// pair is matched by repeatedly crossing the best bid and best ask while
// bestBid.Price >= bestAsk.Price, settling at the resting (maker) order's
// price; the maker is the older of the two orders under the same price-time
// ranking the book itself uses. The returned transactions are in block
// application order, synthesized deals included.
func (p *Pipeline) DoPacking(
	ctx context.Context, height uint64, candidates []*Tx,
) ([]*Tx, error) {
	byType := map[TxType][]*Tx{}
	for _, tx := range candidates {
		byType[tx.Type] = append(byType[tx.Type], tx)
	}

	clones := map[chainhash.Hash]*domain.OrderBook{}
	cloneOf := func(pairHash chainhash.Hash) (*domain.OrderBook, error) {
		if book, ok := clones[pairHash]; ok {
			return book, nil
		}
		book, err := p.registry.GetBook(pairHash)
		if err != nil {
			return nil, err
		}
		clone := book.Clone()
		clones[pairHash] = clone
		return clone, nil
	}

	// simulate the block's cancels and placements the same way commit will
	// apply them
	for _, tx := range byType[TxTypeOrderCancel] {
		if tx.OrderCancel == nil {
			continue
		}
		book, err := cloneOf(tx.OrderCancel.PairHash)
		if err != nil {
			continue
		}
		_ = book.Remove(tx.OrderCancel.OrderHash)
	}
	for i, tx := range byType[TxTypeOrderPlacement] {
		if tx.OrderPlacement == nil {
			continue
		}
		order := tx.OrderPlacement.Order
		order.Height = height
		order.TxIndex = uint32(i)

		book, err := cloneOf(order.PairHash)
		if err != nil {
			// the pair may not exist yet, the placement will be judged by
			// validation
			continue
		}
		if err := book.Insert(&order); err != nil {
			log.WithError(err).WithField(
				"order", order.Hash.String(),
			).Warn("packing: skipping placement")
		}
	}

	pairHashes := make([]chainhash.Hash, 0, len(clones))
	for hash := range clones {
		pairHashes = append(pairHashes, hash)
	}
	sort.Slice(pairHashes, func(i, j int) bool {
		return bytes.Compare(pairHashes[i][:], pairHashes[j][:]) < 0
	})

	var deals []*Tx
	for _, pairHash := range pairHashes {
		pair, err := p.registry.GetPair(pairHash)
		if err != nil {
			continue
		}
		dealTxs, err := matchBook(pair, clones[pairHash], height)
		if err != nil {
			return nil, err
		}
		deals = append(deals, dealTxs...)
	}

	out := make([]*Tx, 0, len(candidates)+len(deals))
	out = append(out, byType[TxTypeOrderCancel]...)
	out = append(out, byType[TxTypeOrderPlacement]...)
	out = append(out, deals...)
	out = append(out, byType[TxTypePairCreation]...)
	out = append(out, byType[TxTypePairEdit]...)
	return out, nil
}

// matchBook walks one cloned book and synthesizes settlement transactions
// while the top of the two sides is crossed.
func matchBook(
	pair *domain.TradingPair, book *domain.OrderBook, height uint64,
) ([]*Tx, error) {
	var out []*Tx

	for {
		buy, ok := book.BestBid()
		if !ok {
			break
		}
		sell, ok := book.BestAsk()
		if !ok {
			break
		}
		if buy.Price < sell.Price {
			break
		}

		// the resting side sets the price
		price := buy.Price
		if sell.Before(buy) {
			price = sell.Price
		}

		res, err := domain.ComputeDeal(pair, price, buy, sell)
		if err == domain.ErrNothingToMatch {
			break
		}
		if err != nil {
			return nil, err
		}

		deal := domain.Deal{
			PairHash:      pair.Hash,
			BuyOrderHash:  buy.Hash,
			SellOrderHash: sell.Hash,
			Price:         res.Price,
			BaseAmount:    res.BaseAmount,
			QuoteAmount:   res.QuoteAmount,
			Type:          res.Type(),
			Height:        height,
		}
		txHash := dealTxHash(&deal, res)
		deal.Hash = txHash

		out = append(out, &Tx{
			Hash: txHash,
			Type: TxTypeDealSettlement,
			DealSettlement: &DealSettlement{
				Deal:     deal,
				FromLegs: res.FromLegs,
				ToLegs:   res.ToLegs,
			},
		})

		if err := applyToClone(book, buy, res.QuoteAmount, res.BaseAmount, res.BuyOver); err != nil {
			return nil, err
		}
		if err := applyToClone(book, sell, res.QuoteAmount, res.BaseAmount, res.SellOver); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func applyToClone(
	book *domain.OrderBook, order *domain.Order,
	quoteAmount, baseAmount uint64, over bool,
) error {
	if err := order.Fill(baseAmount, quoteAmount); err != nil {
		return err
	}
	if over {
		return book.Remove(order.Hash)
	}
	return book.UpdateInPlace(order)
}

// dealTxHash derives a content hash for a synthesized settlement so that
// every proposer computes the same transaction identity.
func dealTxHash(deal *domain.Deal, res *domain.DealResult) chainhash.Hash {
	buf := new(bytes.Buffer)
	buf.Write(deal.PairHash[:])
	buf.Write(deal.BuyOrderHash[:])
	buf.Write(deal.SellOrderHash[:])
	buf.Write(res.Serialize())
	return chainhash.DoubleHashH(buf.Bytes())
}
