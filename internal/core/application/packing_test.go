package application_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chaindex-network/chaindexd/internal/core/application"
	"github.com/chaindex-network/chaindexd/internal/core/domain"
)

func TestDoPackingSynthesizesDealAtMakerPrice(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	// resting sell at 0.90, placed at height 2
	sellHash := hashOf("resting-sell")
	rejs, err := env.pipeline.ApplyBlock(ctx, newBlock(
		2,
		placementTx(t, sellHash, env.pairHash, sellerAddress,
			domain.OrderSideSell, 90000000, 50000000, 0),
	))
	require.NoError(t, err)
	require.Empty(t, rejs)

	// incoming buy bids 0.95, crossing the book
	buyHash := hashOf("incoming-buy")
	buy := placementTx(t, buyHash, env.pairHash, buyerAddress,
		domain.OrderSideBuy, 95000000, 100000000, 95000000)

	out, err := env.pipeline.DoPacking(ctx, 10, []*application.Tx{buy})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, application.TxTypeOrderPlacement, out[0].Type)
	require.Equal(t, application.TxTypeDealSettlement, out[1].Type)

	settle := out[1].DealSettlement
	require.NotNil(t, settle)
	// the older resting order sets the price
	require.Equal(t, uint64(90000000), settle.Deal.Price)
	require.Equal(t, uint64(50000000), settle.Deal.BaseAmount)
	require.Equal(t, uint64(45000000), settle.Deal.QuoteAmount)
	require.Equal(t, domain.DealTypeSellOver, settle.Deal.Type)
	require.Equal(t, buyHash, settle.Deal.BuyOrderHash)
	require.Equal(t, sellHash, settle.Deal.SellOrderHash)
	require.Equal(t, settle.Deal.Hash, out[1].Hash)

	// packing only simulates, the live book is untouched
	book, err := env.registry.GetBook(env.pairHash)
	require.NoError(t, err)
	require.Equal(t, 1, book.Len())
	require.True(t, book.Contains(sellHash))

	// a second run over the same state derives the same transaction identity
	again, err := env.pipeline.DoPacking(ctx, 10, []*application.Tx{buy})
	require.NoError(t, err)
	require.Len(t, again, 2)
	require.Equal(t, out[1].Hash, again[1].Hash)
}

func TestDoPackingOutputAppliesCleanly(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	sellHash := hashOf("resting-sell")
	rejs, err := env.pipeline.ApplyBlock(ctx, newBlock(
		2,
		placementTx(t, sellHash, env.pairHash, sellerAddress,
			domain.OrderSideSell, 90000000, 50000000, 0),
	))
	require.NoError(t, err)
	require.Empty(t, rejs)

	buyHash := hashOf("incoming-buy")
	buy := placementTx(t, buyHash, env.pairHash, buyerAddress,
		domain.OrderSideBuy, 95000000, 100000000, 95000000)

	out, err := env.pipeline.DoPacking(ctx, 10, []*application.Tx{buy})
	require.NoError(t, err)

	rejs, err = env.pipeline.ApplyBlock(ctx, newBlock(10, out...))
	require.NoError(t, err)
	require.Empty(t, rejs)

	book, err := env.registry.GetBook(env.pairHash)
	require.NoError(t, err)
	require.False(t, book.Contains(sellHash))

	placed, err := book.Get(buyHash)
	require.NoError(t, err)
	require.Equal(t, uint64(50000000), placed.DealtAmount)
	require.Equal(t, uint64(50000000), placed.LeftQuote)
}

func TestDoPackingDealBelowBuyLimit(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	// the resting sell is deeper than the incoming buy so the buy's own
	// base remainder, not its quote budget, bounds the match at 0.90
	sellHash := hashOf("deep-sell")
	rejs, err := env.pipeline.ApplyBlock(ctx, newBlock(
		2,
		placementTx(t, sellHash, env.pairHash, sellerAddress,
			domain.OrderSideSell, 90000000, 200000000, 0),
	))
	require.NoError(t, err)
	require.Empty(t, rejs)

	buyHash := hashOf("incoming-buy")
	buy := placementTx(t, buyHash, env.pairHash, buyerAddress,
		domain.OrderSideBuy, 95000000, 100000000, 95000000)

	out, err := env.pipeline.DoPacking(ctx, 10, []*application.Tx{buy})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, application.TxTypeDealSettlement, out[1].Type)

	settle := out[1].DealSettlement
	require.Equal(t, uint64(90000000), settle.Deal.Price)
	require.Equal(t, uint64(100000000), settle.Deal.BaseAmount)
	require.Equal(t, uint64(90000000), settle.Deal.QuoteAmount)
	require.Equal(t, domain.DealTypeBuyOver, settle.Deal.Type)

	rejs, err = env.pipeline.ApplyBlock(ctx, newBlock(10, out...))
	require.NoError(t, err)
	require.Empty(t, rejs)

	// the buy is filled and closed, the sell rests on with its remainder
	book, err := env.registry.GetBook(env.pairHash)
	require.NoError(t, err)
	require.False(t, book.Contains(buyHash))

	left, err := book.Get(sellHash)
	require.NoError(t, err)
	require.Equal(t, uint64(100000000), left.LeftAmount())
}

func TestDoPackingNotCrossedNoDeal(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	sellHash := hashOf("resting-sell")
	rejs, err := env.pipeline.ApplyBlock(ctx, newBlock(
		2,
		placementTx(t, sellHash, env.pairHash, sellerAddress,
			domain.OrderSideSell, 90000000, 50000000, 0),
	))
	require.NoError(t, err)
	require.Empty(t, rejs)

	// bidding below the best ask, nothing to match
	buy := placementTx(t, hashOf("low-buy"), env.pairHash, buyerAddress,
		domain.OrderSideBuy, 80000000, 100000000, 80000000)

	out, err := env.pipeline.DoPacking(ctx, 10, []*application.Tx{buy})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, application.TxTypeOrderPlacement, out[0].Type)
}

func TestDoPackingCancelPreventsMatch(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	sellHash := hashOf("resting-sell")
	rejs, err := env.pipeline.ApplyBlock(ctx, newBlock(
		2,
		placementTx(t, sellHash, env.pairHash, sellerAddress,
			domain.OrderSideSell, 90000000, 50000000, 0),
	))
	require.NoError(t, err)
	require.Empty(t, rejs)

	cancel := cancelTx(hashOf("cancel"), env.pairHash, sellHash, sellerAddress)
	buy := placementTx(t, hashOf("incoming-buy"), env.pairHash, buyerAddress,
		domain.OrderSideBuy, 95000000, 100000000, 95000000)

	out, err := env.pipeline.DoPacking(ctx, 10, []*application.Tx{cancel, buy})
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, tx := range out {
		require.NotEqual(t, application.TxTypeDealSettlement, tx.Type)
	}
}

func TestDoPackingSweepsMultipleLevels(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rejs, err := env.pipeline.ApplyBlock(ctx, newBlock(
		2,
		placementTx(t, hashOf("ask-90"), env.pairHash, sellerAddress,
			domain.OrderSideSell, 90000000, 50000000, 0),
		placementTx(t, hashOf("ask-92"), env.pairHash, sellerAddress,
			domain.OrderSideSell, 92000000, 50000000, 0),
	))
	require.NoError(t, err)
	require.Empty(t, rejs)

	// enough quote budget to take out both price levels
	buy := placementTx(t, hashOf("big-buy"), env.pairHash, buyerAddress,
		domain.OrderSideBuy, 95000000, 100000000, 95000000)

	out, err := env.pipeline.DoPacking(ctx, 10, []*application.Tx{buy})
	require.NoError(t, err)

	var deals []*application.DealSettlement
	for _, tx := range out {
		if tx.Type == application.TxTypeDealSettlement {
			deals = append(deals, tx.DealSettlement)
		}
	}
	require.Len(t, deals, 2)
	require.Equal(t, hashOf("ask-90"), deals[0].Deal.SellOrderHash)
	require.Equal(t, uint64(90000000), deals[0].Deal.Price)
	require.Equal(t, hashOf("ask-92"), deals[1].Deal.SellOrderHash)
	require.Equal(t, uint64(92000000), deals[1].Deal.Price)
}
