package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/chaindex-network/chaindexd/internal/core/application"
	"github.com/chaindex-network/chaindexd/internal/core/domain"
	"github.com/chaindex-network/chaindexd/internal/core/ports"
	"github.com/chaindex-network/chaindexd/internal/infrastructure/storage/db/inmemory"
)

var (
	ctx = context.Background()

	creatorAddress = base58.CheckEncode([]byte("pair-creator"), 1)
	buyerAddress   = base58.CheckEncode([]byte("buyer"), 1)
	sellerAddress  = base58.CheckEncode([]byte("seller"), 1)

	baseAsset  = domain.AssetRef{Chain: 1, Asset: 1}
	quoteAsset = domain.AssetRef{Chain: 2, Asset: 7}
)

func hashOf(s string) chainhash.Hash {
	return chainhash.HashH([]byte(s))
}

type testEnv struct {
	repoManager ports.RepoManager
	registry    *application.PairRegistry
	pipeline    *application.Pipeline
	pairHash    chainhash.Hash
}

func newBlock(height uint64, txs ...*application.Tx) *application.Block {
	grouped := map[application.TxType][]*application.Tx{}
	for _, tx := range txs {
		grouped[tx.Type] = append(grouped[tx.Type], tx)
	}
	return &application.Block{Height: height, Txs: grouped}
}

func creationTx(t *testing.T, txHash chainhash.Hash) *application.Tx {
	t.Helper()

	pair, err := domain.NewTradingPair(
		txHash, baseAsset, quoteAsset,
		8, 8, 8, 8, 10000000, creatorAddress,
	)
	require.NoError(t, err)

	return &application.Tx{
		Hash:         txHash,
		Type:         application.TxTypePairCreation,
		PairCreation: &application.PairCreation{Pair: *pair},
	}
}

func placementTx(
	t *testing.T, txHash, pairHash chainhash.Hash, owner string,
	side domain.Side, price, amount, leftQuote uint64,
) *application.Tx {
	t.Helper()

	order, err := domain.NewOrder(
		txHash, pairHash, owner, side, price, amount, leftQuote,
	)
	require.NoError(t, err)

	return &application.Tx{
		Hash:           txHash,
		Type:           application.TxTypeOrderPlacement,
		OrderPlacement: &application.OrderPlacement{Order: *order},
	}
}

func cancelTx(
	txHash, pairHash, orderHash chainhash.Hash, canceller string,
) *application.Tx {
	return &application.Tx{
		Hash: txHash,
		Type: application.TxTypeOrderCancel,
		OrderCancel: &application.OrderCancel{
			PairHash:  pairHash,
			OrderHash: orderHash,
			Canceller: canceller,
		},
	}
}

// dealTx derives the settlement from the current book state, exactly what an
// honest block proposer would record.
func dealTx(
	t *testing.T, env *testEnv, txHash chainhash.Hash, price uint64,
	buyHash, sellHash chainhash.Hash,
) *application.Tx {
	t.Helper()

	pair, err := env.registry.GetPair(env.pairHash)
	require.NoError(t, err)
	book, err := env.registry.GetBook(env.pairHash)
	require.NoError(t, err)
	buy, err := book.Get(buyHash)
	require.NoError(t, err)
	sell, err := book.Get(sellHash)
	require.NoError(t, err)

	res, err := domain.ComputeDeal(pair, price, buy, sell)
	require.NoError(t, err)

	return &application.Tx{
		Hash: txHash,
		Type: application.TxTypeDealSettlement,
		DealSettlement: &application.DealSettlement{
			Deal: domain.Deal{
				Hash:          txHash,
				PairHash:      env.pairHash,
				BuyOrderHash:  buyHash,
				SellOrderHash: sellHash,
				Price:         res.Price,
				BaseAmount:    res.BaseAmount,
				QuoteAmount:   res.QuoteAmount,
				Type:          res.Type(),
			},
			FromLegs: res.FromLegs,
			ToLegs:   res.ToLegs,
		},
	}
}

// newTestEnv returns a pipeline over volatile storage with one pair
// registered at height 1.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repoManager := inmemory.NewRepoManager()
	registry := application.NewPairRegistry(repoManager)
	pipeline := application.NewPipeline(repoManager, registry)

	env := &testEnv{
		repoManager: repoManager,
		registry:    registry,
		pipeline:    pipeline,
		pairHash:    hashOf("pair"),
	}

	rejs, err := pipeline.ApplyBlock(ctx, newBlock(1, creationTx(t, env.pairHash)))
	require.NoError(t, err)
	require.Empty(t, rejs)
	return env
}

// placeOrders rests a buy and a sell on the book at the given height.
func placeOrders(t *testing.T, env *testEnv, height uint64) (buyHash, sellHash chainhash.Hash) {
	t.Helper()

	buyHash, sellHash = hashOf("buy"), hashOf("sell")
	rejs, err := env.pipeline.ApplyBlock(ctx, newBlock(
		height,
		placementTx(t, buyHash, env.pairHash, buyerAddress,
			domain.OrderSideBuy, 90000000, 100000000, 90000000),
		placementTx(t, sellHash, env.pairHash, sellerAddress,
			domain.OrderSideSell, 90000000, 50000000, 0),
	))
	require.NoError(t, err)
	require.Empty(t, rejs)
	return buyHash, sellHash
}

func TestApplyBlockPairCreation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	pair, err := env.registry.GetPair(env.pairHash)
	require.NoError(t, err)
	require.Equal(t, uint64(1), pair.CreatedAt)

	stored, err := env.repoManager.PairRepository().GetPair(ctx, env.pairHash)
	require.NoError(t, err)
	require.Equal(t, *pair, *stored)

	// a second creation for the same hash must be rejected as a whole block
	rejs, err := env.pipeline.ApplyBlock(ctx, newBlock(2, creationTx(t, env.pairHash)))
	require.ErrorIs(t, err, application.ErrBlockRejected)
	require.Len(t, rejs[application.TxTypePairCreation], 1)
	require.ErrorIs(
		t, rejs[application.TxTypePairCreation][0].Reason, domain.ErrPairExists,
	)
}

func TestApplyBlockPlacementAndDeal(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	buyHash, sellHash := placeOrders(t, env, 2)

	book, err := env.registry.GetBook(env.pairHash)
	require.NoError(t, err)
	require.Equal(t, 2, book.Len())

	settle := dealTx(t, env, hashOf("deal"), 90000000, buyHash, sellHash)
	rejs, err := env.pipeline.ApplyBlock(ctx, newBlock(3, settle))
	require.NoError(t, err)
	require.Empty(t, rejs)

	// the sell side got exhausted and left the book
	require.Equal(t, 1, book.Len())
	require.False(t, book.Contains(sellHash))

	closedSell, err := env.repoManager.OrderRepository().GetClosedOrder(ctx, sellHash)
	require.NoError(t, err)
	require.Equal(t, domain.CloseTypeFilled, closedSell.CloseType)
	require.Equal(t, uint64(50000000), closedSell.DealtAmount)
	require.Equal(t, uint64(1), closedSell.Nonce)

	buy, err := book.Get(buyHash)
	require.NoError(t, err)
	require.Equal(t, uint64(50000000), buy.DealtAmount)
	require.Equal(t, uint64(45000000), buy.LeftQuote)
	require.Equal(t, uint64(1), buy.Nonce)

	deal, err := env.repoManager.DealRepository().GetDeal(ctx, hashOf("deal"))
	require.NoError(t, err)
	require.Equal(t, uint64(3), deal.Height)
	require.Equal(t, uint64(50000000), deal.BaseAmount)
	require.Equal(t, uint64(45000000), deal.QuoteAmount)
	require.Equal(t, domain.DealTypeSellOver, deal.Type)
}

func TestRollbackBlockIsExactInverse(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	buyHash, sellHash := placeOrders(t, env, 2)

	book, err := env.registry.GetBook(env.pairHash)
	require.NoError(t, err)
	bidsBefore := book.SnapshotSide(domain.OrderSideBuy)
	asksBefore := book.SnapshotSide(domain.OrderSideSell)

	block := newBlock(3, dealTx(t, env, hashOf("deal"), 90000000, buyHash, sellHash))
	rejs, err := env.pipeline.ApplyBlock(ctx, block)
	require.NoError(t, err)
	require.Empty(t, rejs)

	require.NoError(t, env.pipeline.RollbackBlock(ctx, block))

	require.Equal(t, bidsBefore, book.SnapshotSide(domain.OrderSideBuy))
	require.Equal(t, asksBefore, book.SnapshotSide(domain.OrderSideSell))

	_, err = env.repoManager.DealRepository().GetDeal(ctx, hashOf("deal"))
	require.ErrorIs(t, err, domain.ErrDealNotFound)

	// the sell order is back in the open area with its pre-deal state
	sell, err := env.repoManager.OrderRepository().GetOrder(ctx, sellHash)
	require.NoError(t, err)
	require.Zero(t, sell.DealtAmount)
	require.Zero(t, sell.Nonce)
	require.False(t, sell.Closed)
}

func TestApplyBlockDuplicateCancelRejected(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, sellHash := placeOrders(t, env, 2)

	rejs, err := env.pipeline.ApplyBlock(ctx, newBlock(
		3,
		cancelTx(hashOf("cancel-1"), env.pairHash, sellHash, sellerAddress),
		cancelTx(hashOf("cancel-2"), env.pairHash, sellHash, sellerAddress),
	))
	require.ErrorIs(t, err, application.ErrBlockRejected)
	require.Len(t, rejs[application.TxTypeOrderCancel], 1)
	require.ErrorIs(
		t, rejs[application.TxTypeOrderCancel][0].Reason,
		domain.ErrDuplicateWithinBatch,
	)

	// the rejected block must leave the book untouched
	book, err := env.registry.GetBook(env.pairHash)
	require.NoError(t, err)
	require.True(t, book.Contains(sellHash))
}

func TestApplyBlockCancelByStrangerRejected(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, sellHash := placeOrders(t, env, 2)

	rejs, err := env.pipeline.ApplyBlock(ctx, newBlock(
		3, cancelTx(hashOf("cancel"), env.pairHash, sellHash, buyerAddress),
	))
	require.ErrorIs(t, err, application.ErrBlockRejected)
	require.ErrorIs(
		t, rejs[application.TxTypeOrderCancel][0].Reason,
		application.ErrNotCanceller,
	)
}

func TestApplyBlockCancelAndRollback(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, sellHash := placeOrders(t, env, 2)

	block := newBlock(3, cancelTx(hashOf("cancel"), env.pairHash, sellHash, sellerAddress))
	rejs, err := env.pipeline.ApplyBlock(ctx, block)
	require.NoError(t, err)
	require.Empty(t, rejs)

	book, err := env.registry.GetBook(env.pairHash)
	require.NoError(t, err)
	require.False(t, book.Contains(sellHash))

	closed, err := env.repoManager.OrderRepository().GetClosedOrder(ctx, sellHash)
	require.NoError(t, err)
	require.Equal(t, domain.CloseTypeCancelled, closed.CloseType)

	require.NoError(t, env.pipeline.RollbackBlock(ctx, block))
	require.True(t, book.Contains(sellHash))

	reopened, err := book.Get(sellHash)
	require.NoError(t, err)
	require.False(t, reopened.Closed)
	require.Equal(t, domain.CloseTypeNone, reopened.CloseType)
}

func TestApplyBlockTamperedDealRejected(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	buyHash, sellHash := placeOrders(t, env, 2)

	settle := dealTx(t, env, hashOf("deal"), 90000000, buyHash, sellHash)
	settle.DealSettlement.Deal.QuoteAmount++

	rejs, err := env.pipeline.ApplyBlock(ctx, newBlock(3, settle))
	require.ErrorIs(t, err, application.ErrBlockRejected)
	require.ErrorIs(
		t, rejs[application.TxTypeDealSettlement][0].Reason,
		domain.ErrDataInconsistent,
	)

	// no state moved
	book, err := env.registry.GetBook(env.pairHash)
	require.NoError(t, err)
	buy, err := book.Get(buyHash)
	require.NoError(t, err)
	require.Zero(t, buy.DealtAmount)
}

// The embedded deal hash keys the stored record and the rollback lookup, so
// a settlement whose deal identity differs from its transaction hash must
// never reach the commit.
func TestApplyBlockDealWithMismatchedHashRejected(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	buyHash, sellHash := placeOrders(t, env, 2)

	settle := dealTx(t, env, hashOf("deal"), 90000000, buyHash, sellHash)
	settle.DealSettlement.Deal.Hash = hashOf("someone-elses-deal")

	rejs, err := env.pipeline.ApplyBlock(ctx, newBlock(3, settle))
	require.ErrorIs(t, err, application.ErrBlockRejected)
	require.ErrorIs(
		t, rejs[application.TxTypeDealSettlement][0].Reason,
		domain.ErrDataInconsistent,
	)

	book, err := env.registry.GetBook(env.pairHash)
	require.NoError(t, err)
	buy, err := book.Get(buyHash)
	require.NoError(t, err)
	require.Zero(t, buy.DealtAmount)
}

// unavailableDealRepository rejects every write, simulating storage failing
// midway through a settlement commit.
type unavailableDealRepository struct {
	domain.DealRepository
}

func (r *unavailableDealRepository) AddDeal(
	_ context.Context, _ domain.Deal,
) error {
	return errors.New("storage unavailable")
}

type unavailableDealRepoManager struct {
	ports.RepoManager
}

func (m *unavailableDealRepoManager) DealRepository() domain.DealRepository {
	return &unavailableDealRepository{m.RepoManager.DealRepository()}
}

// A settlement failing after the orders were already mutated must leave the
// live book and the order area exactly as they were before the block.
func TestApplyBlockDealCommitFailureLeavesBookIntact(t *testing.T) {
	t.Parallel()

	repoManager := &unavailableDealRepoManager{inmemory.NewRepoManager()}
	registry := application.NewPairRegistry(repoManager)
	pipeline := application.NewPipeline(repoManager, registry)
	env := &testEnv{
		repoManager: repoManager,
		registry:    registry,
		pipeline:    pipeline,
		pairHash:    hashOf("pair"),
	}

	rejs, err := pipeline.ApplyBlock(ctx, newBlock(1, creationTx(t, env.pairHash)))
	require.NoError(t, err)
	require.Empty(t, rejs)
	buyHash, sellHash := placeOrders(t, env, 2)

	settle := dealTx(t, env, hashOf("deal"), 90000000, buyHash, sellHash)
	_, err = pipeline.ApplyBlock(ctx, newBlock(3, settle))
	require.Error(t, err)

	// the sell was force-closed and removed before the failure hit, it must
	// be back on the book with its pre-deal state
	book, err := registry.GetBook(env.pairHash)
	require.NoError(t, err)
	require.True(t, book.Contains(sellHash))

	sell, err := book.Get(sellHash)
	require.NoError(t, err)
	require.Zero(t, sell.DealtAmount)
	require.Zero(t, sell.Nonce)
	require.False(t, sell.Closed)

	buy, err := book.Get(buyHash)
	require.NoError(t, err)
	require.Zero(t, buy.DealtAmount)
	require.Equal(t, uint64(90000000), buy.LeftQuote)

	storedSell, err := repoManager.OrderRepository().GetOrder(ctx, sellHash)
	require.NoError(t, err)
	require.Zero(t, storedSell.DealtAmount)
	_, err = repoManager.OrderRepository().GetClosedOrder(ctx, sellHash)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = repoManager.DealRepository().GetDeal(ctx, hashOf("deal"))
	require.ErrorIs(t, err, domain.ErrDealNotFound)
}

// Rolling back a block whose transactions never committed must be a no-op,
// reorgs may replay rollbacks past the point the node actually applied.
func TestRollbackBlockToleratesUnappliedBlock(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, sellHash := placeOrders(t, env, 2)

	book, err := env.registry.GetBook(env.pairHash)
	require.NoError(t, err)
	lenBefore := book.Len()

	ghost := newBlock(
		9,
		cancelTx(hashOf("ghost-cancel"), env.pairHash, hashOf("no-such-order"), sellerAddress),
		&application.Tx{
			Hash: hashOf("ghost-deal"),
			Type: application.TxTypeDealSettlement,
			DealSettlement: &application.DealSettlement{
				Deal: domain.Deal{
					Hash:     hashOf("ghost-deal"),
					PairHash: env.pairHash,
				},
			},
		},
	)
	require.NoError(t, env.pipeline.RollbackBlock(ctx, ghost))

	require.Equal(t, lenBefore, book.Len())
	require.True(t, book.Contains(sellHash))
}

// A deal may reference an order placed in the same block: placements commit
// before settlements validate.
func TestApplyBlockDealAgainstSameBlockPlacement(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	buyHash := hashOf("buy")
	rejs, err := env.pipeline.ApplyBlock(ctx, newBlock(
		2,
		placementTx(t, buyHash, env.pairHash, buyerAddress,
			domain.OrderSideBuy, 90000000, 100000000, 90000000),
	))
	require.NoError(t, err)
	require.Empty(t, rejs)

	sellHash := hashOf("sell")
	sell, err := domain.NewOrder(
		sellHash, env.pairHash, sellerAddress,
		domain.OrderSideSell, 90000000, 50000000, 0,
	)
	require.NoError(t, err)

	pair, err := env.registry.GetPair(env.pairHash)
	require.NoError(t, err)
	book, err := env.registry.GetBook(env.pairHash)
	require.NoError(t, err)
	buy, err := book.Get(buyHash)
	require.NoError(t, err)

	res, err := domain.ComputeDeal(pair, 90000000, buy, sell)
	require.NoError(t, err)

	settle := &application.Tx{
		Hash: hashOf("deal"),
		Type: application.TxTypeDealSettlement,
		DealSettlement: &application.DealSettlement{
			Deal: domain.Deal{
				Hash:          hashOf("deal"),
				PairHash:      env.pairHash,
				BuyOrderHash:  buyHash,
				SellOrderHash: sellHash,
				Price:         res.Price,
				BaseAmount:    res.BaseAmount,
				QuoteAmount:   res.QuoteAmount,
				Type:          res.Type(),
			},
			FromLegs: res.FromLegs,
			ToLegs:   res.ToLegs,
		},
	}

	rejs, err = env.pipeline.ApplyBlock(ctx, newBlock(
		3,
		&application.Tx{
			Hash:           sellHash,
			Type:           application.TxTypeOrderPlacement,
			OrderPlacement: &application.OrderPlacement{Order: *sell},
		},
		settle,
	))
	require.NoError(t, err)
	require.Empty(t, rejs)

	require.False(t, book.Contains(sellHash))
	updatedBuy, err := book.Get(buyHash)
	require.NoError(t, err)
	require.Equal(t, uint64(50000000), updatedBuy.DealtAmount)
}

func TestApplyBlockPairEditAndRollback(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	editHash := hashOf("edit")
	block := newBlock(2, &application.Tx{
		Hash: editHash,
		Type: application.TxTypePairEdit,
		PairEdit: &application.PairEdit{
			PairHash:           env.pairHash,
			Editor:             creatorAddress,
			ScaleBaseDecimals:  6,
			ScaleQuoteDecimals: 6,
			MinBaseAmount:      20000000,
		},
	})
	rejs, err := env.pipeline.ApplyBlock(ctx, block)
	require.NoError(t, err)
	require.Empty(t, rejs)

	pair, err := env.registry.GetPair(env.pairHash)
	require.NoError(t, err)
	require.Equal(t, uint8(6), pair.ScaleBaseDecimals)
	require.Equal(t, uint64(20000000), pair.MinBaseAmount)

	backup, err := env.repoManager.PairRepository().GetBackup(ctx, editHash)
	require.NoError(t, err)
	require.Equal(t, uint8(8), backup.Before.ScaleBaseDecimals)

	require.NoError(t, env.pipeline.RollbackBlock(ctx, block))

	pair, err = env.registry.GetPair(env.pairHash)
	require.NoError(t, err)
	require.Equal(t, uint8(8), pair.ScaleBaseDecimals)
	require.Equal(t, uint64(10000000), pair.MinBaseAmount)

	_, err = env.repoManager.PairRepository().GetBackup(ctx, editHash)
	require.ErrorIs(t, err, domain.ErrPairNotFound)
}

func TestValidateDoesNotMutate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	buyHash, sellHash := placeOrders(t, env, 2)

	block := newBlock(3, dealTx(t, env, hashOf("deal"), 90000000, buyHash, sellHash))
	rejs := env.pipeline.Validate(ctx, block)
	require.Empty(t, rejs)

	book, err := env.registry.GetBook(env.pairHash)
	require.NoError(t, err)
	buy, err := book.Get(buyHash)
	require.NoError(t, err)
	require.Zero(t, buy.DealtAmount)
	require.Zero(t, buy.Nonce)

	_, err = env.repoManager.DealRepository().GetDeal(ctx, hashOf("deal"))
	require.ErrorIs(t, err, domain.ErrDealNotFound)
}

func TestRegistryLoadRebuildsBooks(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	buyHash, sellHash := placeOrders(t, env, 2)

	// a fresh registry over the same storage must converge to the same books
	reloaded := application.NewPairRegistry(env.repoManager)
	require.NoError(t, reloaded.Load(ctx))

	book, err := reloaded.GetBook(env.pairHash)
	require.NoError(t, err)
	require.Equal(t, 2, book.Len())
	require.True(t, book.Contains(buyHash))
	require.True(t, book.Contains(sellHash))

	original, err := env.registry.GetBook(env.pairHash)
	require.NoError(t, err)
	require.Equal(
		t,
		original.SnapshotSide(domain.OrderSideBuy),
		book.SnapshotSide(domain.OrderSideBuy),
	)
}
