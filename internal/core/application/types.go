package application

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/chaindex-network/chaindexd/internal/core/domain"
)

// TxType enumerates the exchange transaction types the core processes.
type TxType int

const (
	TxTypeOrderCancel TxType = iota + 1
	TxTypeOrderPlacement
	TxTypeDealSettlement
	TxTypePairCreation
	TxTypePairEdit
)

func (t TxType) String() string {
	switch t {
	case TxTypeOrderCancel:
		return "order_cancel"
	case TxTypeOrderPlacement:
		return "order_placement"
	case TxTypeDealSettlement:
		return "deal_settlement"
	case TxTypePairCreation:
		return "pair_creation"
	case TxTypePairEdit:
		return "pair_edit"
	default:
		return "unknown"
	}
}

// PairCreation registers a new trading pair. The pair hash is derived from
// the transaction itself.
type PairCreation struct {
	Pair domain.TradingPair
}

// PairEdit narrows/widens the display scale and minimum tradable amount of an
// existing pair, only allowed to its creator.
type PairEdit struct {
	PairHash           chainhash.Hash
	Editor             string
	ScaleBaseDecimals  uint8
	ScaleQuoteDecimals uint8
	MinBaseAmount      uint64
}

// OrderPlacement inserts a new resting order into a pair's book.
type OrderPlacement struct {
	Order domain.Order
}

// OrderCancel closes an open order on behalf of its owner.
type OrderCancel struct {
	PairHash  chainhash.Hash
	OrderHash chainhash.Hash
	Canceller string
}

// DealSettlement matches a buy and a sell order. It records the proposed
// asset movements which every validating node re-derives and byte-compares.
type DealSettlement struct {
	Deal     domain.Deal
	FromLegs []domain.Leg
	ToLegs   []domain.Leg
}

// Tx is the envelope of one exchange transaction. Exactly one payload field
// is set, matching Type.
type Tx struct {
	Hash chainhash.Hash
	Type TxType

	PairCreation   *PairCreation
	PairEdit       *PairEdit
	OrderPlacement *OrderPlacement
	OrderCancel    *OrderCancel
	DealSettlement *DealSettlement
}

// Block carries the exchange transactions of one block grouped by type,
// each group in its in-block order.
type Block struct {
	Height uint64
	Time   int64
	Txs    map[TxType][]*Tx
}

// Rejection reports one transaction failing validation with its reason.
type Rejection struct {
	TxHash chainhash.Hash
	Reason error
}
