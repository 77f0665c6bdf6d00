package domain

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// DealType tags which side(s) of a deal became fully closed by the fill.
type DealType int

const (
	DealTypeBuyOver DealType = iota + 1
	DealTypeSellOver
	DealTypeBothOver
)

// Deal defines a committed match between a buy and a sell order. Deals are
// immutable once committed, identified by the settlement transaction hash.
type Deal struct {
	Hash          chainhash.Hash
	PairHash      chainhash.Hash
	BuyOrderHash  chainhash.Hash
	SellOrderHash chainhash.Hash
	// Price the deal settled at, scaled to the pair's quote decimals.
	Price uint64
	// Matched base and quote amounts.
	BaseAmount  uint64
	QuoteAmount uint64
	Type        DealType
	Height      uint64
}

// DealTypeFromFlags maps the settlement over flags to the closure tag. At
// least one side is always over, the matched amount is bounded by the
// tighter of the two orders.
func DealTypeFromFlags(buyOver, sellOver bool) DealType {
	switch {
	case buyOver && sellOver:
		return DealTypeBothOver
	case buyOver:
		return DealTypeBuyOver
	default:
		return DealTypeSellOver
	}
}
