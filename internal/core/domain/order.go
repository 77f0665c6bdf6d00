package domain

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Side tells whether an order buys or sells the base asset.
type Side int

const (
	OrderSideBuy Side = iota + 1
	OrderSideSell
)

// CloseType records why an order left the book.
type CloseType int

const (
	// CloseTypeNone marks an open order.
	CloseTypeNone CloseType = iota
	// CloseTypeFilled marks an order whose base amount was fully dealt.
	CloseTypeFilled
	// CloseTypeDust marks an order force-closed because its remainder fell
	// below the pair's minimum tradable amount.
	CloseTypeDust
	// CloseTypeCancelled marks an order explicitly cancelled by its owner.
	CloseTypeCancelled
)

// Order defines a resting limit order. It is identified by the hash of its
// placement transaction and owned by the book of its pair while open.
type Order struct {
	Hash     chainhash.Hash
	PairHash chainhash.Hash
	Owner    string
	Side     Side
	// Limit price as integer scaled to the pair's quote decimals.
	Price uint64
	// Original base amount.
	Amount uint64
	// Cumulative dealt base amount, monotonically increasing up to Amount.
	DealtAmount uint64
	// Remaining quote budget reserved at placement. Buy side only, it only
	// ever decreases.
	LeftQuote uint64
	// Spend authorization sequence of the order escrow, advanced by every
	// deal that fills the order.
	Nonce uint64
	// Closed orders are never present in the book.
	Closed    bool
	CloseType CloseType
	// Block height and intra-batch index of the placement, the stable
	// time-priority key of the book.
	Height  uint64
	TxIndex uint32
}

// NewOrder validates and returns a new open order.
func NewOrder(
	hash, pairHash chainhash.Hash, owner string, side Side,
	price, amount, leftQuote uint64,
) (*Order, error) {
	if side != OrderSideBuy && side != OrderSideSell {
		return nil, ErrInvalidSide
	}
	if price == 0 {
		return nil, ErrInvalidPrice
	}
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if !IsValidAddress(owner) {
		return nil, ErrInvalidAddress
	}
	if side == OrderSideBuy && leftQuote == 0 {
		return nil, ErrInvalidAmount
	}
	if side == OrderSideSell {
		leftQuote = 0
	}

	return &Order{
		Hash:      hash,
		PairHash:  pairHash,
		Owner:     owner,
		Side:      side,
		Price:     price,
		Amount:    amount,
		LeftQuote: leftQuote,
	}, nil
}

// LeftAmount returns the base amount still available for matching.
func (o *Order) LeftAmount() uint64 {
	return o.Amount - o.DealtAmount
}

// Fill applies a deal to the order, increasing the dealt base amount,
// consuming the quote budget on the buy side and advancing the spend nonce.
func (o *Order) Fill(baseAmount, quoteAmount uint64) error {
	if o.Closed {
		return ErrOrderClosed
	}
	if baseAmount == 0 || baseAmount > o.LeftAmount() {
		return ErrInvalidAmount
	}
	if o.Side == OrderSideBuy && quoteAmount > o.LeftQuote {
		return ErrInvalidAmount
	}

	o.DealtAmount += baseAmount
	if o.Side == OrderSideBuy {
		o.LeftQuote -= quoteAmount
	}
	o.Nonce++
	return nil
}

// Unfill is the exact inverse of Fill, used when rolling back a deal.
func (o *Order) Unfill(baseAmount, quoteAmount uint64) error {
	if baseAmount > o.DealtAmount {
		return ErrInvalidAmount
	}

	o.DealtAmount -= baseAmount
	if o.Side == OrderSideBuy {
		o.LeftQuote += quoteAmount
	}
	o.Nonce--
	return nil
}

// MarkClosed flags the order as closed with the given reason. The caller is
// responsible for removing it from the book in the same step.
func (o *Order) MarkClosed(reason CloseType) error {
	if o.Closed {
		return ErrOrderClosed
	}
	o.Closed = true
	o.CloseType = reason
	return nil
}

// Reopen clears the closed flag, used when rolling back a cancellation or a
// deal that force-closed the order.
func (o *Order) Reopen() {
	o.Closed = false
	o.CloseType = CloseTypeNone
}

// Before reports whether o ranks before other under strict time priority,
// ie. it was placed in an earlier block or earlier within the same batch.
func (o *Order) Before(other *Order) bool {
	if o.Height != other.Height {
		return o.Height < other.Height
	}
	return o.TxIndex < other.TxIndex
}
