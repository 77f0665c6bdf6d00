package domain

import (
	"bytes"
	"encoding/binary"

	"github.com/chaindex-network/chaindexd/pkg/mathutil"
)

// Leg describes one exact asset movement of a settlement: which address,
// which asset, how much, authorized by which escrow spend sequence.
type Leg struct {
	Address string
	Asset   AssetRef
	Amount  uint64
	Nonce   uint64
}

// DealResult is the deterministic outcome of matching a buy and a sell order
// at a given price. FromLegs debit the two order escrows, ToLegs credit the
// counterparties and, when a side is force-closed, refund its unmatched
// remainder to its owner.
type DealResult struct {
	Price       uint64
	BaseAmount  uint64
	QuoteAmount uint64
	BuyOver     bool
	SellOver    bool
	FromLegs    []Leg
	ToLegs      []Leg
}

// Type returns the closure tag matching the over flags.
func (r *DealResult) Type() DealType {
	return DealTypeFromFlags(r.BuyOver, r.SellOver)
}

// Serialize returns a deterministic byte encoding of the result. Every
// validating node recomputes the settlement and byte-compares it against the
// one recorded by the proposed transaction.
func (r *DealResult) Serialize() []byte {
	buf := new(bytes.Buffer)
	writeUint64(buf, r.Price)
	writeUint64(buf, r.BaseAmount)
	writeUint64(buf, r.QuoteAmount)
	writeBool(buf, r.BuyOver)
	writeBool(buf, r.SellOver)
	writeLegs(buf, r.FromLegs)
	writeLegs(buf, r.ToLegs)
	return buf.Bytes()
}

// ComputeDeal derives the exact asset movements and closure flags of a match
// between the given buy and sell orders at the given price.
//
// The function is pure: it depends only on its arguments and both orders are
// read-only snapshots, so every node re-derives a byte-identical result.
// The matched base amount is bounded by the sell order's remaining base, by
// the buy order's remaining base and by the base-equivalent of the buy
// order's remaining quote budget at price. The last two differ whenever the
// deal settles below the buy's limit price.
// All divisions truncate, value is never manufactured by rounding up.
func ComputeDeal(
	pair *TradingPair, price uint64, buy, sell *Order,
) (*DealResult, error) {
	if price == 0 {
		return nil, ErrInvalidPrice
	}
	if buy.Side != OrderSideBuy || sell.Side != OrderSideSell {
		return nil, ErrInvalidSide
	}
	if buy.Closed || sell.Closed {
		return nil, ErrOrderClosed
	}
	if buy.PairHash != pair.Hash || sell.PairHash != pair.Hash {
		return nil, ErrPairNotFound
	}

	quoteShift := mathutil.Pow10(pair.QuoteDecimals)

	sellLeft := sell.LeftAmount()
	buyLeft := buy.LeftAmount()
	buyable := mathutil.MulDivFloor(buy.LeftQuote, quoteShift, price)

	baseAmount := sellLeft
	if buyable < baseAmount {
		baseAmount = buyable
	}
	if buyLeft < baseAmount {
		baseAmount = buyLeft
	}
	if baseAmount == 0 {
		return nil, ErrNothingToMatch
	}

	quoteAmount := mathutil.MulDivFloor(baseAmount, price, quoteShift)

	sellLeftAfter := sellLeft - baseAmount
	sellOver := sellLeftAfter == 0 || sellLeftAfter < pair.MinBaseAmount

	// the buy's residual capacity is the tighter of its base remainder and
	// the base-equivalent of its quote remainder
	buyQuoteAfter := buy.LeftQuote - quoteAmount
	buyLeftAfter := buyLeft - baseAmount
	if buyableAfter := mathutil.MulDivFloor(
		buyQuoteAfter, quoteShift, price,
	); buyableAfter < buyLeftAfter {
		buyLeftAfter = buyableAfter
	}
	buyOver := buyLeftAfter == 0 || buyLeftAfter < pair.MinBaseAmount

	res := &DealResult{
		Price:       price,
		BaseAmount:  baseAmount,
		QuoteAmount: quoteAmount,
		BuyOver:     buyOver,
		SellOver:    sellOver,
	}

	// Debits from the two escrows. A force-closed side releases its whole
	// remainder, matched part plus dust refund.
	buyDebit := quoteAmount
	if buyOver {
		buyDebit += buyQuoteAfter
	}
	sellDebit := baseAmount
	if sellOver {
		sellDebit += sellLeftAfter
	}
	res.FromLegs = []Leg{
		{Address: buy.Owner, Asset: pair.QuoteAsset, Amount: buyDebit, Nonce: buy.Nonce},
		{Address: sell.Owner, Asset: pair.BaseAsset, Amount: sellDebit, Nonce: sell.Nonce},
	}

	res.ToLegs = []Leg{
		{Address: sell.Owner, Asset: pair.QuoteAsset, Amount: quoteAmount},
		{Address: buy.Owner, Asset: pair.BaseAsset, Amount: baseAmount},
	}
	if buyOver && buyQuoteAfter > 0 {
		res.ToLegs = append(res.ToLegs, Leg{
			Address: buy.Owner, Asset: pair.QuoteAsset, Amount: buyQuoteAfter,
		})
	}
	if sellOver && sellLeftAfter > 0 {
		res.ToLegs = append(res.ToLegs, Leg{
			Address: sell.Owner, Asset: pair.BaseAsset, Amount: sellLeftAfter,
		})
	}

	return res, nil
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
		return
	}
	buf.WriteByte(0)
}

func writeLegs(buf *bytes.Buffer, legs []Leg) {
	writeUint16(buf, uint16(len(legs)))
	for _, l := range legs {
		writeUint16(buf, uint16(len(l.Address)))
		buf.WriteString(l.Address)
		writeUint16(buf, l.Asset.Chain)
		writeUint16(buf, l.Asset.Asset)
		writeUint64(buf, l.Amount)
		writeUint64(buf, l.Nonce)
	}
}
