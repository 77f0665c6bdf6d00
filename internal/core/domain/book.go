package domain

import (
	"sort"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// OrderBook holds the open orders of one trading pair in two independently
// ordered sides plus an index for O(1) lookup by order hash.
//
// Bids are ordered by descending price, asks by ascending price, ties broken
// by placement order (earlier orders rank first, strict price-time priority).
// Writes come from a single block-application goroutine, reads may run
// concurrently and observe a consistent point-in-time view.
type OrderBook struct {
	lock  sync.RWMutex
	bids  []*Order
	asks  []*Order
	index map[chainhash.Hash]*Order
}

// NewOrderBook returns a new empty book.
func NewOrderBook() *OrderBook {
	return &OrderBook{
		index: map[chainhash.Hash]*Order{},
	}
}

// Insert adds the order to its side keeping the total order of the book.
func (b *OrderBook) Insert(order *Order) error {
	if order.Closed {
		return ErrOrderClosed
	}
	if order.Side != OrderSideBuy && order.Side != OrderSideSell {
		return ErrInvalidSide
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	if _, ok := b.index[order.Hash]; ok {
		return ErrDuplicateOrder
	}

	o := *order
	b.insertSorted(&o)
	b.index[o.Hash] = &o
	return nil
}

// Remove drops the order with the given hash from the book. It returns
// ErrOrderNotFound when absent, which callers must not treat as fatal during
// rollback.
func (b *OrderBook) Remove(hash chainhash.Hash) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	o, ok := b.index[hash]
	if !ok {
		return ErrOrderNotFound
	}

	side := b.sideOf(o.Side)
	for i, cur := range *side {
		if cur.Hash == hash {
			*side = append((*side)[:i], (*side)[i+1:]...)
			break
		}
	}
	delete(b.index, hash)
	return nil
}

// Get returns a copy of the order with the given hash.
func (b *OrderBook) Get(hash chainhash.Hash) (*Order, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	o, ok := b.index[hash]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

// Contains reports whether the book holds an order with the given hash.
func (b *OrderBook) Contains(hash chainhash.Hash) bool {
	b.lock.RLock()
	defer b.lock.RUnlock()

	_, ok := b.index[hash]
	return ok
}

// UpdateInPlace replaces the mutable fields of the stored order preserving
// its position in the book. A price change is not expected in normal flow,
// in that case the position is re-derived.
func (b *OrderBook) UpdateInPlace(order *Order) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	cur, ok := b.index[order.Hash]
	if !ok {
		return ErrOrderNotFound
	}

	if cur.Price != order.Price {
		side := b.sideOf(cur.Side)
		for i, o := range *side {
			if o.Hash == order.Hash {
				*side = append((*side)[:i], (*side)[i+1:]...)
				break
			}
		}
		o := *order
		b.insertSorted(&o)
		b.index[o.Hash] = &o
		return nil
	}

	*cur = *order
	return nil
}

// BestBid returns a copy of the highest ranked buy order, if any.
func (b *OrderBook) BestBid() (*Order, bool) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	if len(b.bids) == 0 {
		return nil, false
	}
	cp := *b.bids[0]
	return &cp, true
}

// BestAsk returns a copy of the highest ranked sell order, if any.
func (b *OrderBook) BestAsk() (*Order, bool) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	if len(b.asks) == 0 {
		return nil, false
	}
	cp := *b.asks[0]
	return &cp, true
}

// SnapshotSide returns a consistent point-in-time copy of one side in book
// order, usable for depth queries while blocks keep being applied.
func (b *OrderBook) SnapshotSide(side Side) []Order {
	b.lock.RLock()
	defer b.lock.RUnlock()

	src := b.bids
	if side == OrderSideSell {
		src = b.asks
	}
	out := make([]Order, len(src))
	for i, o := range src {
		out[i] = *o
	}
	return out
}

// IterateSide walks one side in book order over a consistent snapshot,
// stopping when fn returns false.
func (b *OrderBook) IterateSide(side Side, fn func(Order) bool) {
	for _, o := range b.SnapshotSide(side) {
		if !fn(o) {
			return
		}
	}
}

// Len returns the number of open orders resting on both sides.
func (b *OrderBook) Len() int {
	b.lock.RLock()
	defer b.lock.RUnlock()

	return len(b.index)
}

// Clone returns a deep copy of the book, used to simulate matching during
// block packing without touching the live book.
func (b *OrderBook) Clone() *OrderBook {
	b.lock.RLock()
	defer b.lock.RUnlock()

	clone := NewOrderBook()
	clone.bids = make([]*Order, len(b.bids))
	for i, o := range b.bids {
		cp := *o
		clone.bids[i] = &cp
		clone.index[cp.Hash] = &cp
	}
	clone.asks = make([]*Order, len(b.asks))
	for i, o := range b.asks {
		cp := *o
		clone.asks[i] = &cp
		clone.index[cp.Hash] = &cp
	}
	return clone
}

func (b *OrderBook) sideOf(side Side) *[]*Order {
	if side == OrderSideBuy {
		return &b.bids
	}
	return &b.asks
}

func (b *OrderBook) insertSorted(o *Order) {
	side := b.sideOf(o.Side)
	i := sort.Search(len(*side), func(i int) bool {
		return ranksBefore(o, (*side)[i])
	})
	*side = append(*side, nil)
	copy((*side)[i+1:], (*side)[i:])
	(*side)[i] = o
}

// ranksBefore reports whether a precedes b on their common side.
func ranksBefore(a, b *Order) bool {
	if a.Price != b.Price {
		if a.Side == OrderSideBuy {
			return a.Price > b.Price
		}
		return a.Price < b.Price
	}
	return a.Before(b)
}
