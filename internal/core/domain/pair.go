package domain

import (
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/chaindex-network/chaindexd/pkg/mathutil"
)

const (
	// MaxAssetPrecision is the highest native decimal precision an asset can
	// declare, bounded so that scaled amounts fit a uint64.
	MaxAssetPrecision uint8 = 18
)

// AssetRef identifies an asset by the chain it is native to and its id on
// that chain.
type AssetRef struct {
	Chain uint16
	Asset uint16
}

// TradingPair defines a registered (base asset, quote asset) market with its
// own order book and precision rules. The pair is identified by the hash of
// the transaction that created it.
type TradingPair struct {
	Hash chainhash.Hash
	// Asset being bought/sold.
	BaseAsset AssetRef
	// Asset used to price the base one.
	QuoteAsset AssetRef
	// Native decimal precision of the base asset. Immutable after creation.
	BaseDecimals uint8
	// Native decimal precision of the quote asset. Immutable after creation.
	QuoteDecimals uint8
	// Display scale of the base asset, editable within the native bound.
	ScaleBaseDecimals uint8
	// Display scale of the quote asset, editable within the native bound.
	ScaleQuoteDecimals uint8
	// Minimum tradable base amount. Remainders below it are force-closed.
	MinBaseAmount uint64
	// Address of the pair creator, the only one allowed to edit the pair.
	Creator string
	// Height of the block whose creation transaction registered the pair.
	CreatedAt uint64
}

// NewTradingPair returns a new pair after validating precision rules, the
// minimum tradable amount and the creator address.
func NewTradingPair(
	hash chainhash.Hash, baseAsset, quoteAsset AssetRef,
	baseDecimals, quoteDecimals, scaleBase, scaleQuote uint8,
	minBaseAmount uint64, creator string,
) (*TradingPair, error) {
	p := &TradingPair{
		Hash:               hash,
		BaseAsset:          baseAsset,
		QuoteAsset:         quoteAsset,
		BaseDecimals:       baseDecimals,
		QuoteDecimals:      quoteDecimals,
		ScaleBaseDecimals:  scaleBase,
		ScaleQuoteDecimals: scaleQuote,
		MinBaseAmount:      minBaseAmount,
		Creator:            creator,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the pair invariants that must hold both at creation and
// after every edit.
func (p *TradingPair) Validate() error {
	if p.BaseDecimals > MaxAssetPrecision || p.QuoteDecimals > MaxAssetPrecision {
		return ErrPrecisionViolation
	}
	if p.ScaleBaseDecimals > p.BaseDecimals || p.ScaleQuoteDecimals > p.QuoteDecimals {
		return ErrPrecisionViolation
	}
	if !IsValidAddress(p.Creator) {
		return ErrInvalidAddress
	}
	return p.validateMinBaseAmount(p.MinBaseAmount, p.ScaleBaseDecimals)
}

func (p *TradingPair) validateMinBaseAmount(minBase uint64, scaleBase uint8) error {
	if minBase == 0 {
		return ErrInvalidMinAmount
	}
	// the minimum must be representable at the display scale
	step := mathutil.Pow10(p.BaseDecimals - scaleBase)
	if minBase%step != 0 {
		return ErrInvalidMinAmount
	}
	return nil
}

// ApplyEdit mutates the editable fields of the pair and returns the
// before-image of the whole pair, persisted by the caller to make the edit
// reversible on rollback.
func (p *TradingPair) ApplyEdit(
	editor string, scaleBase, scaleQuote uint8, minBaseAmount uint64,
) (*TradingPair, error) {
	if editor != p.Creator {
		return nil, ErrNotPairCreator
	}
	if scaleBase > p.BaseDecimals || scaleQuote > p.QuoteDecimals {
		return nil, ErrPrecisionViolation
	}
	if err := p.validateMinBaseAmount(minBaseAmount, scaleBase); err != nil {
		return nil, err
	}

	before := *p
	p.ScaleBaseDecimals = scaleBase
	p.ScaleQuoteDecimals = scaleQuote
	p.MinBaseAmount = minBaseAmount
	return &before, nil
}

// PairBackup is the before-image of an edited pair, keyed by the edit
// transaction that produced it.
type PairBackup struct {
	TxHash   chainhash.Hash
	PairHash chainhash.Hash
	Before   TradingPair
}

// IsValidAddress reports whether the given string is a well formed
// base58check encoded address.
func IsValidAddress(addr string) bool {
	if len(addr) == 0 {
		return false
	}
	payload, _, err := base58.CheckDecode(addr)
	if err != nil {
		return false
	}
	return len(payload) > 0
}
