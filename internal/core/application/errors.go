package application

import "errors"

var (
	// ErrMalformedTx is thrown when a transaction payload does not match its
	// declared type.
	ErrMalformedTx = errors.New("transaction payload does not match its type")
	// ErrBlockRejected is thrown when a block contains at least one invalid
	// transaction and cannot be applied.
	ErrBlockRejected = errors.New("block contains invalid transactions")
	// ErrNotCanceller is thrown when a cancel transaction does not come from
	// the order owner.
	ErrNotCanceller = errors.New("canceller is not the order owner")
)
