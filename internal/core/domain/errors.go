package domain

import "errors"

var (
	// ErrPairNotFound is thrown when a trading pair is not registered.
	ErrPairNotFound = errors.New("trading pair not found")
	// ErrPairExists is thrown when registering a pair whose hash is already taken.
	ErrPairExists = errors.New("trading pair already exists")
	// ErrOrderNotFound is thrown when an order is missing from the book or the store.
	ErrOrderNotFound = errors.New("order not found")
	// ErrDuplicateOrder is thrown when inserting an order hash already present in the book.
	ErrDuplicateOrder = errors.New("order already in book")
	// ErrOrderClosed is thrown when operating on an order already closed.
	ErrOrderClosed = errors.New("order is closed")
	// ErrDealNotFound ...
	ErrDealNotFound = errors.New("deal not found")
	// ErrDataInconsistent is thrown when recomputed settlement legs do not
	// byte-match the ones proposed by a deal transaction.
	ErrDataInconsistent = errors.New("settlement data inconsistent")
	// ErrDuplicateWithinBatch is thrown when two transactions of the same block
	// target the same order.
	ErrDuplicateWithinBatch = errors.New("duplicate target within batch")
	// ErrPrecisionViolation is thrown when an edit requests an unsupported
	// decimal scale.
	ErrPrecisionViolation = errors.New("unsupported decimal precision")
	// ErrNotPairCreator is thrown when a pair edit comes from an address other
	// than the pair creator.
	ErrNotPairCreator = errors.New("editor is not the pair creator")
	// ErrInvalidAmount ...
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidPrice ...
	ErrInvalidPrice = errors.New("price must be positive")
	// ErrInvalidAddress ...
	ErrInvalidAddress = errors.New("address is not valid")
	// ErrInvalidMinAmount is thrown when the minimum tradable amount is zero or
	// not aligned to the pair's display scale.
	ErrInvalidMinAmount = errors.New("minimum tradable amount is not valid")
	// ErrInvalidSide ...
	ErrInvalidSide = errors.New("order side is not valid")
	// ErrNothingToMatch is thrown by the settlement computation when the two
	// orders cannot exchange any base amount at the given price.
	ErrNothingToMatch = errors.New("orders cannot match any amount")
)
