package core

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Sentinel errors for the ledger and conversion contracts. Callers match
// with errors.Is; messages are wrapped with context at each call site.
var (
	// ErrNotFound: the referenced product, warehouse, or record is absent.
	ErrNotFound = errors.New("not found")

	// ErrInvalidQuantity: a mutating operation was given a non-positive
	// (or, for adjustments, zero) quantity.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrMissingPackagingRatio: a conversion needs a pieces-per-carton or
	// cartons-per-pallet ratio the product does not define.
	ErrMissingPackagingRatio = errors.New("missing packaging ratio")

	// ErrUnsupportedConversion: an area-based conversion was requested for
	// a product with no parseable size token.
	ErrUnsupportedConversion = errors.New("unsupported conversion")

	// ErrConsistencyViolation: the transaction log and the inventory record
	// disagree. Unreachable if every mutation shares a transaction boundary
	// with its log append; seeing it means a bug or out-of-band writes.
	ErrConsistencyViolation = errors.New("ledger consistency violation")
)

// mapNotFound translates pgx.ErrNoRows into the domain ErrNotFound, keeping
// the caller-supplied context in both branches.
func mapNotFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to fetch %s: %w", what, err)
}
