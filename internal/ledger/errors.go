package ledger

import "errors"

// Sentinel errors surfaced by the ledgers. They are always wrapped with a
// message naming the offending code or id, so callers match with errors.Is.
var (
	ErrDuplicateCode     = errors.New("code already exists")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)
