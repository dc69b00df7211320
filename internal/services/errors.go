package services

import (
	"database/sql"
	"errors"

	"settleup/internal/db"
	"settleup/internal/ledger"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrAlreadyDeleted         = errors.New("transaction already deleted")
	ErrInvalidCode            = errors.New("invalid join code")
	ErrCodeExpired            = errors.New("join code has expired")
	ErrAlreadyMember          = errors.New("already a member of this group")
	ErrBalanceOutstanding     = errors.New("member balance is not settled")
	ErrConcurrentModification = errors.New("group was modified concurrently")
)

// ErrInvalidTransaction is the ledger engine's validation error, re-exported
// so callers match on one package.
var ErrInvalidTransaction = ledger.ErrInvalidTransaction

// Caller is the authenticated identity supplied by the transport layer.
type Caller struct {
	ID       string
	Username string
}

// translateTxErr maps storage-level failures onto the service taxonomy:
// missing rows become ErrNotFound and exhausted serialization retries become
// ErrConcurrentModification. Everything else passes through untouched.
func translateTxErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if errors.Is(err, db.ErrTxConflict) {
		return ErrConcurrentModification
	}
	return err
}
