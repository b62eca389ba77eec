package model

import "errors"

// Common errors used across the application
var (
	// Account errors
	ErrDuplicateAccount = errors.New("account already exists")
	ErrAccountNotFound  = errors.New("account not found")
	ErrLedgerNotFound   = errors.New("resource ledger not found")
	ErrInvalidNickname  = errors.New("nickname must be 2-15 characters")

	// Grid errors
	ErrGridNotFound = errors.New("no terrain grid for account")

	// Session errors
	ErrPermissionDenied = errors.New("admin permission required")
	ErrMalformedAction  = errors.New("malformed action token")

	// Transport errors
	ErrTransport = errors.New("platform transport failed")
)
