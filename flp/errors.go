package flp

import "errors"

// Error kinds shared by every component that talks to the ledger.
// Callers classify failures with errors.Is.
var (
	// ErrTransport reports a network or decoding failure against the ledger gateway.
	ErrTransport = errors.New("ledger transport failure")
	// ErrNotFound reports that no qualifying message exists.
	ErrNotFound = errors.New("no qualifying message found")
	// ErrSchema reports a payload that does not decode into the expected entity.
	ErrSchema = errors.New("payload schema mismatch")
	// ErrValidation reports invalid caller input such as an unknown ticker or malformed address.
	ErrValidation = errors.New("invalid input")
	// ErrInconsistentState reports a declaration whose relayed message could not be found.
	ErrInconsistentState = errors.New("inconsistent ledger state")
)
