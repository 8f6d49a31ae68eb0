package attendance

import "errors"

// Validation failures. None of them change state.
var (
	ErrInvalidForm     = errors.New("all session fields are required")
	ErrSessionActive   = errors.New("another session is already active")
	ErrNoActiveSession = errors.New("no active session")
	ErrRollNoRequired  = errors.New("roll number required")
	ErrEmptyScan       = errors.New("scanned data is empty")
	ErrDuplicate       = errors.New("student already marked present")
	ErrFaceMismatch    = errors.New("face did not match student")
	ErrFaceUnavailable = errors.New("face verification not configured")
	ErrQRExpired       = errors.New("qr code expired")
	ErrQRMismatch      = errors.New("qr code does not belong to the active session")
	ErrSessionNotFound = errors.New("session not found")
)
