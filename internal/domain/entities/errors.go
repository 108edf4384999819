package entities

import "errors"

// Sentinel errors shared across layers; wrap with %w and test with errors.Is
var (
	ErrChecksumMismatch  = errors.New("checksum mismatch")
	ErrSignatureInvalid  = errors.New("signature verification failed")
	ErrKeyNotFound       = errors.New("signing key not found")
	ErrIncompleteRuntime = errors.New("runtime metadata incomplete")
	ErrMissingResource   = errors.New("required resource missing")
	ErrToolFailed        = errors.New("external tool failed")
	ErrValidation        = errors.New("validation failed")
	ErrUnsupportedFormat = errors.New("unsupported archive format")
)
