package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure with no infrastructure dependency.

var (
	// Catalog errors
	ErrModelNotFound     = errors.New("model not found in catalog")
	ErrGPUNotFound       = errors.New("gpu not found in catalog")
	ErrEmptyCatalog      = errors.New("catalog has no entries")
	ErrUnsupportedFormat = errors.New("unsupported catalog file format")

	// Sizing errors
	ErrNoFit = errors.New("configuration does not fit in device memory")
)
