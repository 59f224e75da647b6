// Package sentinel holds the storage-level facts every store reports the same
// way, whatever its backend.
package sentinel

import "errors"

// Stores return these, usually wrapped with the key involved. Services map
// them onto coded domain errors; handlers never see them directly.
//
//   - ErrNotFound: no row or map entry under the key
//   - ErrConflict: a version compare-and-swap lost to a concurrent writer
//   - ErrAlreadyUsed: the key (vault id, account address) is taken
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrAlreadyUsed = errors.New("already used")
)
