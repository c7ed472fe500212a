package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and caches return these
// (optionally wrapped) so services can translate them into domain errors.
//
// ErrNotFound means the row does not exist in the store, or the key missed
// in a cache. For validation errors use pkg/domain-errors directly.
var ErrNotFound = errors.New("not found")
