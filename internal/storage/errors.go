package storage

import "tradeledger/pkg/platform/sentinel"

// ErrNotFound keeps storage-specific misses consistent across the in-memory,
// Redis, and Postgres implementations.
var ErrNotFound = sentinel.ErrNotFound
