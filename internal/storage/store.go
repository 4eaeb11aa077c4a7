// Package storage provides the keyed record store the ledger core runs on.
// Every aggregate serializes to bytes and lives under a (table, key) pair;
// the core never depends on a concrete engine.
package storage

import "context"

// Store is a table-scoped byte store. Get returns sentinel.ErrNotFound when
// the key is absent; Unset of a missing key is a no-op.
type Store interface {
	Get(ctx context.Context, table, key string) ([]byte, error)
	Set(ctx context.Context, table, key string, value []byte) error
	Unset(ctx context.Context, table, key string) error
}

// Table names. The registry rows ("ALL" key) share their entity's table, the
// same layout the hosting ledger used.
const (
	TableSharedLedgers = "shared_ledgers"
	TableTrades        = "trades"
	TableUsers         = "users"
	TableUserRequests  = "user_requests"
	TableKeys          = "keys"
	TableCredentials   = "credentials"
	TableAuditEvents   = "audit_events"
)

// RegistryKey indexes the list-of-ids row within an entity table.
const RegistryKey = "ALL"
