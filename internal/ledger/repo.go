package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tradeledger/internal/domain"
	"tradeledger/internal/storage"
	"tradeledger/pkg/platform/sentinel"
)

// Repo serializes the ledger aggregates as JSON through the keyed store. Each
// entity type owns a table; the list-of-ids registry rows live under the
// RegistryKey of the same table.
type Repo struct {
	store storage.Store
}

func NewRepo(store storage.Store) *Repo {
	return &Repo{store: store}
}

func (r *Repo) LoadLedger(ctx context.Context, id string) (*domain.SharedLedger, error) {
	var ledger domain.SharedLedger
	if err := r.load(ctx, storage.TableSharedLedgers, id, &ledger); err != nil {
		return nil, err
	}
	return &ledger, nil
}

func (r *Repo) SaveLedger(ctx context.Context, ledger *domain.SharedLedger) error {
	return r.save(ctx, storage.TableSharedLedgers, ledger.ID, ledger)
}

func (r *Repo) DeleteLedger(ctx context.Context, id string) error {
	return r.store.Unset(ctx, storage.TableSharedLedgers, id)
}

func (r *Repo) LoadTrade(ctx context.Context, uti string) (*domain.Trade, error) {
	var trade domain.Trade
	if err := r.load(ctx, storage.TableTrades, uti, &trade); err != nil {
		return nil, err
	}
	return &trade, nil
}

func (r *Repo) SaveTrade(ctx context.Context, trade *domain.Trade) error {
	return r.save(ctx, storage.TableTrades, trade.UTI, trade)
}

func (r *Repo) DeleteTrade(ctx context.Context, uti string) error {
	return r.store.Unset(ctx, storage.TableTrades, uti)
}

func (r *Repo) LoadUser(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	if err := r.load(ctx, storage.TableUsers, id, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repo) SaveUser(ctx context.Context, user *domain.User) error {
	return r.save(ctx, storage.TableUsers, user.ID, user)
}

func (r *Repo) DeleteUser(ctx context.Context, id string) error {
	return r.store.Unset(ctx, storage.TableUsers, id)
}

// LoadLedgerRegistry returns the ids of all shared ledgers, empty when none
// were created yet.
func (r *Repo) LoadLedgerRegistry(ctx context.Context) ([]string, error) {
	return r.loadRegistry(ctx, storage.TableSharedLedgers)
}

func (r *Repo) SaveLedgerRegistry(ctx context.Context, ids []string) error {
	return r.saveRegistry(ctx, storage.TableSharedLedgers, ids)
}

// LoadUserRegistry returns the ids of all known users.
func (r *Repo) LoadUserRegistry(ctx context.Context) ([]string, error) {
	return r.loadRegistry(ctx, storage.TableUsers)
}

func (r *Repo) SaveUserRegistry(ctx context.Context, ids []string) error {
	return r.saveRegistry(ctx, storage.TableUsers, ids)
}

type registryRecord struct {
	IDs []string `json:"ids"`
}

func (r *Repo) loadRegistry(ctx context.Context, table string) ([]string, error) {
	var record registryRecord
	if err := r.load(ctx, table, storage.RegistryKey, &record); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return record.IDs, nil
}

func (r *Repo) saveRegistry(ctx context.Context, table string, ids []string) error {
	return r.save(ctx, table, storage.RegistryKey, registryRecord{IDs: ids})
}

func (r *Repo) load(ctx context.Context, table, key string, out any) error {
	raw, err := r.store.Get(ctx, table, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("load %s/%s: %w", table, key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s/%s: %w", table, key, err)
	}
	return nil
}

func (r *Repo) save(ctx context.Context, table, key string, in any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", table, key, err)
	}
	if err := r.store.Set(ctx, table, key, raw); err != nil {
		return fmt.Errorf("save %s/%s: %w", table, key, err)
	}
	return nil
}
