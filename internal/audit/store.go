package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tradeledger/internal/storage"
	"tradeledger/pkg/platform/sentinel"
)

// Store persists audit events. Kept as an interface so tests can swap sinks
// easily.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByActor(ctx context.Context, actor string) ([]Event, error)
}

// StorageStore keeps one append-only event list per actor in the keyed store.
type StorageStore struct {
	store storage.Store
}

func NewStorageStore(store storage.Store) *StorageStore {
	return &StorageStore{store: store}
}

func (s *StorageStore) Append(ctx context.Context, event Event) error {
	events, err := s.ListByActor(ctx, event.Actor)
	if err != nil {
		return err
	}
	events = append(events, event)
	raw, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("encode audit events: %w", err)
	}
	return s.store.Set(ctx, storage.TableAuditEvents, event.Actor, raw)
}

func (s *StorageStore) ListByActor(ctx context.Context, actor string) ([]Event, error) {
	raw, err := s.store.Get(ctx, storage.TableAuditEvents, actor)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load audit events: %w", err)
	}
	var events []Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("decode audit events: %w", err)
	}
	return events, nil
}
