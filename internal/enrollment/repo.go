package enrollment

import (
	"context"
	"encoding/json"
	"errors"

	"tradeledger/internal/storage"
	"tradeledger/pkg/platform/sentinel"
)

// Repo persists user requests and credentials through the keyed record store.
// Requests keep a list entity under the shared registry key, same shape as
// the ledger and user registries.
type Repo struct {
	store storage.Store
}

func NewRepo(store storage.Store) *Repo {
	return &Repo{store: store}
}

type requestRegistry struct {
	IDs []string `json:"ids"`
}

func (r *Repo) LoadRequest(ctx context.Context, id string) (*Request, error) {
	raw, err := r.store.Get(ctx, storage.TableUserRequests, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *Repo) SaveRequest(ctx context.Context, req *Request) error {
	raw, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, storage.TableUserRequests, req.ID, raw)
}

func (r *Repo) DeleteRequest(ctx context.Context, id string) error {
	return r.store.Unset(ctx, storage.TableUserRequests, id)
}

func (r *Repo) LoadRequestRegistry(ctx context.Context) ([]string, error) {
	raw, err := r.store.Get(ctx, storage.TableUserRequests, storage.RegistryKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var reg requestRegistry
	if err := json.Unmarshal(raw, &reg); err != nil {
		return nil, err
	}
	return reg.IDs, nil
}

func (r *Repo) SaveRequestRegistry(ctx context.Context, ids []string) error {
	raw, err := json.Marshal(requestRegistry{IDs: ids})
	if err != nil {
		return err
	}
	return r.store.Set(ctx, storage.TableUserRequests, storage.RegistryKey, raw)
}

func (r *Repo) LoadCredential(ctx context.Context, userID string) (*Credential, error) {
	raw, err := r.store.Get(ctx, storage.TableCredentials, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	var cred Credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *Repo) SaveCredential(ctx context.Context, cred *Credential) error {
	raw, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, storage.TableCredentials, cred.UserID, raw)
}

func (r *Repo) DeleteCredential(ctx context.Context, userID string) error {
	return r.store.Unset(ctx, storage.TableCredentials, userID)
}
