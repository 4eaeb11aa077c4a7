// Package signer manages the ledger's persisted signing identity. The private
// key signs capability tokens at trade submission; the public key is served to
// holders that want to verify tokens out of band.
package signer

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"tradeledger/internal/storage"
	dErrors "tradeledger/pkg/domain-errors"
	"tradeledger/pkg/platform/sentinel"
)

// Identity is the stored key record.
type Identity struct {
	PrivateKeyB64 string `json:"privateKeyB64"`
}

// Service loads, generates, and clears the signing identity through the keyed
// store.
type Service struct {
	store storage.Store
}

func New(store storage.Store) *Service {
	return &Service{store: store}
}

// Load returns the current private key. An unset identity reports
// CodeInvalidState: trades cannot be submitted until a key exists.
func (s *Service) Load(ctx context.Context) (ed25519.PrivateKey, error) {
	identity, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if identity.PrivateKeyB64 == "" {
		return nil, dErrors.New(dErrors.CodeInvalidState, "ledger signing identity is not set")
	}
	raw, err := base64.StdEncoding.DecodeString(identity.PrivateKeyB64)
	if err != nil || len(raw) != ed25519.PrivateKeySize {
		return nil, dErrors.New(dErrors.CodeInternal, "stored signing identity is corrupt")
	}
	return ed25519.PrivateKey(raw), nil
}

// PublicKey returns the verification half of the identity.
func (s *Service) PublicKey(ctx context.Context) (ed25519.PublicKey, error) {
	priv, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return priv.Public().(ed25519.PublicKey), nil
}

// PublicKeyB64 returns the public key base64-encoded for API responses.
func (s *Service) PublicKeyB64(ctx context.Context) (string, error) {
	pub, err := s.PublicKey(ctx)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(pub), nil
}

// Generate creates and persists a fresh identity, replacing any existing one.
func (s *Service) Generate(ctx context.Context) error {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generate signing identity: %w", err)
	}
	return s.save(ctx, Identity{PrivateKeyB64: base64.StdEncoding.EncodeToString(priv)})
}

// EnsureFromSeed installs a deterministic identity when seed is non-empty and
// no identity exists yet. Used at startup so dev deployments come up signed.
func (s *Service) EnsureFromSeed(ctx context.Context, seedB64 string) error {
	identity, err := s.load(ctx)
	if err != nil {
		return err
	}
	if identity.PrivateKeyB64 != "" {
		return nil
	}
	if seedB64 == "" {
		return s.Generate(ctx)
	}
	seed, err := base64.StdEncoding.DecodeString(seedB64)
	if err != nil || len(seed) != ed25519.SeedSize {
		return dErrors.New(dErrors.CodeInvalidInput, "signing seed must be 32 base64-encoded bytes")
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return s.save(ctx, Identity{PrivateKeyB64: base64.StdEncoding.EncodeToString(priv)})
}

// Clear wipes the identity. Previously issued tokens stay verifiable only by
// holders that kept the public key.
func (s *Service) Clear(ctx context.Context) error {
	return s.save(ctx, Identity{})
}

func (s *Service) load(ctx context.Context) (Identity, error) {
	raw, err := s.store.Get(ctx, storage.TableKeys, storage.RegistryKey)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Identity{}, nil
		}
		return Identity{}, fmt.Errorf("load signing identity: %w", err)
	}
	var identity Identity
	if err := json.Unmarshal(raw, &identity); err != nil {
		return Identity{}, fmt.Errorf("decode signing identity: %w", err)
	}
	return identity, nil
}

func (s *Service) save(ctx context.Context, identity Identity) error {
	raw, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode signing identity: %w", err)
	}
	if err := s.store.Set(ctx, storage.TableKeys, storage.RegistryKey, raw); err != nil {
		return fmt.Errorf("save signing identity: %w", err)
	}
	return nil
}
