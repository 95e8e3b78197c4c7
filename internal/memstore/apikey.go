package memstore

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/weeraset/conduit-store/internal/domain/auth"
)

type apiKeyRepo struct {
	s *Store
}

// SeedAPIKey inserts or replaces an API key record, keyed by its hash.
func (s *Store) SeedAPIKey(info auth.APIKeyInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apikeys[info.KeyHash] = info
}

func (r *apiKeyRepo) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	info, ok := r.s.apikeys[hash]
	if !ok {
		return nil, errors.New("api key not found")
	}
	return &info, nil
}
