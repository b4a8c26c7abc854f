package repository

import (
	"context"
	"sync"
	"time"

	secretsDomain "github.com/allisson/ots/internal/secrets/domain"
)

// MemorySecretRepository keeps secrets in process memory. It is meant for development
// and tests; data is lost on restart.
type MemorySecretRepository struct {
	mu      sync.Mutex
	secrets map[string]secretsDomain.Secret
}

// NewMemorySecretRepository creates an empty in-memory repository.
func NewMemorySecretRepository() *MemorySecretRepository {
	return &MemorySecretRepository{secrets: make(map[string]secretsDomain.Secret)}
}

// Create inserts a copy of secret.
func (r *MemorySecretRepository) Create(ctx context.Context, secret *secretsDomain.Secret) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.secrets[secret.ID]; ok {
		return secretsDomain.ErrSecretAlreadyExists
	}
	r.secrets[secret.ID] = cloneSecret(secret)
	return nil
}

// Exists reports whether id is stored.
func (r *MemorySecretRepository) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.secrets[id]
	return ok, nil
}

// Consume spends one read under the repository lock.
func (r *MemorySecretRepository) Consume(
	ctx context.Context,
	id string,
	now time.Time,
) (*secretsDomain.ConsumeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	secret, ok := r.secrets[id]
	if !ok || !secret.IsRedeemable(now) {
		return nil, secretsDomain.ErrSecretNotFound
	}

	snapshot := cloneSecret(&secret)
	deleted := secret.RemainingReads <= 1
	if deleted {
		delete(r.secrets, id)
	} else {
		secret.RemainingReads--
		r.secrets[id] = secret
	}

	return &secretsDomain.ConsumeResult{Secret: &snapshot, Deleted: deleted}, nil
}

// Delete removes id and reports whether it existed.
func (r *MemorySecretRepository) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.secrets[id]
	delete(r.secrets, id)
	return ok, nil
}

// DeleteExpired removes secrets whose expiry is at or before now. With dryRun it only counts them.
func (r *MemorySecretRepository) DeleteExpired(ctx context.Context, now time.Time, dryRun bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for id, secret := range r.secrets {
		if !secret.IsExpired(now) {
			continue
		}
		count++
		if !dryRun {
			delete(r.secrets, id)
		}
	}
	return count, nil
}

// PingContext always succeeds while ctx is live; it lets the store back readiness probes.
func (r *MemorySecretRepository) PingContext(ctx context.Context) error {
	return ctx.Err()
}

// Len returns the number of stored secrets.
func (r *MemorySecretRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.secrets)
}

func cloneSecret(s *secretsDomain.Secret) secretsDomain.Secret {
	out := *s
	if s.ExpiresAt != nil {
		t := *s.ExpiresAt
		out.ExpiresAt = &t
	}
	if s.KDFParams.Extra != nil {
		out.KDFParams.Extra = make(map[string]any, len(s.KDFParams.Extra))
		for k, v := range s.KDFParams.Extra {
			out.KDFParams.Extra[k] = v
		}
	}
	return out
}
