// Package usecase implements the one-time secret lifecycle: create, redeem, delete and
// operator cleanup of expired records.
package usecase

import (
	"context"
	"time"

	secretsDomain "github.com/allisson/ots/internal/secrets/domain"
)

// SecretRepository defines the row store the lifecycle runs on.
type SecretRepository interface {
	Create(ctx context.Context, secret *secretsDomain.Secret) error
	Exists(ctx context.Context, id string) (bool, error)
	// Consume spends one read atomically: it fails with ErrSecretNotFound for absent,
	// expired or exhausted rows, deletes the row on its last read and decrements otherwise.
	Consume(ctx context.Context, id string, now time.Time) (*secretsDomain.ConsumeResult, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time, dryRun bool) (int64, error)
}

// SecretUseCase defines the interface for one-time secret business logic.
type SecretUseCase interface {
	// Create stores a new secret and returns it with plaintext fields.
	Create(ctx context.Context, input *secretsDomain.CreateSecretInput) (*secretsDomain.Secret, error)
	// Redeem spends one read and returns the envelope fields. Every not-found cause,
	// including an undecryptable row, returns ErrSecretNotFound.
	Redeem(ctx context.Context, id string) (*secretsDomain.RedeemedSecret, error)
	// Delete removes a secret and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)
	// CleanupExpired removes, or with dryRun counts, secrets past their expiry.
	CleanupExpired(ctx context.Context, dryRun bool) (int64, error)
}
