package usecase

import (
	"context"
	"time"

	"github.com/allisson/ots/internal/metrics"
	secretsDomain "github.com/allisson/ots/internal/secrets/domain"
)

// secretUseCaseWithMetrics decorates SecretUseCase with metrics instrumentation.
type secretUseCaseWithMetrics struct {
	next    SecretUseCase
	metrics metrics.BusinessMetrics
}

// NewSecretUseCaseWithMetrics wraps a SecretUseCase with metrics recording.
func NewSecretUseCaseWithMetrics(useCase SecretUseCase, m metrics.BusinessMetrics) SecretUseCase {
	return &secretUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Create records metrics for secret creation.
func (s *secretUseCaseWithMetrics) Create(
	ctx context.Context,
	input *secretsDomain.CreateSecretInput,
) (*secretsDomain.Secret, error) {
	start := time.Now()
	secret, err := s.next.Create(ctx, input)
	s.record(ctx, "secret_create", start, err)
	return secret, err
}

// Redeem records metrics for secret redemption.
func (s *secretUseCaseWithMetrics) Redeem(ctx context.Context, id string) (*secretsDomain.RedeemedSecret, error) {
	start := time.Now()
	redeemed, err := s.next.Redeem(ctx, id)
	s.record(ctx, "secret_redeem", start, err)
	return redeemed, err
}

// Delete records metrics for explicit secret deletion.
func (s *secretUseCaseWithMetrics) Delete(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	existed, err := s.next.Delete(ctx, id)
	s.record(ctx, "secret_delete", start, err)
	if err == nil && existed {
		s.metrics.RecordSecretsRemoved(ctx, metrics.RemovalReasonDeleted, 1)
	}
	return existed, err
}

// CleanupExpired records metrics for expired secret cleanup.
func (s *secretUseCaseWithMetrics) CleanupExpired(ctx context.Context, dryRun bool) (int64, error) {
	start := time.Now()
	count, err := s.next.CleanupExpired(ctx, dryRun)
	s.record(ctx, "secret_cleanup_expired", start, err)
	if err == nil && !dryRun {
		s.metrics.RecordSecretsRemoved(ctx, metrics.RemovalReasonExpired, count)
	}
	return count, err
}

func (s *secretUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	s.metrics.RecordOperation(ctx, "secrets", operation, status)
	s.metrics.RecordDuration(ctx, "secrets", operation, time.Since(start), status)
}
