package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	secretsDomain "github.com/allisson/ots/internal/secrets/domain"
	secretsRepository "github.com/allisson/ots/internal/secrets/repository"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func redeemConcurrently(t *testing.T, uc SecretUseCase, id string, attempts int) (successes, notFound int64) {
	t.Helper()

	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			_, err := uc.Redeem(context.Background(), id)
			switch {
			case err == nil:
				atomic.AddInt64(&successes, 1)
			case errors.Is(err, secretsDomain.ErrSecretNotFound):
				atomic.AddInt64(&notFound, 1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	return successes, notFound
}

func TestSecretUseCase_ConcurrentRedeem(t *testing.T) {
	tests := []struct {
		name     string
		maxReads int
		attempts int
	}{
		{name: "single read", maxReads: 1, attempts: 16},
		{name: "multiple reads", maxReads: 4, attempts: 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := secretsRepository.NewMemorySecretRepository()
			uc := newTestUseCase(t, repo, nil)

			input := validInput()
			input.MaxReads = tt.maxReads
			secret, err := uc.Create(context.Background(), input)
			require.NoError(t, err)

			successes, notFound := redeemConcurrently(t, uc, secret.ID, tt.attempts)

			assert.Equal(t, int64(tt.maxReads), successes)
			assert.Equal(t, int64(tt.attempts-tt.maxReads), notFound)
			assert.Equal(t, 0, repo.Len())
		})
	}
}
