// Package mocks provides testify mocks for the secrets use case layer.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	secretsDomain "github.com/allisson/ots/internal/secrets/domain"
)

// MockSecretUseCase is a mock implementation of usecase.SecretUseCase.
type MockSecretUseCase struct {
	mock.Mock
}

// Create mocks the Create method.
func (m *MockSecretUseCase) Create(
	ctx context.Context,
	input *secretsDomain.CreateSecretInput,
) (*secretsDomain.Secret, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsDomain.Secret), args.Error(1)
}

// Redeem mocks the Redeem method.
func (m *MockSecretUseCase) Redeem(ctx context.Context, id string) (*secretsDomain.RedeemedSecret, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsDomain.RedeemedSecret), args.Error(1)
}

// Delete mocks the Delete method.
func (m *MockSecretUseCase) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// CleanupExpired mocks the CleanupExpired method.
func (m *MockSecretUseCase) CleanupExpired(ctx context.Context, dryRun bool) (int64, error) {
	args := m.Called(ctx, dryRun)
	return args.Get(0).(int64), args.Error(1)
}

// MockSecretRepository is a mock implementation of usecase.SecretRepository.
type MockSecretRepository struct {
	mock.Mock
}

// Create mocks the Create method.
func (m *MockSecretRepository) Create(ctx context.Context, secret *secretsDomain.Secret) error {
	args := m.Called(ctx, secret)
	return args.Error(0)
}

// Exists mocks the Exists method.
func (m *MockSecretRepository) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// Consume mocks the Consume method.
func (m *MockSecretRepository) Consume(
	ctx context.Context,
	id string,
	now time.Time,
) (*secretsDomain.ConsumeResult, error) {
	args := m.Called(ctx, id, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsDomain.ConsumeResult), args.Error(1)
}

// Delete mocks the Delete method.
func (m *MockSecretRepository) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// DeleteExpired mocks the DeleteExpired method.
func (m *MockSecretRepository) DeleteExpired(ctx context.Context, now time.Time, dryRun bool) (int64, error) {
	args := m.Called(ctx, now, dryRun)
	return args.Get(0).(int64), args.Error(1)
}
