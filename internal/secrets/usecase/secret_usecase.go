package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	apperrors "github.com/allisson/ots/internal/errors"
	"github.com/allisson/ots/internal/fieldcrypt"
	secretsDomain "github.com/allisson/ots/internal/secrets/domain"
	secretsService "github.com/allisson/ots/internal/secrets/service"
)

// DefaultMaxReadsLimit is the upper bound for maxReads when Config leaves it unset.
const DefaultMaxReadsLimit = 100

// Config holds lifecycle limits.
type Config struct {
	ExpiryWindow  secretsDomain.ExpiryWindow
	MaxReadsLimit int
}

type secretUseCase struct {
	secretRepo  SecretRepository
	fieldCipher fieldcrypt.Cipher
	idGenerator secretsService.IDGenerator
	config      Config
	logger      *slog.Logger
	now         func() time.Time
}

// NewSecretUseCase creates the one-time secret use case.
func NewSecretUseCase(
	secretRepo SecretRepository,
	fieldCipher fieldcrypt.Cipher,
	idGenerator secretsService.IDGenerator,
	config Config,
	logger *slog.Logger,
) SecretUseCase {
	if config.MaxReadsLimit <= 0 {
		config.MaxReadsLimit = DefaultMaxReadsLimit
	}
	return &secretUseCase{
		secretRepo:  secretRepo,
		fieldCipher: fieldCipher,
		idGenerator: idGenerator,
		config:      config,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *secretUseCase) Create(
	ctx context.Context,
	input *secretsDomain.CreateSecretInput,
) (*secretsDomain.Secret, error) {
	maxReads := input.MaxReads
	if input.BurnAfterRead || maxReads == 0 {
		maxReads = 1
	}
	if maxReads < 1 || maxReads > s.config.MaxReadsLimit {
		return nil, secretsDomain.ErrInvalidMaxReads
	}
	if !input.KDF.IsValid() {
		return nil, secretsDomain.ErrInvalidKDF
	}

	id, err := s.idGenerator.Generate()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to generate secret id")
	}

	now := s.now()
	expiresAt := now.Add(secretsDomain.ParseExpiresIn(input.ExpiresIn, now, s.config.ExpiryWindow))

	var metadata string
	if len(input.Metadata) > 0 {
		raw, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to marshal metadata")
		}
		metadata = string(raw)
	}

	secret := &secretsDomain.Secret{
		ID:                 id,
		Ciphertext:         input.Ciphertext,
		IV:                 input.IV,
		Salt:               input.Salt,
		KDF:                input.KDF,
		KDFParams:          input.KDFParams,
		CreatedAt:          now,
		ExpiresAt:          &expiresAt,
		MaxReads:           maxReads,
		RemainingReads:     maxReads,
		AccessPasswordHash: input.AccessPasswordHash,
		Metadata:           metadata,
	}

	stored, err := s.encryptSecret(secret)
	if err != nil {
		return nil, err
	}

	if err := s.secretRepo.Create(ctx, stored); err != nil {
		return nil, err
	}

	return secret, nil
}

func (s *secretUseCase) Redeem(ctx context.Context, id string) (*secretsDomain.RedeemedSecret, error) {
	if err := s.idGenerator.Validate(id); err != nil {
		return nil, secretsDomain.ErrSecretNotFound
	}

	result, err := s.secretRepo.Consume(ctx, id, s.now())
	if err != nil {
		return nil, err
	}

	// The stored copy must be gone before the payload leaves this call.
	if result.Deleted {
		if err := s.confirmDeleted(ctx, id); err != nil {
			return nil, err
		}
	}

	redeemed, err := s.decryptPayload(result.Secret)
	if err != nil {
		if errors.Is(err, fieldcrypt.ErrFieldDecryption) {
			s.logger.Error("field decryption failed",
				slog.String("secret_id", id),
				slog.Any("error", err),
			)
			return nil, secretsDomain.ErrSecretNotFound
		}
		return nil, err
	}

	return redeemed, nil
}

func (s *secretUseCase) Delete(ctx context.Context, id string) (bool, error) {
	if err := s.idGenerator.Validate(id); err != nil {
		return false, nil
	}

	existed, err := s.secretRepo.Delete(ctx, id)
	if err != nil {
		return false, err
	}

	if err := s.confirmDeleted(ctx, id); err != nil {
		return false, err
	}

	return existed, nil
}

func (s *secretUseCase) CleanupExpired(ctx context.Context, dryRun bool) (int64, error) {
	count, err := s.secretRepo.DeleteExpired(ctx, s.now(), dryRun)
	if err != nil {
		return 0, err
	}

	s.logger.Info("expired secrets cleanup",
		slog.Int64("count", count),
		slog.Bool("dry_run", dryRun),
	)
	return count, nil
}

// confirmDeleted checks the row is absent and retries the delete once if it is not.
func (s *secretUseCase) confirmDeleted(ctx context.Context, id string) error {
	exists, err := s.secretRepo.Exists(ctx, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to confirm secret deletion")
	}
	if !exists {
		return nil
	}

	s.logger.Warn("secret still present after delete, retrying", slog.String("secret_id", id))

	if _, err := s.secretRepo.Delete(ctx, id); err != nil {
		return apperrors.Wrap(err, "failed to retry secret deletion")
	}

	exists, err = s.secretRepo.Exists(ctx, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to confirm secret deletion")
	}
	if exists {
		s.logger.Error("secret delete not confirmed", slog.String("secret_id", id))
		return secretsDomain.ErrDeleteNotConfirmed
	}
	return nil
}

// encryptSecret returns a copy of secret with its sensitive fields field-encrypted.
func (s *secretUseCase) encryptSecret(secret *secretsDomain.Secret) (*secretsDomain.Secret, error) {
	stored := *secret

	fields := []*string{&stored.Ciphertext, &stored.IV, &stored.Salt}
	if stored.AccessPasswordHash != "" {
		fields = append(fields, &stored.AccessPasswordHash)
	}
	if stored.Metadata != "" {
		fields = append(fields, &stored.Metadata)
	}

	for _, field := range fields {
		enc, err := s.fieldCipher.EncryptField(*field)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to encrypt secret field")
		}
		*field = enc
	}

	return &stored, nil
}

func (s *secretUseCase) decryptPayload(secret *secretsDomain.Secret) (*secretsDomain.RedeemedSecret, error) {
	ciphertext, err := s.fieldCipher.DecryptField(secret.Ciphertext)
	if err != nil {
		return nil, err
	}
	iv, err := s.fieldCipher.DecryptField(secret.IV)
	if err != nil {
		return nil, err
	}
	salt, err := s.fieldCipher.DecryptField(secret.Salt)
	if err != nil {
		return nil, err
	}

	return &secretsDomain.RedeemedSecret{
		Ciphertext: ciphertext,
		IV:         iv,
		Salt:       salt,
		KDF:        secret.KDF,
		KDFParams:  secret.KDFParams,
	}, nil
}
