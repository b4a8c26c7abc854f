// Package repository implements one-time secret persistence for PostgreSQL, MySQL and
// an in-process memory store. Every implementation honors the same Consume contract:
// the check of remaining reads and expiry and the following decrement or delete form
// one atomic transition.
package repository

import (
	"database/sql"
	"encoding/json"

	apperrors "github.com/allisson/ots/internal/errors"
	secretsDomain "github.com/allisson/ots/internal/secrets/domain"
)

const secretColumns = `id, ciphertext, iv, salt, kdf, kdf_params, created_at, expires_at,
			  max_reads, remaining_reads, access_password_hash, metadata`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSecret(row rowScanner) (*secretsDomain.Secret, error) {
	var (
		secret             secretsDomain.Secret
		kdf                string
		kdfParams          []byte
		accessPasswordHash sql.NullString
		metadata           sql.NullString
	)

	err := row.Scan(
		&secret.ID,
		&secret.Ciphertext,
		&secret.IV,
		&secret.Salt,
		&kdf,
		&kdfParams,
		&secret.CreatedAt,
		&secret.ExpiresAt,
		&secret.MaxReads,
		&secret.RemainingReads,
		&accessPasswordHash,
		&metadata,
	)
	if err != nil {
		return nil, err
	}

	if len(kdfParams) > 0 {
		if err := json.Unmarshal(kdfParams, &secret.KDFParams); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal kdf params")
		}
	}
	secret.KDF = secretsDomain.KDF(kdf)
	secret.AccessPasswordHash = accessPasswordHash.String
	secret.Metadata = metadata.String

	return &secret, nil
}

// createArgs returns the insert arguments in secretColumns order. kdf_params goes out
// as a string since MySQL rejects binary-charset values for JSON columns.
func createArgs(secret *secretsDomain.Secret) ([]any, error) {
	kdfParams, err := json.Marshal(secret.KDFParams)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal kdf params")
	}

	return []any{
		secret.ID,
		secret.Ciphertext,
		secret.IV,
		secret.Salt,
		string(secret.KDF),
		string(kdfParams),
		secret.CreatedAt,
		secret.ExpiresAt,
		secret.MaxReads,
		secret.RemainingReads,
		nullString(secret.AccessPasswordHash),
		nullString(secret.Metadata),
	}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
