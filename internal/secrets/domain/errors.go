package domain

import (
	"github.com/allisson/ots/internal/errors"
)

// Secret-specific error definitions.
var (
	// ErrSecretNotFound covers absent, expired, exhausted and undecryptable secrets.
	ErrSecretNotFound = errors.Wrap(errors.ErrNotFound, "secret not found")

	// ErrSecretAlreadyExists indicates an id collision on insert.
	ErrSecretAlreadyExists = errors.Wrap(errors.ErrConflict, "secret already exists")

	// ErrInvalidKDF indicates a kdf label outside SupportedKDFs.
	ErrInvalidKDF = errors.Wrap(errors.ErrInvalidInput, "invalid kdf")

	// ErrInvalidMaxReads indicates maxReads is out of range.
	ErrInvalidMaxReads = errors.Wrap(errors.ErrInvalidInput, "invalid max reads")

	// ErrDeleteNotConfirmed indicates a secret was still present after delete and one retry.
	ErrDeleteNotConfirmed = errors.New("secret delete not confirmed")
)
