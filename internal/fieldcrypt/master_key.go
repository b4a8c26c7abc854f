package fieldcrypt

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// MasterKeySize is the required master key length in bytes.
const MasterKeySize = 32

var (
	// ErrMasterKeyNotSet indicates FIELD_ENCRYPTION_KEY is empty.
	ErrMasterKeyNotSet = errors.New("field encryption key is not set")
	// ErrInvalidMasterKey indicates the configured key is not valid base64 or has the wrong size.
	ErrInvalidMasterKey = errors.New("invalid field encryption key")
)

// MasterKey is the immutable root key for field encryption.
type MasterKey struct {
	key []byte
}

// NewMasterKey copies b into a MasterKey. The caller may zero b afterwards.
func NewMasterKey(b []byte) (MasterKey, error) {
	if len(b) != MasterKeySize {
		return MasterKey{}, fmt.Errorf("%w: must be %d bytes, got %d", ErrInvalidMasterKey, MasterKeySize, len(b))
	}
	key := make([]byte, MasterKeySize)
	copy(key, b)
	return MasterKey{key: key}, nil
}

// ParseMasterKey decodes a base64 encoded 32-byte key.
func ParseMasterKey(encoded string) (MasterKey, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return MasterKey{}, ErrMasterKeyNotSet
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return MasterKey{}, fmt.Errorf("%w: %v", ErrInvalidMasterKey, err)
	}
	defer Zero(raw)

	return NewMasterKey(raw)
}

// LoadMasterKey returns the field master key from its configured form. When keyURI is
// empty, encoded is the raw base64 key. Otherwise encoded is base64 KMS ciphertext that
// is unwrapped once through the keeper at keyURI.
func LoadMasterKey(ctx context.Context, encoded string, kmsService KMSService, keyURI string) (MasterKey, error) {
	if keyURI == "" {
		return ParseMasterKey(encoded)
	}

	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return MasterKey{}, ErrMasterKeyNotSet
	}
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return MasterKey{}, fmt.Errorf("%w: %v", ErrInvalidMasterKey, err)
	}

	keeper, err := kmsService.OpenKeeper(ctx, keyURI)
	if err != nil {
		return MasterKey{}, err
	}
	defer func() {
		_ = keeper.Close()
	}()

	raw, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return MasterKey{}, fmt.Errorf("failed to decrypt field encryption key with KMS: %w", err)
	}
	defer Zero(raw)

	return NewMasterKey(raw)
}

// GenerateMasterKey returns 32 random bytes. Callers zero them after encoding.
func GenerateMasterKey() ([]byte, error) {
	key := make([]byte, MasterKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate field encryption key: %w", err)
	}
	return key, nil
}

// Zero overwrites b with zeros.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
