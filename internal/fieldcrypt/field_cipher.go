// Package fieldcrypt encrypts individual database columns at rest under a single
// server-held master key.
//
// Encrypted values are self-describing: Marker + base64(salt || iv || ciphertext),
// where the per-value AES-256-CBC key is PBKDF2-HMAC-SHA256(masterKey, salt, 100000).
// Values without the marker are treated as legacy plaintext and returned as-is.
package fieldcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Marker prefixes every value produced by EncryptField.
	Marker = "enc:v1:"

	saltSize   = 16
	ivSize     = aes.BlockSize
	keySize    = 32
	iterations = 100000
)

// ErrFieldDecryption indicates a stored value carries the marker but cannot be decrypted.
var ErrFieldDecryption = errors.New("field decryption failed")

// Cipher is implemented by FieldCipher; use cases depend on it.
type Cipher interface {
	EncryptField(value string) (string, error)
	DecryptField(value string) (string, error)
}

// FieldCipher is safe for concurrent use.
type FieldCipher struct {
	masterKey []byte
}

// NewFieldCipher creates a FieldCipher bound to masterKey.
func NewFieldCipher(masterKey MasterKey) (*FieldCipher, error) {
	if len(masterKey.key) != MasterKeySize {
		return nil, fmt.Errorf("%w: master key is not initialized", ErrInvalidMasterKey)
	}
	key := make([]byte, MasterKeySize)
	copy(key, masterKey.key)
	return &FieldCipher{masterKey: key}, nil
}

// IsEncrypted reports whether value carries the field encryption marker.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, Marker)
}

// EncryptField encrypts value. Already encrypted values are returned unchanged.
func (f *FieldCipher) EncryptField(value string) (string, error) {
	if IsEncrypted(value) {
		return value, nil
	}

	buf := make([]byte, saltSize+ivSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate field salt: %w", err)
	}
	salt, iv := buf[:saltSize], buf[saltSize:]

	key := f.deriveKey(salt)
	defer Zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create field cipher: %w", err)
	}

	padded := pad([]byte(value))
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return Marker + base64.StdEncoding.EncodeToString(append(buf, ciphertext...)), nil
}

// DecryptField decrypts a value produced by EncryptField. Unmarked values pass through.
func (f *FieldCipher) DecryptField(value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}

	raw, err := base64.StdEncoding.DecodeString(value[len(Marker):])
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64", ErrFieldDecryption)
	}
	if len(raw) < saltSize+ivSize+aes.BlockSize {
		return "", fmt.Errorf("%w: payload too short", ErrFieldDecryption)
	}

	salt := raw[:saltSize]
	iv := raw[saltSize : saltSize+ivSize]
	ciphertext := raw[saltSize+ivSize:]
	if len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext is not a whole number of blocks", ErrFieldDecryption)
	}

	key := f.deriveKey(salt)
	defer Zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFieldDecryption, err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := unpad(plaintext)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

func (f *FieldCipher) deriveKey(salt []byte) []byte {
	return pbkdf2.Key(f.masterKey, salt, iterations, keySize, sha256.New)
}

func pad(data []byte) []byte {
	n := aes.BlockSize - len(data)%aes.BlockSize
	out := make([]byte, len(data)+n)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func unpad(data []byte) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, fmt.Errorf("%w: invalid padding", ErrFieldDecryption)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: invalid padding", ErrFieldDecryption)
		}
	}
	return data[:len(data)-n], nil
}
