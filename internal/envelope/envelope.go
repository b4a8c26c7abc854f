// Package envelope implements the client-side layered encryption envelope.
//
// The envelope is a frozen wire contract shared with the browser client: a secret
// encrypted here must be redeemable there and vice versa. Any change to the byte
// layout requires a new, versioned format rather than an edit in place.
//
// Layout:
//
//	outer = AES-256-CBC/PKCS#7(key=random 32 bytes, iv=random 16 bytes, payload)
//	payload = plaintext                                   (no password)
//	payload = "PWD:" + b64(inner) + "||" + hex(innerIV)   (password)
//	inner = AES-256-CBC/PKCS#7(key=PBKDF2-SHA1(password, nil salt, 10000, 32), iv=innerIV, plaintext)
//
// The password layer carries no integrity tag. A wrong password is usually reported
// as ErrDecryption, but it can decrypt to garbage without any error when the
// trailing padding happens to validate.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // PBKDF2-SHA1 is part of the wire contract
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// PBKDF2Iterations is the iteration count of the password layer.
	PBKDF2Iterations = 10000
	// KeySize is the AES-256 key size in bytes.
	KeySize = 32
	// IVSize is the CBC initialization vector size in bytes.
	IVSize = aes.BlockSize
	// SaltSize is the size of the transmitted salt in bytes.
	SaltSize = 16
	// KDFLabel is the kdf label clients send alongside an envelope.
	KDFLabel = "pbkdf2"

	passwordMarker    = "PWD:"
	passwordSeparator = "||"
)

var (
	// ErrEnvelopeFormat indicates malformed hex, base64 or payload structure.
	ErrEnvelopeFormat = errors.New("malformed envelope")
	// ErrPasswordRequired indicates a password-protected payload was opened without a password.
	ErrPasswordRequired = errors.New("password required for this secret")
	// ErrDecryption indicates a padding failure after decryption: a wrong key or
	// password, or a corrupted secret.
	ErrDecryption = errors.New("incorrect password or corrupted secret")
)

// Envelope is the transmittable result of Encrypt. Key never leaves the client:
// it travels only inside the shareable link.
type Envelope struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Salt       string `json:"salt"`
	Key        string `json:"-"`
}

// Codec encrypts and decrypts envelopes. The zero value uses crypto/rand.
type Codec struct {
	// Rand is the randomness source for keys, IVs and salts; nil means crypto/rand.
	Rand io.Reader
}

var defaultCodec = &Codec{}

// Encrypt encrypts plaintext with the default codec.
func Encrypt(plaintext, password string) (*Envelope, error) {
	return defaultCodec.Encrypt(plaintext, password)
}

// Decrypt decrypts env with the default codec.
func Decrypt(env *Envelope, password string) (string, error) {
	return defaultCodec.Decrypt(env, password)
}

// Encrypt builds an envelope for plaintext, adding the password layer when password is non-empty.
func (c *Codec) Encrypt(plaintext, password string) (*Envelope, error) {
	outerKey, err := c.randomBytes(KeySize)
	if err != nil {
		return nil, fmt.Errorf("generate outer key: %w", err)
	}
	outerIV, err := c.randomBytes(IVSize)
	if err != nil {
		return nil, fmt.Errorf("generate outer iv: %w", err)
	}
	// Nothing derives from the salt; it is always sent so the envelope keeps one shape.
	salt, err := c.randomBytes(SaltSize)
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	payload := plaintext
	if password != "" {
		payload, err = c.sealPassword(plaintext, password)
		if err != nil {
			return nil, err
		}
	}

	ciphertext, err := encryptCBC([]byte(payload), outerKey, outerIV)
	if err != nil {
		return nil, fmt.Errorf("encrypt outer layer: %w", err)
	}

	return &Envelope{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		IV:         hex.EncodeToString(outerIV),
		Salt:       hex.EncodeToString(salt),
		Key:        hex.EncodeToString(outerKey),
	}, nil
}

// Decrypt reverses Encrypt. The salt is carried but not needed.
func (c *Codec) Decrypt(env *Envelope, password string) (string, error) {
	if env == nil {
		return "", fmt.Errorf("%w: nil envelope", ErrEnvelopeFormat)
	}

	key, err := decodeHex(env.Key, KeySize, "key")
	if err != nil {
		return "", err
	}
	iv, err := decodeHex(env.IV, IVSize, "iv")
	if err != nil {
		return "", err
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext is not base64", ErrEnvelopeFormat)
	}

	payload, err := decryptCBC(ciphertext, key, iv)
	if err != nil {
		return "", err
	}

	if !strings.HasPrefix(string(payload), passwordMarker) {
		return string(payload), nil
	}
	if password == "" {
		return "", ErrPasswordRequired
	}
	return openPassword(string(payload), password)
}

// IsPasswordProtected reports whether the decrypted outer payload carries the password layer.
// It needs the outer key and never the password.
func IsPasswordProtected(env *Envelope) (bool, error) {
	_, err := defaultCodec.Decrypt(env, "")
	switch {
	case errors.Is(err, ErrPasswordRequired):
		return true, nil
	case err != nil:
		return false, err
	default:
		return false, nil
	}
}

func (c *Codec) sealPassword(plaintext, password string) (string, error) {
	innerIV, err := c.randomBytes(IVSize)
	if err != nil {
		return "", fmt.Errorf("generate password iv: %w", err)
	}

	ciphertext, err := encryptCBC([]byte(plaintext), passwordKey(password), innerIV)
	if err != nil {
		return "", fmt.Errorf("encrypt password layer: %w", err)
	}

	return passwordMarker +
		base64.StdEncoding.EncodeToString(ciphertext) +
		passwordSeparator +
		hex.EncodeToString(innerIV), nil
}

func openPassword(payload, password string) (string, error) {
	parts := strings.Split(strings.TrimPrefix(payload, passwordMarker), passwordSeparator)
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: expected PWD:ciphertext||iv", ErrEnvelopeFormat)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: password ciphertext is not base64", ErrEnvelopeFormat)
	}
	innerIV, err := decodeHex(parts[1], IVSize, "password iv")
	if err != nil {
		return "", err
	}

	plaintext, err := decryptCBC(ciphertext, passwordKey(password), innerIV)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// passwordKey derives the password-layer key. The nil salt is part of the contract.
func passwordKey(password string) []byte {
	return pbkdf2.Key([]byte(password), nil, PBKDF2Iterations, KeySize, sha1.New)
}

func (c *Codec) randomBytes(n int) ([]byte, error) {
	r := c.Rand
	if r == nil {
		r = rand.Reader
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func decodeHex(s string, size int, name string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not hex", ErrEnvelopeFormat, name)
	}
	if len(b) != size {
		return nil, fmt.Errorf("%w: %s must be %d bytes, got %d", ErrEnvelopeFormat, name, size, len(b))
	}
	return b, nil
}

func encryptCBC(plaintext, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

func decryptCBC(ciphertext, key, iv []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not a whole number of blocks", ErrEnvelopeFormat)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnvelopeFormat, err)
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out, aes.BlockSize)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data), len(data)+padLen)
	copy(padded, data)
	for i := 0; i < padLen; i++ {
		padded = append(padded, byte(padLen))
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrDecryption
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, ErrDecryption
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, ErrDecryption
		}
	}
	return data[:len(data)-padLen], nil
}
