package envelope

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1" //nolint:gosec
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"
)

// sequenceReader returns 0x00, 0x01, 0x02... so envelopes are reproducible.
type sequenceReader struct {
	next byte
}

func (r *sequenceReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.next
		r.next++
	}
	return len(p), nil
}

func deterministicCodec() *Codec {
	return &Codec{Rand: &sequenceReader{}}
}

func TestEncryptDecrypt(t *testing.T) {
	tests := []struct {
		name      string
		plaintext string
		password  string
	}{
		{name: "no password", plaintext: "hunter2"},
		{name: "with password", plaintext: "db creds: admin/admin", password: "correct horse"},
		{name: "empty plaintext", plaintext: ""},
		{name: "block sized plaintext", plaintext: strings.Repeat("a", aes.BlockSize)},
		{name: "unicode", plaintext: "sécret 🔑", password: "pässwörd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Encrypt(tt.plaintext, tt.password)
			require.NoError(t, err)

			assert.Len(t, env.Key, KeySize*2)
			assert.Len(t, env.IV, IVSize*2)
			assert.Len(t, env.Salt, SaltSize*2)

			got, err := Decrypt(env, tt.password)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, got)
		})
	}
}

func TestEncrypt_FreshRandomness(t *testing.T) {
	a, err := Encrypt("same", "")
	require.NoError(t, err)
	b, err := Encrypt("same", "")
	require.NoError(t, err)

	assert.NotEqual(t, a.Key, b.Key)
	assert.NotEqual(t, a.IV, b.IV)
	assert.NotEqual(t, a.Ciphertext, b.Ciphertext)
}

func TestEncrypt_Deterministic(t *testing.T) {
	a, err := deterministicCodec().Encrypt("hello", "pw")
	require.NoError(t, err)
	b, err := deterministicCodec().Encrypt("hello", "pw")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f", a.Key)
	assert.Equal(t, "202122232425262728292a2b2c2d2e2f", a.IV)
	assert.Equal(t, "303132333435363738393a3b3c3d3e3f", a.Salt)
}

func TestEncrypt_RandomnessFailure(t *testing.T) {
	codec := &Codec{Rand: bytes.NewReader([]byte{1, 2, 3})}

	_, err := codec.Encrypt("x", "")
	assert.Error(t, err)
}

// manualDecrypt opens an envelope with crypto primitives only, following the wire layout.
func manualDecrypt(t *testing.T, env *Envelope, password string) string {
	t.Helper()

	key, err := hex.DecodeString(env.Key)
	require.NoError(t, err)
	iv, err := hex.DecodeString(env.IV)
	require.NoError(t, err)
	ct, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	require.NoError(t, err)

	payload := cbcOpen(t, key, iv, ct)
	if !strings.HasPrefix(payload, "PWD:") {
		return payload
	}

	parts := strings.SplitN(payload[len("PWD:"):], "||", 2)
	require.Len(t, parts, 2)
	innerCT, err := base64.StdEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	innerIV, err := hex.DecodeString(parts[1])
	require.NoError(t, err)

	innerKey := pbkdf2.Key([]byte(password), nil, 10000, 32, sha1.New)
	return cbcOpen(t, innerKey, innerIV, innerCT)
}

func cbcOpen(t *testing.T, key, iv, ct []byte) string {
	t.Helper()

	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	out := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ct)
	pad := int(out[len(out)-1])
	require.True(t, pad >= 1 && pad <= aes.BlockSize)
	return string(out[:len(out)-pad])
}

func TestEncrypt_ManualDecoderInterop(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		env, err := deterministicCodec().Encrypt("interop plain", "")
		require.NoError(t, err)
		assert.Equal(t, "interop plain", manualDecrypt(t, env, ""))
	})

	t.Run("password", func(t *testing.T) {
		env, err := deterministicCodec().Encrypt("interop pw", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, "interop pw", manualDecrypt(t, env, "s3cret"))
	})
}

func TestDecrypt_ManuallyBuiltEnvelope(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	iv := bytes.Repeat([]byte{0x24}, 16)
	innerIV := bytes.Repeat([]byte{0x11}, 16)

	innerKey := pbkdf2.Key([]byte("pw"), nil, 10000, 32, sha1.New)
	inner := cbcSeal(t, innerKey, innerIV, []byte("from another client"))
	payload := "PWD:" + base64.StdEncoding.EncodeToString(inner) + "||" + hex.EncodeToString(innerIV)
	outer := cbcSeal(t, key, iv, []byte(payload))

	env := &Envelope{
		Ciphertext: base64.StdEncoding.EncodeToString(outer),
		IV:         hex.EncodeToString(iv),
		Salt:       strings.Repeat("00", 16),
		Key:        hex.EncodeToString(key),
	}

	got, err := Decrypt(env, "pw")
	require.NoError(t, err)
	assert.Equal(t, "from another client", got)
}

func cbcSeal(t *testing.T, key, iv, plaintext []byte) []byte {
	t.Helper()

	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	pad := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := append(append([]byte{}, plaintext...), bytes.Repeat([]byte{byte(pad)}, pad)...)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out
}

func TestDecrypt_PasswordRequired(t *testing.T) {
	env, err := Encrypt("guarded", "pw")
	require.NoError(t, err)

	_, err = Decrypt(env, "")
	assert.ErrorIs(t, err, ErrPasswordRequired)

	protected, err := IsPasswordProtected(env)
	require.NoError(t, err)
	assert.True(t, protected)
}

func TestDecrypt_PasswordIgnoredWithoutLayer(t *testing.T) {
	env, err := Encrypt("open", "")
	require.NoError(t, err)

	got, err := Decrypt(env, "unused")
	require.NoError(t, err)
	assert.Equal(t, "open", got)

	protected, err := IsPasswordProtected(env)
	require.NoError(t, err)
	assert.False(t, protected)
}

func TestDecrypt_WrongKey(t *testing.T) {
	env, err := deterministicCodec().Encrypt("top secret", "")
	require.NoError(t, err)

	wrong := *env
	wrong.Key = strings.Repeat("ff", KeySize)

	got, err := Decrypt(&wrong, "")
	if err == nil {
		assert.NotEqual(t, "top secret", got)
		return
	}
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestDecrypt_MalformedEnvelope(t *testing.T) {
	valid, err := Encrypt("x", "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(e *Envelope)
	}{
		{name: "key not hex", mutate: func(e *Envelope) { e.Key = "zz" }},
		{name: "short key", mutate: func(e *Envelope) { e.Key = "0011" }},
		{name: "iv not hex", mutate: func(e *Envelope) { e.IV = "not-hex" }},
		{name: "short iv", mutate: func(e *Envelope) { e.IV = "00" }},
		{name: "ciphertext not base64", mutate: func(e *Envelope) { e.Ciphertext = "!!!" }},
		{name: "ciphertext not block multiple", mutate: func(e *Envelope) {
			e.Ciphertext = base64.StdEncoding.EncodeToString([]byte("short"))
		}},
		{name: "empty ciphertext", mutate: func(e *Envelope) { e.Ciphertext = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := *valid
			tt.mutate(&env)

			_, err := Decrypt(&env, "")
			assert.ErrorIs(t, err, ErrEnvelopeFormat)
		})
	}

	t.Run("nil envelope", func(t *testing.T) {
		_, err := Decrypt(nil, "")
		assert.ErrorIs(t, err, ErrEnvelopeFormat)
	})
}

func TestDecrypt_MalformedPasswordPayload(t *testing.T) {
	key := bytes.Repeat([]byte{0x01}, 32)
	iv := bytes.Repeat([]byte{0x02}, 16)

	payloads := []string{
		"PWD:no-separator",
		"PWD:%%%||" + strings.Repeat("00", 16),
		"PWD:" + base64.StdEncoding.EncodeToString(make([]byte, 16)) + "||zz",
		"PWD:a||b||c",
	}

	for i, payload := range payloads {
		t.Run(fmt.Sprintf("payload %d", i), func(t *testing.T) {
			env := &Envelope{
				Ciphertext: base64.StdEncoding.EncodeToString(cbcSeal(t, key, iv, []byte(payload))),
				IV:         hex.EncodeToString(iv),
				Salt:       strings.Repeat("00", 16),
				Key:        hex.EncodeToString(key),
			}

			_, err := Decrypt(env, "pw")
			assert.ErrorIs(t, err, ErrEnvelopeFormat)
		})
	}
}

// The password layer is unauthenticated: most wrong passwords fail the padding
// check, some decrypt silently into garbage.
func TestDecrypt_WrongPasswordWeakness(t *testing.T) {
	if testing.Short() {
		t.Skip("derives many PBKDF2 keys")
	}

	const plaintext = "the real secret"
	env, err := deterministicCodec().Encrypt(plaintext, "right")
	require.NoError(t, err)

	var rejected, silent int
	for i := 0; i < 4096 && silent == 0; i++ {
		got, err := Decrypt(env, fmt.Sprintf("wrong-%d", i))
		if err != nil {
			require.ErrorIs(t, err, ErrDecryption)
			rejected++
			continue
		}
		assert.NotEqual(t, plaintext, got)
		silent++
	}

	assert.Positive(t, rejected)
	assert.Equal(t, 1, silent, "expected a wrong password that passes the padding check")
}

func TestPKCS7(t *testing.T) {
	for n := 0; n <= 2*aes.BlockSize; n++ {
		data := bytes.Repeat([]byte{0xab}, n)
		padded := pkcs7Pad(data, aes.BlockSize)
		assert.Zero(t, len(padded)%aes.BlockSize)
		assert.Greater(t, len(padded), n)

		unpadded, err := pkcs7Unpad(padded, aes.BlockSize)
		require.NoError(t, err)
		assert.Equal(t, data, unpadded)
	}

	_, err := pkcs7Unpad([]byte{1, 2, 3, 0}, aes.BlockSize)
	assert.ErrorIs(t, err, ErrDecryption)
	_, err = pkcs7Unpad([]byte{1, 2, 2, 3}, aes.BlockSize)
	assert.ErrorIs(t, err, ErrDecryption)
}
