// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"errors"

	validation "github.com/jellydator/validation"

	secretsDomain "github.com/allisson/ots/internal/secrets/domain"
	customValidation "github.com/allisson/ots/internal/validation"
)

const (
	// MaxCiphertextLength bounds the base64 ciphertext accepted on create.
	MaxCiphertextLength = 100000
	// MaxReadsUpperBound is the largest maxReads a request may carry.
	MaxReadsUpperBound = 100
	// MaxAccessPasswordHashLength bounds the opaque access password hash.
	MaxAccessPasswordHashLength = 512
	// MaxClientMetaSize bounds the JSON size of clientMeta.
	MaxClientMetaSize = 8192
)

// CreateSecretRequest contains the envelope fields and lifecycle options for a new secret.
// The decryption key is never part of the request.
type CreateSecretRequest struct {
	Ciphertext         string                   `json:"ciphertext"`
	IV                 string                   `json:"iv"`
	Salt               string                   `json:"salt"`
	KDF                string                   `json:"kdf"`
	KDFParams          *secretsDomain.KDFParams `json:"kdfParams"`
	BurnAfterRead      bool                     `json:"burnAfterRead"`
	MaxReads           int                      `json:"maxReads"`
	ExpiresIn          string                   `json:"expiresIn"`
	AccessPasswordHash string                   `json:"accessPasswordHash"`
	ClientMeta         map[string]any           `json:"clientMeta"`
}

// Validate checks if the create secret request is valid.
func (r *CreateSecretRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Ciphertext,
			validation.Required,
			validation.Length(1, MaxCiphertextLength),
			customValidation.Base64,
		),
		validation.Field(&r.IV,
			validation.Required,
			validation.Length(8, 256),
			customValidation.Hex,
		),
		validation.Field(&r.Salt,
			validation.Required,
			validation.Length(8, 256),
			customValidation.Hex,
		),
		validation.Field(&r.KDF,
			validation.Required,
			validation.In(kdfLabels()...),
		),
		validation.Field(&r.KDFParams,
			validation.NotNil,
			validation.By(validateKDFParams),
		),
		// Zero means "not set" and defaults to a single read.
		validation.Field(&r.MaxReads,
			validation.When(!r.BurnAfterRead,
				validation.Min(1),
				validation.Max(MaxReadsUpperBound),
			),
		),
		validation.Field(&r.ExpiresIn, validation.Length(0, 64)),
		validation.Field(&r.AccessPasswordHash, validation.Length(0, MaxAccessPasswordHashLength)),
		validation.Field(&r.ClientMeta, customValidation.MaxJSONSize(MaxClientMetaSize)),
	)
}

// ToInput converts a validated request into the use case input.
func (r *CreateSecretRequest) ToInput() *secretsDomain.CreateSecretInput {
	input := &secretsDomain.CreateSecretInput{
		Ciphertext:         r.Ciphertext,
		IV:                 r.IV,
		Salt:               r.Salt,
		KDF:                secretsDomain.KDF(r.KDF),
		BurnAfterRead:      r.BurnAfterRead,
		MaxReads:           r.MaxReads,
		ExpiresIn:          r.ExpiresIn,
		AccessPasswordHash: r.AccessPasswordHash,
		Metadata:           r.ClientMeta,
	}
	if r.KDFParams != nil {
		input.KDFParams = *r.KDFParams
	}
	return input
}

func validateKDFParams(value interface{}) error {
	params, ok := value.(*secretsDomain.KDFParams)
	if !ok || params == nil {
		return nil
	}
	if params.Iterations < 0 {
		return errors.New("iterations must be no less than 0")
	}
	return nil
}

func kdfLabels() []interface{} {
	labels := make([]interface{}, 0, len(secretsDomain.SupportedKDFs))
	for _, kdf := range secretsDomain.SupportedKDFs {
		labels = append(labels, string(kdf))
	}
	return labels
}
