package dto

import (
	"fmt"

	secretsDomain "github.com/allisson/ots/internal/secrets/domain"
)

// SecretURLs holds locators for a created secret. The retrieve path carries no key;
// clients append it to the link themselves.
type SecretURLs struct {
	Retrieve string `json:"retrieve"`
}

// CreateSecretResponse is returned by POST /api/v1/ots/.
type CreateSecretResponse struct {
	ID string `json:"id"`
	// ExpiresAt is milliseconds since the epoch, or null for secrets that never expire.
	ExpiresAt      *int64     `json:"expiresAt"`
	RemainingReads int        `json:"remainingReads"`
	URLs           SecretURLs `json:"urls"`
}

// RedeemSecretResponse is returned by GET /api/v1/ots/:id.
type RedeemSecretResponse struct {
	Ciphertext string                  `json:"ciphertext"`
	IV         string                  `json:"iv"`
	Salt       string                  `json:"salt"`
	KDF        string                  `json:"kdf"`
	KDFParams  secretsDomain.KDFParams `json:"kdfParams"`
}

// RetrievePath returns the share path for a secret id.
func RetrievePath(id string) string {
	return fmt.Sprintf("/s/%s", id)
}

// MapSecretToCreateResponse converts a created secret to its API response.
func MapSecretToCreateResponse(secret *secretsDomain.Secret) CreateSecretResponse {
	response := CreateSecretResponse{
		ID:             secret.ID,
		RemainingReads: secret.RemainingReads,
		URLs:           SecretURLs{Retrieve: RetrievePath(secret.ID)},
	}
	if secret.ExpiresAt != nil {
		ms := secret.ExpiresAt.UnixMilli()
		response.ExpiresAt = &ms
	}
	return response
}

// MapRedeemedSecretToResponse converts a redeemed secret to its API response.
func MapRedeemedSecretToResponse(secret *secretsDomain.RedeemedSecret) RedeemSecretResponse {
	return RedeemSecretResponse{
		Ciphertext: secret.Ciphertext,
		IV:         secret.IV,
		Salt:       secret.Salt,
		KDF:        string(secret.KDF),
		KDFParams:  secret.KDFParams,
	}
}
