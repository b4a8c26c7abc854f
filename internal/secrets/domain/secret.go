// Package domain defines the one-time secret record, its lifecycle types and errors.
//
// A secret is created once, redeemed at most MaxReads times and physically deleted on
// its final read. Expiry is evaluated lazily at redemption time.
package domain

import (
	"encoding/json"
	"time"
)

// KDF is the declarative label describing how the client derived its password key.
// The server stores it but never enforces it.
type KDF string

const (
	// KDFPBKDF2 marks envelopes built with the PBKDF2 password layer or its shape.
	KDFPBKDF2 KDF = "pbkdf2"
	// KDFNone marks envelopes without any client-side key derivation.
	KDFNone KDF = "none"
)

// SupportedKDFs lists the accepted kdf labels.
var SupportedKDFs = []KDF{KDFPBKDF2, KDFNone}

// IsValid reports whether k is one of SupportedKDFs.
func (k KDF) IsValid() bool {
	for _, s := range SupportedKDFs {
		if k == s {
			return true
		}
	}
	return false
}

// KDFParams are opaque client parameters. Iterations and IsPasswordProtected are
// always present; any other keys sent by the client are kept in Extra.
type KDFParams struct {
	Iterations          int
	IsPasswordProtected bool
	Extra               map[string]any
}

// MarshalJSON flattens Extra next to the known keys.
func (p KDFParams) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+2)
	for k, v := range p.Extra {
		out[k] = v
	}
	out["iterations"] = p.Iterations
	out["isPasswordProtected"] = p.IsPasswordProtected
	return json.Marshal(out)
}

// UnmarshalJSON reads the known keys and keeps the rest in Extra.
func (p *KDFParams) UnmarshalJSON(data []byte) error {
	var known struct {
		Iterations          int  `json:"iterations"`
		IsPasswordProtected bool `json:"isPasswordProtected"`
	}
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	delete(all, "iterations")
	delete(all, "isPasswordProtected")

	p.Iterations = known.Iterations
	p.IsPasswordProtected = known.IsPasswordProtected
	p.Extra = nil
	if len(all) > 0 {
		p.Extra = all
	}
	return nil
}

// Secret is a persisted one-time secret. Ciphertext, IV, Salt, AccessPasswordHash and
// Metadata hold plaintext in use cases and field-encrypted values in storage.
type Secret struct {
	ID         string
	Ciphertext string
	IV         string
	Salt       string
	KDF        KDF
	KDFParams  KDFParams
	CreatedAt  time.Time
	// ExpiresAt is nil for records that never expire.
	ExpiresAt      *time.Time
	MaxReads       int
	RemainingReads int
	// AccessPasswordHash is an opaque client value; empty when absent.
	AccessPasswordHash string
	// Metadata is the client metadata as JSON text; empty when absent.
	Metadata string
}

// IsExpired reports whether the secret is past its expiry at now.
func (s *Secret) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}

// IsRedeemable reports whether a read is still allowed at now.
func (s *Secret) IsRedeemable(now time.Time) bool {
	return s.RemainingReads > 0 && !s.IsExpired(now)
}

// CreateSecretInput carries a create request after transport validation.
type CreateSecretInput struct {
	Ciphertext         string
	IV                 string
	Salt               string
	KDF                KDF
	KDFParams          KDFParams
	BurnAfterRead      bool
	MaxReads           int
	ExpiresIn          string
	AccessPasswordHash string
	Metadata           map[string]any
}

// RedeemedSecret is what a recipient gets back. It never contains the client key.
type RedeemedSecret struct {
	Ciphertext string
	IV         string
	Salt       string
	KDF        KDF
	KDFParams  KDFParams
}

// ConsumeResult is the outcome of an atomic redeem transition. Secret is the row as it
// was before the transition; Deleted tells whether the transition removed the row.
type ConsumeResult struct {
	Secret  *Secret
	Deleted bool
}
