// Package validation provides custom validation rules for request DTOs.
package validation

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/ots/internal/errors"
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// Base64 validates that a string is valid standard base64-encoded data.
var Base64 = validation.By(func(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_base64_type", "must be a string")
	}
	if s == "" {
		return nil // Let Required handle empty strings
	}
	if _, err := base64.StdEncoding.DecodeString(s); err != nil {
		return validation.NewError("validation_base64", "must be valid base64-encoded data")
	}
	return nil
})

// Hex validates that a string is an even-length hexadecimal encoding.
var Hex = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := hex.DecodeString(s)
		return err == nil
	},
	validation.NewError("validation_hex", "must be valid hex-encoded data"),
)

// MaxJSONSize validates that a value marshals to at most n bytes of JSON.
func MaxJSONSize(n int) validation.Rule {
	return validation.By(func(value interface{}) error {
		raw, err := json.Marshal(value)
		if err != nil {
			return validation.NewError("validation_json", "must be JSON encodable")
		}
		if len(raw) > n {
			return validation.NewError("validation_json_size", fmt.Sprintf("must not exceed %d bytes of JSON", n))
		}
		return nil
	})
}
