// Package service provides secret id generation.
package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// IDLength is the length of a generated id in hex characters.
const IDLength = 48

// ErrInvalidID indicates a string that cannot be a generated secret id.
var ErrInvalidID = errors.New("invalid secret id")

// IDGenerator produces opaque secret ids.
type IDGenerator interface {
	Generate() (string, error)
	Validate(id string) error
}

type idGenerator struct {
	rand io.Reader
}

// NewIDGenerator creates a generator of 48 hex character ids: a UUIDv7 (millisecond
// timestamp prefix, so ids sort by creation time) followed by 8 more random bytes.
// Ids are generated from crypto/rand only and never touch key material.
func NewIDGenerator() IDGenerator {
	return &idGenerator{rand: rand.Reader}
}

func (g *idGenerator) Generate() (string, error) {
	id, err := uuid.NewV7FromReader(g.rand)
	if err != nil {
		return "", fmt.Errorf("failed to generate uuidv7: %w", err)
	}

	suffix := make([]byte, 8)
	if _, err := io.ReadFull(g.rand, suffix); err != nil {
		return "", fmt.Errorf("failed to generate id suffix: %w", err)
	}

	buf := make([]byte, 0, 24)
	buf = append(buf, id[:]...)
	buf = append(buf, suffix...)
	return hex.EncodeToString(buf), nil
}

// Validate checks the id is 48 lowercase hex characters.
func (g *idGenerator) Validate(id string) error {
	if len(id) != IDLength {
		return ErrInvalidID
	}
	for _, c := range id {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return ErrInvalidID
		}
	}
	return nil
}
