package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/allisson/ots/internal/fieldcrypt"
)

// KMSService returns the KMS service used to unwrap the field encryption key.
func (c *Container) KMSService() fieldcrypt.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = fieldcrypt.NewKMSService()
	})
	return c.kmsService
}

// FieldCipher returns the at-rest field cipher built from FIELD_ENCRYPTION_KEY.
func (c *Container) FieldCipher() (*fieldcrypt.FieldCipher, error) {
	var err error
	c.fieldCipherInit.Do(func() {
		c.fieldCipher, err = c.initFieldCipher()
		if err != nil {
			c.setInitError("fieldCipher", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("fieldCipher"); storedErr != nil {
		return nil, storedErr
	}
	return c.fieldCipher, nil
}

// initFieldCipher loads the master key once; it is immutable for the process lifetime.
func (c *Container) initFieldCipher() (*fieldcrypt.FieldCipher, error) {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	masterKey, err := fieldcrypt.LoadMasterKey(
		ctx,
		c.config.FieldEncryptionKey,
		c.KMSService(),
		c.config.KMSKeyURI,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load field encryption key: %w", err)
	}

	if c.config.KMSKeyURI != "" {
		c.Logger().Info("field encryption key unwrapped with KMS",
			slog.String("kms_provider", c.config.KMSProvider))
	}

	return fieldcrypt.NewFieldCipher(masterKey)
}
