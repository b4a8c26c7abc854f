package commands

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	"github.com/allisson/ots/internal/fieldcrypt"
)

// RunCreateFieldKey generates a 32-byte FIELD_ENCRYPTION_KEY and prints it as env lines.
// With a KMS key URI the key is wrapped by the keeper and the printed value is the
// KMS ciphertext. Key material is zeroed after encoding.
func RunCreateFieldKey(
	ctx context.Context,
	kmsService fieldcrypt.KMSService,
	logger *slog.Logger,
	writer io.Writer,
	kmsProvider, kmsKeyURI string,
) error {
	if (kmsProvider == "") != (kmsKeyURI == "") {
		return fmt.Errorf(
			"--kms-provider and --kms-key-uri must be set together\n\nFor local development, use:\n  --kms-provider=localsecrets --kms-key-uri=\"base64key://<32-byte-base64-key>\"",
		)
	}

	key, err := fieldcrypt.GenerateMasterKey()
	if err != nil {
		return err
	}
	defer fieldcrypt.Zero(key)

	if kmsKeyURI == "" {
		logger.Info("generated raw field encryption key")
		_, _ = fmt.Fprintln(writer, "# Field Encryption Key Configuration")
		_, _ = fmt.Fprintln(writer, "# Copy this variable to your .env file or secrets manager")
		_, _ = fmt.Fprintln(writer)
		_, err = fmt.Fprintf(writer, "FIELD_ENCRYPTION_KEY=\"%s\"\n", base64.StdEncoding.EncodeToString(key))
		return err
	}

	keeper, err := kmsService.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			logger.Warn("failed to close KMS keeper", slog.Any("error", closeErr))
		}
	}()

	ciphertext, err := keeper.Encrypt(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to encrypt field encryption key with KMS: %w", err)
	}

	logger.Info("generated KMS wrapped field encryption key", slog.String("kms_provider", kmsProvider))

	_, _ = fmt.Fprintln(writer, "# Field Encryption Key Configuration (KMS Mode)")
	_, _ = fmt.Fprintln(writer, "# Copy these variables to your .env file or secrets manager")
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintf(writer, "KMS_PROVIDER=\"%s\"\n", kmsProvider)
	_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=\"%s\"\n", kmsKeyURI)
	_, err = fmt.Fprintf(writer, "FIELD_ENCRYPTION_KEY=\"%s\"\n", base64.StdEncoding.EncodeToString(ciphertext))
	return err
}
