package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	secretsUseCase "github.com/allisson/ots/internal/secrets/usecase"
)

// RunCleanExpiredSecrets deletes, or with dryRun counts, secrets past their expiry.
//
// Requirements: Database must be migrated and accessible.
func RunCleanExpiredSecrets(
	ctx context.Context,
	useCase secretsUseCase.SecretUseCase,
	logger *slog.Logger,
	writer io.Writer,
	dryRun bool,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("cleaning expired secrets", slog.Bool("dry_run", dryRun))

	count, err := useCase.CleanupExpired(ctx, dryRun)
	if err != nil {
		return fmt.Errorf("failed to cleanup expired secrets: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, map[string]any{"count": count, "dry_run": dryRun}); err != nil {
			return err
		}
	} else {
		outputCleanExpiredText(writer, count, dryRun)
	}

	logger.Info("cleanup completed",
		slog.Int64("count", count),
		slog.Bool("dry_run", dryRun),
	)

	return nil
}

func outputCleanExpiredText(writer io.Writer, count int64, dryRun bool) {
	if dryRun {
		_, _ = fmt.Fprintf(writer, "Dry-run mode: Would delete %d expired secret(s)\n", count)
		return
	}
	_, _ = fmt.Fprintf(writer, "Successfully deleted %d expired secret(s)\n", count)
}
