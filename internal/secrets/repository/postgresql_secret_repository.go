package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/allisson/ots/internal/database"
	apperrors "github.com/allisson/ots/internal/errors"
	secretsDomain "github.com/allisson/ots/internal/secrets/domain"
)

// PostgreSQLSecretRepository implements Secret persistence for PostgreSQL databases.
type PostgreSQLSecretRepository struct {
	db        *sql.DB
	txManager database.TxManager
}

// NewPostgreSQLSecretRepository creates a new PostgreSQL Secret repository instance.
func NewPostgreSQLSecretRepository(db *sql.DB) *PostgreSQLSecretRepository {
	return &PostgreSQLSecretRepository{db: db, txManager: database.NewTxManager(db)}
}

// Create inserts a new secret.
func (p *PostgreSQLSecretRepository) Create(ctx context.Context, secret *secretsDomain.Secret) error {
	querier := database.GetTx(ctx, p.db)

	args, err := createArgs(secret)
	if err != nil {
		return err
	}

	query := `INSERT INTO secrets (` + secretColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	if _, err := querier.ExecContext(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return secretsDomain.ErrSecretAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create secret")
	}
	return nil
}

// Exists reports whether a row with id is stored.
func (p *PostgreSQLSecretRepository) Exists(ctx context.Context, id string) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	var exists bool
	err := querier.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM secrets WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check secret existence")
	}
	return exists, nil
}

// Consume atomically spends one read. The row is locked with FOR UPDATE, then deleted
// when this is its last read or decremented with a compare-and-swap on remaining_reads.
// Absent, expired and exhausted rows return ErrSecretNotFound.
func (p *PostgreSQLSecretRepository) Consume(
	ctx context.Context,
	id string,
	now time.Time,
) (*secretsDomain.ConsumeResult, error) {
	var result *secretsDomain.ConsumeResult

	err := p.txManager.WithTx(ctx, func(ctx context.Context) error {
		querier := database.GetTx(ctx, p.db)

		query := `SELECT ` + secretColumns + ` FROM secrets
				  WHERE id = $1 AND remaining_reads > 0 AND (expires_at IS NULL OR expires_at > $2)
				  FOR UPDATE`

		secret, err := scanSecret(querier.QueryRowContext(ctx, query, id, now))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return secretsDomain.ErrSecretNotFound
			}
			return apperrors.Wrap(err, "failed to lock secret")
		}

		var res sql.Result
		deleted := secret.RemainingReads <= 1
		if deleted {
			res, err = querier.ExecContext(ctx, `DELETE FROM secrets WHERE id = $1`, id)
		} else {
			res, err = querier.ExecContext(
				ctx,
				`UPDATE secrets SET remaining_reads = remaining_reads - 1
				 WHERE id = $1 AND remaining_reads = $2`,
				id,
				secret.RemainingReads,
			)
		}
		if err != nil {
			return apperrors.Wrap(err, "failed to consume secret")
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return apperrors.Wrap(err, "failed to get rows affected")
		}
		if affected != 1 {
			return secretsDomain.ErrSecretNotFound
		}

		result = &secretsDomain.ConsumeResult{Secret: secret, Deleted: deleted}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the row and reports whether one existed.
func (p *PostgreSQLSecretRepository) Delete(ctx context.Context, id string) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	res, err := querier.ExecContext(ctx, `DELETE FROM secrets WHERE id = $1`, id)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to delete secret")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get rows affected")
	}
	return affected > 0, nil
}

// DeleteExpired removes rows whose expiry is at or before now. With dryRun it only counts them.
func (p *PostgreSQLSecretRepository) DeleteExpired(ctx context.Context, now time.Time, dryRun bool) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	if dryRun {
		var count int64
		err := querier.QueryRowContext(
			ctx,
			`SELECT COUNT(*) FROM secrets WHERE expires_at IS NOT NULL AND expires_at <= $1`,
			now,
		).Scan(&count)
		if err != nil {
			return 0, apperrors.Wrap(err, "failed to count expired secrets")
		}
		return count, nil
	}

	res, err := querier.ExecContext(
		ctx,
		`DELETE FROM secrets WHERE expires_at IS NOT NULL AND expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired secrets")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get rows affected")
	}
	return affected, nil
}
