package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/kalend/internal/db"
	"github.com/alexanderramin/kalend/internal/domain"
)

// SQLiteCredentialRepo implements CredentialRepo using a SQLite database.
type SQLiteCredentialRepo struct {
	db db.DBTX
}

// NewSQLiteCredentialRepo creates a new SQLiteCredentialRepo.
func NewSQLiteCredentialRepo(conn db.DBTX) *SQLiteCredentialRepo {
	return &SQLiteCredentialRepo{db: conn}
}

func (r *SQLiteCredentialRepo) Get(ctx context.Context, userID, provider string) (*domain.Credential, error) {
	query := `SELECT user_id, provider, access_token, refresh_token, expires_at, updated_at
		FROM credentials WHERE user_id = ? AND provider = ?`
	row := r.db.QueryRowContext(ctx, query, userID, provider)

	var (
		c         domain.Credential
		expiresAt sql.NullString
		updatedAt string
	)
	err := row.Scan(&c.UserID, &c.Provider, &c.AccessToken, &c.RefreshToken, &expiresAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("credential %s/%s: %w", userID, provider, ErrNotFound)
		}
		return nil, fmt.Errorf("scanning credential: %w", err)
	}
	c.ExpiresAt = parseNullableTime(expiresAt, time.RFC3339Nano)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}

func (r *SQLiteCredentialRepo) Upsert(ctx context.Context, c *domain.Credential) error {
	if c.UserID == "" || c.Provider == "" {
		return errors.New("upserting credential: user id and provider are required")
	}
	now := nowUTC()
	query := `INSERT INTO credentials (user_id, provider, access_token, refresh_token, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, provider) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = CASE WHEN excluded.refresh_token = '' THEN credentials.refresh_token ELSE excluded.refresh_token END,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		c.UserID,
		c.Provider,
		c.AccessToken,
		c.RefreshToken,
		nullableTimeToString(c.ExpiresAt, time.RFC3339Nano),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("upserting credential: %w", err)
	}
	return nil
}

func (r *SQLiteCredentialRepo) UpdateTokens(ctx context.Context, userID, provider, accessToken, refreshToken string, expiresAt *time.Time) error {
	query := `UPDATE credentials SET
			access_token = ?,
			refresh_token = CASE WHEN ? = '' THEN refresh_token ELSE ? END,
			expires_at = ?,
			updated_at = ?
		WHERE user_id = ? AND provider = ?`
	res, err := r.db.ExecContext(ctx, query,
		accessToken,
		refreshToken, refreshToken,
		nullableTimeToString(expiresAt, time.RFC3339Nano),
		nowUTC(),
		userID, provider,
	)
	if err != nil {
		return fmt.Errorf("updating credential tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating credential tokens: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("credential %s/%s: %w", userID, provider, ErrNotFound)
	}
	return nil
}
