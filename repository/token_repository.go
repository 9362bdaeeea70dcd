// file: repository/token_repository.go

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"task-manager-api/logger"
	"task-manager-api/model"

	"github.com/sirupsen/logrus"
)

// ITokenRepository defines the contract for refresh token persistence.
// Tokens are addressed by their raw value; only the hash is stored.
type ITokenRepository interface {
	Save(ctx context.Context, token *model.RefreshToken) error
	FindByToken(ctx context.Context, raw string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, raw, ip string) error
	Rotate(ctx context.Context, oldRaw string, next *model.RefreshToken, ip string) error
	RevokeChain(ctx context.Context, raw, ip string) (int64, error)
	RevokeAllForUser(ctx context.Context, userID int, ip string) (int64, error)
}

// TokenRepository implements ITokenRepository on Postgres.
type TokenRepository struct {
	DB *sql.DB
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{DB: db}
}

const insertTokenQuery = `INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_by_ip) VALUES ($1, $2, $3, $4) RETURNING id, created_at`

// Save inserts a new refresh token record. TokenHash is derived from Token when unset.
func (r *TokenRepository) Save(ctx context.Context, token *model.RefreshToken) error {
	if token.TokenHash == "" {
		token.TokenHash = HashToken(token.Token)
	}
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":    token.UserID,
		"expires_at": token.ExpiresAt,
	})
	log.Info("Executing query to create a new refresh token")

	err := r.DB.QueryRowContext(ctx, insertTokenQuery, token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedByIP).
		Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create refresh token query")
		return err
	}
	return nil
}

// FindByToken retrieves a refresh token by its raw value, whatever its state.
func (r *TokenRepository) FindByToken(ctx context.Context, raw string) (*model.RefreshToken, error) {
	query := `SELECT id, user_id, token_hash, expires_at, created_at, created_by_ip, revoked_at, revoked_by_ip, replaced_by_hash
		FROM refresh_tokens WHERE token_hash = $1`

	token := &model.RefreshToken{}
	var (
		revokedAt   sql.NullTime
		revokedByIP sql.NullString
		replacedBy  sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, query, HashToken(raw)).Scan(
		&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt, &token.CreatedAt,
		&token.CreatedByIP, &revokedAt, &revokedByIP, &replacedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		logger.Log.WithError(err).Error("Failed to execute get refresh token query")
		return nil, err
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		token.RevokedAt = &t
	}
	token.RevokedByIP = revokedByIP.String
	if replacedBy.Valid {
		h := replacedBy.String
		token.ReplacedByHash = &h
	}
	return token, nil
}

// Revoke marks a token revoked. Revoking an already revoked token is a no-op.
func (r *TokenRepository) Revoke(ctx context.Context, raw, ip string) error {
	hash := HashToken(raw)
	log := logger.Log.WithField("revoked_by_ip", ip)
	log.Info("Executing query to revoke a refresh token")

	res, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = NOW(), revoked_by_ip = $1 WHERE token_hash = $2 AND revoked_at IS NULL`,
		ip, hash)
	if err != nil {
		log.WithError(err).Error("Failed to execute revoke refresh token query")
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM refresh_tokens WHERE token_hash = $1)`, hash).Scan(&exists); err != nil {
		log.WithError(err).Error("Failed to check refresh token existence")
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

// Rotate revokes oldRaw, links it to next and inserts next in one transaction.
// The conditional update makes rotation single-winner: a caller that loses the
// race, or presents a revoked or expired token, gets ErrTokenNotActive.
func (r *TokenRepository) Rotate(ctx context.Context, oldRaw string, next *model.RefreshToken, ip string) (err error) {
	if next.TokenHash == "" {
		next.TokenHash = HashToken(next.Token)
	}
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":       next.UserID,
		"revoked_by_ip": ip,
	})
	log.Info("Executing transaction to rotate a refresh token")

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		log.WithError(err).Error("Failed to begin rotate transaction")
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = NOW(), revoked_by_ip = $1, replaced_by_hash = $2
		WHERE token_hash = $3 AND revoked_at IS NULL AND expires_at > NOW()`,
		ip, next.TokenHash, HashToken(oldRaw))
	if err != nil {
		log.WithError(err).Error("Failed to revoke the presented refresh token")
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		log.Info("Presented refresh token is no longer active")
		return ErrTokenNotActive
	}

	err = tx.QueryRowContext(ctx, insertTokenQuery, next.UserID, next.TokenHash, next.ExpiresAt, next.CreatedByIP).
		Scan(&next.ID, &next.CreatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to insert the replacement refresh token")
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit rotate: %w", err)
	}
	return nil
}

// RevokeChain revokes the token and every token minted from it by rotation.
func (r *TokenRepository) RevokeChain(ctx context.Context, raw, ip string) (int64, error) {
	log := logger.Log.WithField("revoked_by_ip", ip)
	log.Warn("Executing query to revoke a refresh token chain")

	query := `WITH RECURSIVE chain AS (
			SELECT token_hash, replaced_by_hash FROM refresh_tokens WHERE token_hash = $1
			UNION
			SELECT t.token_hash, t.replaced_by_hash FROM refresh_tokens t JOIN chain c ON t.token_hash = c.replaced_by_hash
		)
		UPDATE refresh_tokens SET revoked_at = NOW(), revoked_by_ip = $2
		WHERE token_hash IN (SELECT token_hash FROM chain) AND revoked_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, HashToken(raw), ip)
	if err != nil {
		log.WithError(err).Error("Failed to execute revoke chain query")
		return 0, err
	}
	return res.RowsAffected()
}

// RevokeAllForUser revokes every active refresh token of a user.
func (r *TokenRepository) RevokeAllForUser(ctx context.Context, userID int, ip string) (int64, error) {
	log := logger.Log.WithField("user_id", userID)
	log.Info("Executing query to revoke all refresh tokens for a user")

	res, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = NOW(), revoked_by_ip = $1 WHERE user_id = $2 AND revoked_at IS NULL`,
		ip, userID)
	if err != nil {
		log.WithError(err).Error("Failed to execute revoke all refresh tokens query")
		return 0, err
	}
	return res.RowsAffected()
}
