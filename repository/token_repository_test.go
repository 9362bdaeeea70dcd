package repository

import (
	"context"
	"testing"
	"time"

	"task-manager-api/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenRepo(t *testing.T) (*TokenRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTokenRepository(db), mock
}

func TestHashToken(t *testing.T) {
	h := HashToken("abc")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashToken("abc"))
	assert.NotEqual(t, h, HashToken("abd"))
}

func TestTokenRepository_Save(t *testing.T) {
	repo, mock := newTokenRepo(t)
	exp := time.Now().Add(time.Hour)
	mock.ExpectQuery("INSERT INTO refresh_tokens").
		WithArgs(7, HashToken("raw"), exp, "10.0.0.1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(11, time.Now()))

	tok := &model.RefreshToken{UserID: 7, Token: "raw", ExpiresAt: exp, CreatedByIP: "10.0.0.1"}
	require.NoError(t, repo.Save(context.Background(), tok))
	assert.Equal(t, 11, tok.ID)
	assert.Equal(t, HashToken("raw"), tok.TokenHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepository_FindByToken(t *testing.T) {
	ctx := context.Background()
	cols := []string{"id", "user_id", "token_hash", "expires_at", "created_at", "created_by_ip", "revoked_at", "revoked_by_ip", "replaced_by_hash"}

	t.Run("rotated token", func(t *testing.T) {
		repo, mock := newTokenRepo(t)
		revoked := time.Now()
		mock.ExpectQuery("FROM refresh_tokens WHERE token_hash").
			WithArgs(HashToken("raw")).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow(1, 7, HashToken("raw"), time.Now().Add(time.Hour), time.Now(), "10.0.0.1", revoked, "10.0.0.2", "nexthash"))

		tok, err := repo.FindByToken(ctx, "raw")
		require.NoError(t, err)
		assert.True(t, tok.IsRevoked())
		assert.True(t, tok.WasRotated())
		assert.Equal(t, "nexthash", *tok.ReplacedByHash)
		assert.Equal(t, "10.0.0.2", tok.RevokedByIP)
	})

	t.Run("active token", func(t *testing.T) {
		repo, mock := newTokenRepo(t)
		mock.ExpectQuery("FROM refresh_tokens WHERE token_hash").
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow(1, 7, HashToken("raw"), time.Now().Add(time.Hour), time.Now(), "", nil, nil, nil))

		tok, err := repo.FindByToken(ctx, "raw")
		require.NoError(t, err)
		assert.True(t, tok.IsActive(time.Now()))
		assert.Nil(t, tok.ReplacedByHash)
	})

	t.Run("unknown token", func(t *testing.T) {
		repo, mock := newTokenRepo(t)
		mock.ExpectQuery("FROM refresh_tokens WHERE token_hash").
			WillReturnRows(sqlmock.NewRows(cols))

		_, err := repo.FindByToken(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestTokenRepository_Revoke(t *testing.T) {
	ctx := context.Background()

	t.Run("active", func(t *testing.T) {
		repo, mock := newTokenRepo(t)
		mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
			WithArgs("10.0.0.1", HashToken("raw")).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Revoke(ctx, "raw", "10.0.0.1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already revoked", func(t *testing.T) {
		repo, mock := newTokenRepo(t)
		mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").WithArgs(HashToken("raw")).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		assert.NoError(t, repo.Revoke(ctx, "raw", "10.0.0.1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown", func(t *testing.T) {
		repo, mock := newTokenRepo(t)
		mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		assert.ErrorIs(t, repo.Revoke(ctx, "nope", "10.0.0.1"), ErrNotFound)
	})
}

func TestTokenRepository_Rotate(t *testing.T) {
	ctx := context.Background()
	exp := time.Now().Add(24 * time.Hour)

	t.Run("success", func(t *testing.T) {
		repo, mock := newTokenRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
			WithArgs("10.0.0.1", HashToken("new"), HashToken("old")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO refresh_tokens").
			WithArgs(7, HashToken("new"), exp, "10.0.0.1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(2, time.Now()))
		mock.ExpectCommit()

		next := &model.RefreshToken{UserID: 7, Token: "new", ExpiresAt: exp, CreatedByIP: "10.0.0.1"}
		require.NoError(t, repo.Rotate(ctx, "old", next, "10.0.0.1"))
		assert.Equal(t, 2, next.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost race or inactive", func(t *testing.T) {
		repo, mock := newTokenRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		next := &model.RefreshToken{UserID: 7, Token: "new", ExpiresAt: exp}
		assert.ErrorIs(t, repo.Rotate(ctx, "old", next, "10.0.0.1"), ErrTokenNotActive)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTokenRepository_BulkRevocation(t *testing.T) {
	ctx := context.Background()
	repo, mock := newTokenRepo(t)

	mock.ExpectExec("WITH RECURSIVE chain").
		WithArgs(HashToken("raw"), "10.0.0.9").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WithArgs("10.0.0.9", 7).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.RevokeChain(ctx, "raw", "10.0.0.9")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	n, err = repo.RevokeAllForUser(ctx, 7, "10.0.0.9")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
