package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"user", RoleUser, true},
		{"RegularUser", RoleUser, true},
		{" regular_user ", RoleUser, true},
		{"Admin", RoleAdmin, true},
		{"ADMIN", RoleAdmin, true},
		{"", "", false},
		{"root", "", false},
	}
	for _, tc := range tests {
		got, err := ParseRole(tc.in)
		if !tc.ok {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
		assert.True(t, got.Valid())
	}
	assert.False(t, Role("superuser").Valid())
}

func TestParseTaskEnums(t *testing.T) {
	p, err := ParseTaskPriority("")
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, p)

	p, err = ParseTaskPriority("CRITICAL")
	require.NoError(t, err)
	assert.Equal(t, PriorityCritical, p)

	_, err = ParseTaskPriority("urgent")
	assert.Error(t, err)

	s, err := ParseTaskStatus("in_progress")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, s)

	s, err = ParseTaskStatus("Canceled")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, s)

	_, err = ParseTaskStatus("")
	assert.Error(t, err)
}

func TestRefreshToken_State(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	active := &RefreshToken{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, active.IsActive(now))
	assert.False(t, active.WasRotated())

	atExpiry := &RefreshToken{ExpiresAt: now}
	assert.True(t, atExpiry.IsExpired(now), "expiry is inclusive")
	assert.False(t, atExpiry.IsActive(now))

	revokedAt := now.Add(-time.Minute)
	next := "abc"
	rotated := &RefreshToken{ExpiresAt: now.Add(-time.Hour), RevokedAt: &revokedAt, ReplacedByHash: &next}
	assert.True(t, rotated.IsRevoked())
	assert.True(t, rotated.IsExpired(now))
	assert.False(t, rotated.IsActive(now))
	assert.True(t, rotated.WasRotated())
}

func TestUser_ViewAndEmail(t *testing.T) {
	u := &User{ID: 7, Username: "alice", Email: "alice@x.com", PasswordHash: "secret", Role: RoleAdmin}
	v := u.View()
	assert.Equal(t, 7, v.ID)
	assert.Equal(t, RoleAdmin, v.Role)
	assert.True(t, u.IsAdmin())

	assert.Equal(t, "alice@x.com", NormalizeEmail("  Alice@X.COM "))
}
