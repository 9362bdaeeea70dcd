package repository

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/lib/pq"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	// ErrLastAdmin is returned when a delete would leave the system without an administrator.
	ErrLastAdmin = errors.New("cannot delete the last administrator")
	// ErrTokenNotActive is returned by Rotate when the presented token is already revoked or expired.
	ErrTokenNotActive = errors.New("refresh token is not active")
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// HashToken returns the lookup key stored for a raw refresh token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
