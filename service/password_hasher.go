package service

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"task-manager-api/config"
	"task-manager-api/logger"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher turns a password into a storable digest and checks a
// candidate against it. Verify never returns an error; a malformed hash is a mismatch.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// NewPasswordHasher selects the implementation named by cfg.Algorithm.
func NewPasswordHasher(cfg config.PasswordConfig) (PasswordHasher, error) {
	switch cfg.Algorithm {
	case "", "argon2id":
		return NewArgon2idHasher(cfg.Argon2MemoryKiB, cfg.Argon2Iterations, cfg.Argon2Parallelism), nil
	case "bcrypt":
		return NewBcryptHasher(cfg.BcryptCost), nil
	case "sha256":
		return SHA256Hasher{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown password algorithm %q", ErrConfiguration, cfg.Algorithm)
	}
}

const (
	argon2SaltLen = 16
	argon2KeyLen  = 32
)

// Argon2idHasher produces PHC-style strings:
// $argon2id$v=19$m=65536,t=3,p=2$<salt>$<key>
type Argon2idHasher struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
}

func NewArgon2idHasher(memoryKiB, iterations uint32, parallelism uint8) *Argon2idHasher {
	if memoryKiB == 0 {
		memoryKiB = 64 * 1024
	}
	if iterations == 0 {
		iterations = 3
	}
	if parallelism == 0 {
		parallelism = 2
	}
	return &Argon2idHasher{MemoryKiB: memoryKiB, Iterations: iterations, Parallelism: parallelism}
}

func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		logger.Log.WithError(err).Error("Failed to generate password salt")
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, h.Iterations, h.MemoryKiB, h.Parallelism, argon2KeyLen)
	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.MemoryKiB, h.Iterations, h.Parallelism, b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// Verify reads the parameters from the encoded hash, so changing the
// configured cost does not invalidate existing passwords.
func (h *Argon2idHasher) Verify(password, encoded string) bool {
	if password == "" {
		return false
	}
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}
	var (
		memory, iterations uint32
		parallelism        uint8
	)
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false
	}
	// argon2.IDKey panics on zero parallelism.
	if memory == 0 || iterations == 0 || parallelism == 0 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false
	}
	got := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{Cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to hash password")
		return "", err
	}
	return string(bytes), nil
}

func (h *BcryptHasher) Verify(password, hash string) bool {
	if password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// SHA256Hasher is the unsalted legacy digest kept for imported accounts.
// Hex comparison is case-insensitive.
type SHA256Hasher struct{}

func (SHA256Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:]), nil
}

func (SHA256Hasher) Verify(password, hash string) bool {
	if password == "" {
		return false
	}
	sum := sha256.Sum256([]byte(password))
	got := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(got), []byte(strings.ToLower(hash))) == 1
}
