// file: repository/user_repository.go

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

// IUserRepository defines the contract for account persistence.
type IUserRepository interface {
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	CountByRole(ctx context.Context, role model.Role) (int, error)
	Delete(ctx context.Context, id int) error
}

// UserRepository implements IUserRepository on Postgres.
type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

const userColumns = `id, username, email, password_hash, role, created_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	u := &model.User{}
	var role string
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	return u, nil
}

func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)`
	if err := r.DB.QueryRowContext(ctx, query, username, email).Scan(&exists); err != nil {
		logger.Log.WithError(err).Error("Failed to execute user existence query")
		return false, err
	}
	return exists, nil
}

// Create inserts the user and fills in ID and CreatedAt.
// A unique constraint violation is reported as ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	log := logger.Log.WithFields(logrus.Fields{
		"username": user.Username,
		"role":     user.Role,
	})
	log.Info("Executing query to create a new user")

	query := `INSERT INTO users (username, email, password_hash, role) VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	err := r.DB.QueryRowContext(ctx, query, user.Username, user.Email, user.PasswordHash, string(user.Role)).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			log.Info("User already exists")
			return ErrDuplicate
		}
		log.WithError(err).Error("Failed to execute create user query")
		return err
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		logger.Log.WithError(err).WithField("user_id", id).Error("Failed to execute get user by ID query")
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		logger.Log.WithError(err).Error("Failed to execute get user by email query")
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) List(ctx context.Context) ([]*model.User, error) {
	logger.Log.Info("Executing query to list users")

	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to execute list users query")
		return nil, err
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			logger.Log.WithError(err).Error("Failed to scan user row")
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) CountByRole(ctx context.Context, role model.Role) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM users WHERE role = $1`
	if err := r.DB.QueryRowContext(ctx, query, string(role)).Scan(&n); err != nil {
		logger.Log.WithError(err).WithField("role", role).Error("Failed to execute count users query")
		return 0, err
	}
	return n, nil
}

// Delete removes a user. Deleting an administrator locks every admin row
// before counting, so concurrent deletions cannot both remove the last two.
func (r *UserRepository) Delete(ctx context.Context, id int) (err error) {
	log := logger.Log.WithField("user_id", id)
	log.Info("Executing transaction to delete a user")

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		log.WithError(err).Error("Failed to begin delete user transaction")
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var role string
	err = tx.QueryRowContext(ctx, `SELECT role FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		log.WithError(err).Error("Failed to lock user row")
		return err
	}

	if model.Role(role) == model.RoleAdmin {
		var admins int
		query := `SELECT COUNT(*) FROM (SELECT id FROM users WHERE role = $1 FOR UPDATE) AS admins`
		if err = tx.QueryRowContext(ctx, query, string(model.RoleAdmin)).Scan(&admins); err != nil {
			log.WithError(err).Error("Failed to count administrators")
			return err
		}
		if admins <= 1 {
			log.Warn("Refusing to delete the last administrator")
			return ErrLastAdmin
		}
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		log.WithError(err).Error("Failed to execute delete user query")
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete user: %w", err)
	}
	return nil
}
