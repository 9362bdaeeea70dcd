package service

import (
	"context"
	"errors"
	"testing"

	"task-manager-api/model"
	"task-manager-api/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock for repository.IUserRepository.
type MockUserRepository struct{ mock.Mock }

func (m *MockUserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	args := m.Called(ctx, username, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]*model.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*model.User), args.Error(1)
}

func (m *MockUserRepository) CountByRole(ctx context.Context, role model.Role) (int, error) {
	args := m.Called(ctx, role)
	return args.Int(0), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func TestAuthService_RegisterRepositoryOutcomes(t *testing.T) {
	ctx := context.Background()
	ts := newTestTokenService(t)

	t.Run("unique violation after pre-check is a conflict", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, nil, ts, SHA256Hasher{}, nil, true)

		repo.On("ExistsByUsernameOrEmail", ctx, "tess", "tess@x.com").Return(false, nil).Once()
		repo.On("Create", ctx, mock.MatchedBy(func(u *model.User) bool {
			return u.Username == "tess" && u.Role == model.RoleUser && u.PasswordHash != "pw"
		})).Return(repository.ErrDuplicate).Once()

		_, err := svc.Register(ctx, RegisterInput{Username: "tess", Email: "Tess@x.com", Password: "pw"})
		assert.ErrorIs(t, err, ErrConflict)
		repo.AssertExpectations(t)
	})

	t.Run("store failure is wrapped", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, nil, ts, SHA256Hasher{}, nil, true)
		dbErr := errors.New("connection reset")

		repo.On("ExistsByUsernameOrEmail", ctx, "tess", "tess@x.com").Return(false, dbErr).Once()

		_, err := svc.Register(ctx, RegisterInput{Username: "tess", Email: "tess@x.com", Password: "pw"})
		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, ErrConflict)
		repo.AssertNotCalled(t, "Create")
	})

	t.Run("delete maps store sentinels", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, nil, ts, SHA256Hasher{}, nil, true)

		repo.On("Delete", ctx, 1).Return(repository.ErrLastAdmin).Once()
		repo.On("Delete", ctx, 2).Return(repository.ErrNotFound).Once()

		assert.ErrorIs(t, svc.DeleteUser(ctx, 1), ErrLastAdmin)
		assert.ErrorIs(t, svc.DeleteUser(ctx, 2), ErrNotFound)
		repo.AssertExpectations(t)
	})
}
