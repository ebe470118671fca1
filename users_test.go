package filedrive_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/jmalhotra/filedrive"
)

type SpyUserRepo struct {
	mock.Mock
}

func (s *SpyUserRepo) Create(ctx context.Context, u filedrive.NewUser) (filedrive.User, error) {
	args := s.Called(ctx, u)
	return args.Get(0).(filedrive.User), args.Error(1)
}

func (s *SpyUserRepo) GetByID(ctx context.Context, id uuid.UUID) (filedrive.User, error) {
	args := s.Called(ctx, id)
	return args.Get(0).(filedrive.User), args.Error(1)
}

func (s *SpyUserRepo) GetByUsername(ctx context.Context, username string) (filedrive.User, error) {
	args := s.Called(ctx, username)
	return args.Get(0).(filedrive.User), args.Error(1)
}

func TestUserService_Register(t *testing.T) {
	t.Run("success - password is stored hashed", func(t *testing.T) {
		repo := new(SpyUserRepo)
		service := filedrive.NewUserService(repo)
		ctx := context.Background()

		expected := filedrive.User{ID: uuid.New(), Username: "jdoe", FirstName: "Jane", LastName: "Doe"}

		repo.On("Create", ctx, mock.MatchedBy(func(u filedrive.NewUser) bool {
			if u.Username != "jdoe" || u.FirstName != "Jane" || u.LastName != "Doe" {
				return false
			}
			return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("hunter22")) == nil
		})).Return(expected, nil)

		user, err := service.Register(ctx, filedrive.Registration{
			Username:  "jdoe",
			FirstName: "Jane",
			LastName:  "Doe",
			Password:  "hunter22",
		})
		assert.NoError(t, err)
		assert.Equal(t, expected, user)

		repo.AssertExpectations(t)
	})

	t.Run("error - taken username", func(t *testing.T) {
		repo := new(SpyUserRepo)
		service := filedrive.NewUserService(repo)
		ctx := context.Background()

		repo.On("Create", ctx, mock.Anything).Return(filedrive.User{}, filedrive.ErrConflict)

		_, err := service.Register(ctx, filedrive.Registration{Username: "jdoe", Password: "hunter22"})
		assert.ErrorIs(t, err, filedrive.ErrConflict)
	})

	t.Run("error - empty username", func(t *testing.T) {
		repo := new(SpyUserRepo)
		service := filedrive.NewUserService(repo)

		_, err := service.Register(context.Background(), filedrive.Registration{Password: "hunter22"})
		assert.ErrorIs(t, err, filedrive.ErrInvalidInput)

		repo.AssertNotCalled(t, "Create")
	})

	t.Run("error - empty password", func(t *testing.T) {
		repo := new(SpyUserRepo)
		service := filedrive.NewUserService(repo)

		_, err := service.Register(context.Background(), filedrive.Registration{Username: "jdoe"})
		assert.ErrorIs(t, err, filedrive.ErrInvalidInput)

		repo.AssertNotCalled(t, "Create")
	})
}

func TestUserService_Authenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	assert.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		repo := new(SpyUserRepo)
		service := filedrive.NewUserService(repo)
		ctx := context.Background()

		user := filedrive.User{ID: uuid.New(), Username: "jdoe", PasswordHash: string(hash)}
		repo.On("GetByUsername", ctx, "jdoe").Return(user, nil)

		got, err := service.Authenticate(ctx, "jdoe", "hunter22")
		assert.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("unknown username reads as unauthorized", func(t *testing.T) {
		repo := new(SpyUserRepo)
		service := filedrive.NewUserService(repo)
		ctx := context.Background()

		repo.On("GetByUsername", ctx, "ghost").Return(filedrive.User{}, filedrive.ErrNotFound)

		_, err := service.Authenticate(ctx, "ghost", "hunter22")
		assert.ErrorIs(t, err, filedrive.ErrUnauthorized)
		assert.NotErrorIs(t, err, filedrive.ErrNotFound)
	})

	t.Run("wrong password reads as unauthorized", func(t *testing.T) {
		repo := new(SpyUserRepo)
		service := filedrive.NewUserService(repo)
		ctx := context.Background()

		user := filedrive.User{ID: uuid.New(), Username: "jdoe", PasswordHash: string(hash)}
		repo.On("GetByUsername", ctx, "jdoe").Return(user, nil)

		_, err := service.Authenticate(ctx, "jdoe", "wrong")
		assert.ErrorIs(t, err, filedrive.ErrUnauthorized)
	})
}

func TestUserService_CurrentPrincipal(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		repo := new(SpyUserRepo)
		service := filedrive.NewUserService(repo)
		ctx := context.Background()

		user := filedrive.User{ID: uuid.New(), Username: "jdoe"}
		repo.On("GetByID", ctx, user.ID).Return(user, nil)

		got, err := service.CurrentPrincipal(ctx, user.ID.String())
		assert.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("malformed id reads as unauthorized", func(t *testing.T) {
		repo := new(SpyUserRepo)
		service := filedrive.NewUserService(repo)

		_, err := service.CurrentPrincipal(context.Background(), "not-a-uuid")
		assert.ErrorIs(t, err, filedrive.ErrUnauthorized)

		repo.AssertNotCalled(t, "GetByID")
	})

	t.Run("deleted user reads as unauthorized", func(t *testing.T) {
		repo := new(SpyUserRepo)
		service := filedrive.NewUserService(repo)
		ctx := context.Background()

		id := uuid.New()
		repo.On("GetByID", ctx, id).Return(filedrive.User{}, filedrive.ErrNotFound)

		_, err := service.CurrentPrincipal(ctx, id.String())
		assert.ErrorIs(t, err, filedrive.ErrUnauthorized)
	})
}
