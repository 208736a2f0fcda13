package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sewain/backend/internal/auth"
	mock_auth "github.com/sewain/backend/internal/auth/mocks"
	"github.com/sewain/backend/internal/rental"
	"github.com/sewain/backend/internal/repository"
)

type authMocks struct {
	users    *mock_auth.MockUserRepository
	sessions *mock_auth.MockSessionRepository
	profiles *mock_auth.MockProfileRepository
}

func newTestAuth(t *testing.T) (*auth.Service, authMocks) {
	ctrl := gomock.NewController(t)
	m := authMocks{
		users:    mock_auth.NewMockUserRepository(ctrl),
		sessions: mock_auth.NewMockSessionRepository(ctrl),
		profiles: mock_auth.NewMockProfileRepository(ctrl),
	}
	svc := auth.NewService(m.users, m.sessions, m.profiles, 24*time.Hour, zap.NewNop())
	return svc, m
}

func hashOf(t *testing.T, password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("success lowercases email and creates profile", func(t *testing.T) {
		svc, m := newTestAuth(t)

		m.users.EXPECT().GetByEmail(ctx, "jane@example.com").Return(nil, repository.ErrObjectNotFound)
		m.users.EXPECT().Create(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, u *repository.User) error {
				assert.Equal(t, "jane@example.com", u.Email)
				assert.Equal(t, auth.RoleCustomer, u.Role)
				assert.True(t, u.IsActive)
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret1")))
				return nil
			})
		m.profiles.EXPECT().Create(ctx, gomock.Any(), gomock.Any()).Return(nil)

		user, err := svc.Register(ctx, auth.RegisterInput{
			Name:     "Jane",
			Email:    "Jane@Example.COM",
			Password: "secret1",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, user.ID)
	})

	t.Run("short password rejected", func(t *testing.T) {
		svc, _ := newTestAuth(t)
		_, err := svc.Register(ctx, auth.RegisterInput{Name: "J", Email: "j@example.com", Password: "abc"})
		assert.ErrorIs(t, err, rental.ErrValidation)
	})

	t.Run("bad email rejected", func(t *testing.T) {
		svc, _ := newTestAuth(t)
		_, err := svc.Register(ctx, auth.RegisterInput{Name: "J", Email: "not-an-email", Password: "secret1"})
		assert.ErrorIs(t, err, rental.ErrValidation)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		svc, m := newTestAuth(t)
		m.users.EXPECT().GetByEmail(ctx, "jane@example.com").
			Return(&repository.User{ID: "u-1"}, nil)
		_, err := svc.Register(ctx, auth.RegisterInput{Name: "J", Email: "jane@example.com", Password: "secret1"})
		assert.ErrorIs(t, err, rental.ErrConflict)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("success issues session", func(t *testing.T) {
		svc, m := newTestAuth(t)
		m.users.EXPECT().GetByEmail(ctx, "jane@example.com").Return(&repository.User{
			ID: "u-1", Email: "jane@example.com", PasswordHash: hashOf(t, "secret1"),
			Role: auth.RoleCustomer, IsActive: true,
		}, nil)
		m.sessions.EXPECT().Create(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, s *repository.Session) error {
				assert.Equal(t, "u-1", s.UserID)
				assert.True(t, s.ExpiresAt.After(time.Now()))
				return nil
			})

		token, user, err := svc.Login(ctx, "jane@example.com", "secret1")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, "u-1", user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, m := newTestAuth(t)
		m.users.EXPECT().GetByEmail(ctx, "jane@example.com").Return(&repository.User{
			ID: "u-1", PasswordHash: hashOf(t, "secret1"), IsActive: true,
		}, nil)
		_, _, err := svc.Login(ctx, "jane@example.com", "wrong")
		assert.ErrorIs(t, err, rental.ErrForbidden)
	})

	t.Run("inactive account gets the same rejection", func(t *testing.T) {
		svc, m := newTestAuth(t)
		m.users.EXPECT().GetByEmail(ctx, "jane@example.com").Return(&repository.User{
			ID: "u-1", PasswordHash: hashOf(t, "secret1"), IsActive: false,
		}, nil)
		_, _, err := svc.Login(ctx, "jane@example.com", "secret1")
		assert.ErrorIs(t, err, rental.ErrForbidden)
	})

	t.Run("unknown email gets the same rejection", func(t *testing.T) {
		svc, m := newTestAuth(t)
		m.users.EXPECT().GetByEmail(ctx, "ghost@example.com").Return(nil, repository.ErrObjectNotFound)
		_, _, err := svc.Login(ctx, "ghost@example.com", "secret1")
		assert.ErrorIs(t, err, rental.ErrForbidden)
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid session resolves principal", func(t *testing.T) {
		svc, m := newTestAuth(t)
		m.sessions.EXPECT().GetByToken(ctx, "tok").Return(&repository.Session{
			Token: "tok", UserID: "u-1", Role: auth.RoleAdmin,
			ExpiresAt: time.Now().Add(time.Hour),
		}, nil)
		m.users.EXPECT().GetByID(ctx, "u-1").Return(&repository.User{
			ID: "u-1", Name: "Jane", Role: auth.RoleAdmin, IsActive: true,
		}, nil)

		p, err := svc.Authenticate(ctx, "tok")
		require.NoError(t, err)
		assert.True(t, p.IsAdmin())
		assert.Equal(t, "u-1", p.UserID)
	})

	t.Run("expired session is deleted and rejected", func(t *testing.T) {
		svc, m := newTestAuth(t)
		m.sessions.EXPECT().GetByToken(ctx, "tok").Return(&repository.Session{
			Token: "tok", UserID: "u-1",
			ExpiresAt: time.Now().Add(-time.Minute),
		}, nil)
		m.sessions.EXPECT().DeleteByToken(ctx, "tok").Return(nil)

		_, err := svc.Authenticate(ctx, "tok")
		assert.ErrorIs(t, err, rental.ErrForbidden)
	})

	t.Run("deactivated user rejected", func(t *testing.T) {
		svc, m := newTestAuth(t)
		m.sessions.EXPECT().GetByToken(ctx, "tok").Return(&repository.Session{
			Token: "tok", UserID: "u-1", ExpiresAt: time.Now().Add(time.Hour),
		}, nil)
		m.users.EXPECT().GetByID(ctx, "u-1").Return(&repository.User{ID: "u-1", IsActive: false}, nil)

		_, err := svc.Authenticate(ctx, "tok")
		assert.ErrorIs(t, err, rental.ErrForbidden)
	})
}

func TestRefresh_RotatesToken(t *testing.T) {
	svc, m := newTestAuth(t)
	ctx := context.Background()

	m.sessions.EXPECT().GetByToken(ctx, "old").Return(&repository.Session{
		Token: "old", UserID: "u-1", Role: auth.RoleCustomer,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil)
	var issued string
	m.sessions.EXPECT().Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, s *repository.Session) error {
			issued = s.Token
			assert.Equal(t, "u-1", s.UserID)
			return nil
		})
	m.sessions.EXPECT().DeleteByToken(ctx, "old").Return(nil)

	token, err := svc.Refresh(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, issued, token)
	assert.NotEqual(t, "old", token)
}

func TestDeactivate_RevokesSessions(t *testing.T) {
	svc, m := newTestAuth(t)
	ctx := context.Background()

	m.users.EXPECT().Deactivate(ctx, "u-1", gomock.Any()).Return(nil)
	m.sessions.EXPECT().DeleteByUserID(ctx, "u-1").Return(nil)

	require.NoError(t, svc.Deactivate(ctx, "u-1"))
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds when absent", func(t *testing.T) {
		svc, m := newTestAuth(t)
		m.users.EXPECT().GetByEmail(ctx, "admin@sewain.local").Return(nil, repository.ErrObjectNotFound)
		m.users.EXPECT().Create(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, u *repository.User) error {
				assert.Equal(t, auth.RoleAdmin, u.Role)
				return nil
			})
		require.NoError(t, svc.EnsureAdmin(ctx, "admin@sewain.local", "changeme123"))
	})

	t.Run("leaves existing account untouched", func(t *testing.T) {
		svc, m := newTestAuth(t)
		m.users.EXPECT().GetByEmail(ctx, "admin@sewain.local").Return(&repository.User{ID: "u-1"}, nil)
		require.NoError(t, svc.EnsureAdmin(ctx, "admin@sewain.local", "changeme123"))
	})

	t.Run("skips when unconfigured", func(t *testing.T) {
		svc, _ := newTestAuth(t)
		require.NoError(t, svc.EnsureAdmin(ctx, "", ""))
	})
}

func TestChangePassword(t *testing.T) {
	svc, m := newTestAuth(t)
	ctx := context.Background()

	m.users.EXPECT().GetByID(ctx, "u-1").Return(&repository.User{
		ID: "u-1", PasswordHash: hashOf(t, "oldpass"),
	}, nil)
	m.users.EXPECT().UpdatePassword(ctx, "u-1", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, hash string, _ time.Time) error {
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("newpass1")))
			return nil
		})

	require.NoError(t, svc.ChangePassword(ctx, "u-1", "oldpass", "newpass1"))
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	svc, m := newTestAuth(t)
	ctx := context.Background()

	m.users.EXPECT().GetByID(ctx, "u-1").Return(&repository.User{
		ID: "u-1", PasswordHash: hashOf(t, "oldpass"),
	}, nil)

	err := svc.ChangePassword(ctx, "u-1", "nope", "newpass1")
	assert.ErrorIs(t, err, rental.ErrForbidden)
}
