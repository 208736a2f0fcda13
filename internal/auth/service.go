//go:generate mockgen -source ./service.go -destination=./mocks/auth.go -package=mock_auth
package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sewain/backend/internal/rental"
	"github.com/sewain/backend/internal/repository"
)

const minPasswordLength = 6

type UserRepository interface {
	Create(ctx context.Context, u *repository.User) error
	GetByID(ctx context.Context, id string) (*repository.User, error)
	GetByEmail(ctx context.Context, email string) (*repository.User, error)
	ListActive(ctx context.Context) ([]*repository.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, now time.Time) error
	Deactivate(ctx context.Context, id string, now time.Time) error
}

type SessionRepository interface {
	Create(ctx context.Context, s *repository.Session) error
	GetByToken(ctx context.Context, token string) (*repository.Session, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteByUserID(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type ProfileRepository interface {
	Create(ctx context.Context, userID string, now time.Time) error
	GetByUserID(ctx context.Context, userID string) (*repository.Profile, error)
	Update(ctx context.Context, p *repository.Profile) error
}

type Service struct {
	users      UserRepository
	sessions   SessionRepository
	profiles   ProfileRepository
	sessionTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func NewService(users UserRepository, sessions SessionRepository, profiles ProfileRepository, sessionTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		users:      users,
		sessions:   sessions,
		profiles:   profiles,
		sessionTTL: sessionTTL,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates a customer account and an empty profile row for it.
// Emails are stored lowercased so the unique index catches case variants.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*repository.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" {
		return nil, rental.Invalidf("name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, rental.Invalidf("invalid email address")
	}
	if len(in.Password) < minPasswordLength {
		return nil, rental.Invalidf("password must be at least %d characters", minPasswordLength)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, rental.Conflictf("email is already registered")
	} else if !errors.Is(err, repository.ErrObjectNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &repository.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         RoleCustomer,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	if err := s.profiles.Create(ctx, user.ID, now); err != nil {
		s.logger.Error("failed to create profile for new user", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Login verifies credentials and issues an opaque session token. Inactive
// accounts and bad passwords produce the same error so the endpoint does not
// reveal which part failed.
func (s *Service) Login(ctx context.Context, email, password string) (string, *repository.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return "", nil, rental.Forbiddenf("invalid credentials")
		}
		return "", nil, err
	}
	if !user.IsActive {
		return "", nil, rental.Forbiddenf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, rental.Forbiddenf("invalid credentials")
	}

	now := s.now()
	session := &repository.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		Role:      user.Role,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", nil, err
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return session.Token, user, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.DeleteByToken(ctx, token)
}

// Refresh rotates a still-valid session: the old token is revoked and a new
// one with a fresh expiry is issued in its place.
func (s *Service) Refresh(ctx context.Context, token string) (string, error) {
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return "", rental.Forbiddenf("invalid session")
		}
		return "", err
	}
	now := s.now()
	if now.After(session.ExpiresAt) {
		if err := s.sessions.DeleteByToken(ctx, token); err != nil {
			s.logger.Warn("failed to delete expired session", zap.Error(err))
		}
		return "", rental.Forbiddenf("session expired")
	}

	rotated := &repository.Session{
		Token:     uuid.NewString(),
		UserID:    session.UserID,
		Role:      session.Role,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, rotated); err != nil {
		return "", err
	}
	if err := s.sessions.DeleteByToken(ctx, token); err != nil {
		s.logger.Warn("failed to revoke rotated session", zap.Error(err))
	}
	return rotated.Token, nil
}

// Authenticate resolves a bearer token to a principal. Expired sessions are
// deleted on sight instead of waiting for the sweeper.
func (s *Service) Authenticate(ctx context.Context, token string) (*Principal, error) {
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, rental.Forbiddenf("invalid session")
		}
		return nil, err
	}
	if s.now().After(session.ExpiresAt) {
		if err := s.sessions.DeleteByToken(ctx, token); err != nil {
			s.logger.Warn("failed to delete expired session", zap.Error(err))
		}
		return nil, rental.Forbiddenf("session expired")
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, rental.Forbiddenf("invalid session")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, rental.Forbiddenf("account is deactivated")
	}

	return &Principal{UserID: user.ID, Name: user.Name, Role: user.Role}, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return rental.Invalidf("password must be at least %d characters", minPasswordLength)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return rental.NotFoundf("user not found")
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return rental.Forbiddenf("current password does not match")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, string(hash), s.now())
}

// Deactivate disables an account and revokes all of its sessions, so the
// lockout takes effect on the next request rather than at token expiry.
func (s *Service) Deactivate(ctx context.Context, userID string) error {
	if err := s.users.Deactivate(ctx, userID, s.now()); err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return rental.NotFoundf("user not found")
		}
		return err
	}
	return s.sessions.DeleteByUserID(ctx, userID)
}

// ForceLogout revokes every session of a user without touching the account.
func (s *Service) ForceLogout(ctx context.Context, userID string) error {
	return s.sessions.DeleteByUserID(ctx, userID)
}

func (s *Service) ListUsers(ctx context.Context) ([]*repository.User, error) {
	return s.users.ListActive(ctx)
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*repository.Profile, error) {
	p, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, rental.NotFoundf("profile not found")
		}
		return nil, err
	}
	return p, nil
}

type ProfileUpdateInput struct {
	Phone     *string
	Gender    *string
	Address   *string
	Birthdate *time.Time
	Photo     *string
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileUpdateInput) (*repository.Profile, error) {
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Phone != nil {
		p.Phone = in.Phone
	}
	if in.Gender != nil {
		p.Gender = in.Gender
	}
	if in.Address != nil {
		p.Address = in.Address
	}
	if in.Birthdate != nil {
		p.Birthdate = in.Birthdate
	}
	if in.Photo != nil {
		p.Photo = in.Photo
	}
	p.UpdatedAt = s.now()
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// EnsureAdmin seeds the configured admin account on startup if it does not
// exist yet. Existing accounts are left untouched.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	email = strings.ToLower(email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrObjectNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := s.now()
	admin := &repository.User{
		ID:           uuid.NewString(),
		Name:         "Administrator",
		Email:        email,
		PasswordHash: string(hash),
		Role:         RoleAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return err
	}
	s.logger.Info("admin account seeded", zap.String("email", email))
	return nil
}

// CleanupExpiredSessions is run periodically from main.
func (s *Service) CleanupExpiredSessions(ctx context.Context) {
	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		s.logger.Error("session cleanup failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", zap.Int64("count", n))
	}
}
