package users

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/EricMurray-e-m-dev/RunMonkey/internal/apperr"
	"golang.org/x/crypto/bcrypt"
)

// Service applies credential rules on top of a Store.
type Service struct {
	store  Store
	admin  string
	cost   int
	logger *slog.Logger
}

func NewService(store Store, adminUsername string, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		admin:  adminUsername,
		cost:   bcrypt.DefaultCost,
		logger: logger,
	}
}

// EnsureAdmin creates the bootstrap admin account if it does not exist yet.
// An existing admin keeps its current password.
func (s *Service) EnsureAdmin(ctx context.Context, password string) error {
	if s.admin == "" {
		return nil
	}

	_, err := s.store.GetHash(ctx, s.admin)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	if password == "" {
		s.logger.Warn("Admin account missing and ADMIN_PASSWORD not set, login disabled until a user exists",
			"username", s.admin)
		return nil
	}

	if err := s.Create(ctx, s.admin, password); err != nil {
		return err
	}
	s.logger.Info("Bootstrap admin created", "username", s.admin)
	return nil
}

// Verify reports whether password matches the stored hash for username.
// Unknown users verify as false without an error.
func (s *Service) Verify(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}

	hash, err := s.store.GetHash(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, nil
}

func (s *Service) Create(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return apperr.Validation("username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return apperr.Validation("password must be at most 72 bytes")
	}
	if err != nil {
		return err
	}

	err = s.store.Insert(ctx, username, string(hash))
	if errors.Is(err, ErrDuplicate) {
		return apperr.New(apperr.KindDuplicate, "username already exists", err)
	}
	return err
}

func (s *Service) Revoke(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return apperr.Validation("username is required")
	}
	if username == s.admin {
		return apperr.Validation("cannot revoke admin user")
	}

	err := s.store.Delete(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return apperr.New(apperr.KindNotFound, "user not found", err)
	}
	return err
}

func (s *Service) List(ctx context.Context) ([]string, error) {
	return s.store.List(ctx)
}

func (s *Service) Close() error {
	return s.store.Close()
}
