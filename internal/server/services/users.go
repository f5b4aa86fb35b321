package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/refinery/internal/common"
	"github.com/dmitrijs2005/refinery/internal/cryptox"
	"github.com/dmitrijs2005/refinery/internal/logging"
	"github.com/dmitrijs2005/refinery/internal/server/models"
	"github.com/dmitrijs2005/refinery/internal/server/rbac"
	"github.com/dmitrijs2005/refinery/internal/server/repositories/repomanager"
)

// UserService owns dashboard accounts and checks their credentials.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		log:         log.With("module", "users"),
	}
}

// Authenticate returns the user when password matches. Unknown usernames and
// wrong passwords both yield common.ErrBadCredentials and take the same
// time.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			cryptox.BurnCompare([]byte(password))
			return nil, common.ErrBadCredentials
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if !cryptox.CheckPassword(user.PasswordHash, []byte(password)) {
		return nil, common.ErrBadCredentials
	}
	return user, nil
}

// Create stores a new account with a bcrypt hash of password.
func (s *UserService) Create(ctx context.Context, username, password, role string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" || role == "" {
		return nil, fmt.Errorf("%w: username, password and role are required", common.ErrorValidation)
	}

	hash, err := cryptox.HashPassword([]byte(password))
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		UserName:     username,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return user, nil
}

// EnsureBootstrapAdmin creates an admin account unless username already
// exists. It reports whether an account was created.
func (s *UserService) EnsureBootstrapAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}

	_, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return false, fmt.Errorf("error loading user: %w", err)
	}

	if _, err := s.Create(ctx, username, password, rbac.AdminRole); err != nil {
		return false, err
	}
	s.log.Info(ctx, "bootstrap admin created", "username", username)
	return true, nil
}
