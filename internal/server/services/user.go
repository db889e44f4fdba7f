// Package services contains server-side business logic. This file implements
// UserService, which registers accounts and verifies credentials.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/dmitrijs2005/duplofs/internal/common"
	"github.com/dmitrijs2005/duplofs/internal/cryptox"
	"github.com/dmitrijs2005/duplofs/internal/dbx"
	"github.com/dmitrijs2005/duplofs/internal/server/config"
	"github.com/dmitrijs2005/duplofs/internal/server/models"
	"github.com/dmitrijs2005/duplofs/internal/server/repositories/repomanager"
)

// maxUsernameLength matches the users.username column.
const maxUsernameLength = 150

// UserService provides authentication-related operations:
// - Register: create users with a salted password hash
// - Login: verify credentials
//
// Session issuing and logout live in the HTTP layer; the service is
// stateless apart from the database.
type UserService struct {
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	hashIterations int

	dummyOnce sync.Once
	dummyHash string
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:             db,
		repomanager:    m,
		hashIterations: cfg.PasswordHashIterations,
	}
}

// Register creates a user. A taken username yields common.ErrDuplicateUsername
// and leaves the existing account untouched; empty credentials yield
// common.ErrorValidation.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	hash, err := cryptox.HashPassword(password, s.hashIterations)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %v", common.ErrorInternal, err)
	}

	var created *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		_, err := repo.GetUserByLogin(ctx, username)
		switch {
		case err == nil:
			return common.ErrDuplicateUsername
		case !errors.Is(err, common.ErrorNotFound):
			return fmt.Errorf("%w: lookup user: %v", common.ErrorInternal, err)
		}

		u, err := repo.Create(ctx, &models.User{UserName: username, PasswordHash: hash})
		if errors.Is(err, common.ErrorAlreadyExists) {
			return common.ErrDuplicateUsername
		}
		if err != nil {
			return fmt.Errorf("%w: create user: %v", common.ErrorInternal, err)
		}

		created = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// Login returns the user whose credentials match. Unknown usernames and wrong
// passwords both yield common.ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, username, password string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// keep response time close to the found-user path
			cryptox.CheckPasswordHash(s.getDummyHash(), password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: lookup user: %v", common.ErrorInternal, err)
	}

	if !cryptox.CheckPasswordHash(user.PasswordHash, password) {
		return nil, common.ErrInvalidCredentials
	}

	return user, nil
}

// --- helpers below ---

func (s *UserService) getDummyHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = cryptox.HashPassword("dummy-password", s.hashIterations)
	})
	return s.dummyHash
}

func validateCredentials(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("%w: username is required", common.ErrorValidation)
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return fmt.Errorf("%w: username is longer than %d characters", common.ErrorValidation, maxUsernameLength)
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", common.ErrorValidation)
	}
	return nil
}
