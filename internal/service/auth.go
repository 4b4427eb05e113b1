package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/kyyril/portfolio/internal/auth"
	"github.com/kyyril/portfolio/internal/model"
	"github.com/kyyril/portfolio/internal/repository"
)

// AuthService handles the authentication business logic.
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//
// It knows nothing about cookies: the handler turns the returned identity
// into a session cookie.
type AuthService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewAuthService(users repository.UserRepository, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		logger: logger,
	}
}

// AuthResult bundles the stored user and the identity to put in the session.
type AuthResult struct {
	User     *model.User
	Identity auth.Identity
}

// LoginOrRegisterGitHub upserts the GitHub account (create on first login,
// refresh username/avatar/email afterwards) and returns the session identity.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, errors.New("service/auth: GitHub user must not be nil")
	}

	user := &model.User{
		GitHubID:  strconv.FormatInt(ghUser.ID, 10),
		Username:  ghUser.Login,
		Email:     ghUser.Email,
		AvatarURL: ghUser.AvatarURL,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return &AuthResult{
		User:     user,
		Identity: IdentityOf(user),
	}, nil
}

// CurrentIdentity refreshes a session identity from the database so the
// status endpoint reflects profile changes. A user that no longer exists
// yields apperror.ErrNotFound.
func (s *AuthService) CurrentIdentity(ctx context.Context, id auth.Identity) (auth.Identity, error) {
	user, err := s.users.GetByID(ctx, id.ID)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("service/auth: fetching user %s: %w", id.ID, err)
	}
	return IdentityOf(user), nil
}

// IdentityOf is the public projection stored in the session cookie.
func IdentityOf(u *model.User) auth.Identity {
	return auth.Identity{
		ID:        u.ID,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
	}
}
