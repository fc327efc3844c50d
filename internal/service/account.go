package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sakif/book-reviews/internal/apperror"
	"github.com/sakif/book-reviews/internal/auth"
	"github.com/sakif/book-reviews/internal/model"
	"github.com/sakif/book-reviews/internal/repository"
)

// SignupForm mirrors the registration form: a username, an email, and a
// password typed twice. The eqfield tag is the password-confirmation check.
type SignupForm struct {
	Username        string `validate:"required,min=3,max=30,alphanum"`
	Email           string `validate:"required,email"`
	Password        string `validate:"required,min=8,max=72"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
}

// AccountService handles signup, login, and profile management.
//
// DEPENDENCIES (injected via NewAccountService):
//   - users      repository.UserRepository → read/write accounts + profiles
//   - tokens     *auth.TokenService        → issue session JWTs
//   - passwords  *auth.PasswordService     → bcrypt hashing
type AccountService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewAccountService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		validate:  newValidator(),
		logger:    logger,
	}
}

// AuthResult bundles a user with a freshly issued session token so the
// handler can set the cookie and redirect in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Signup validates the registration form and creates the account.
//
// PROFILE PROVISIONING IS PART OF SIGNUP, NOT AN AFTERTHOUGHT:
// CreateWithProfile commits the user row and its profile row in one
// transaction, so the "every user has a profile" invariant holds from the
// first instant the account exists. No post-save hook, no window where a
// reader could see a profile-less user.
//
// A duplicate username surfaces as a validation error on the username field
// (not a 500): the repository maps the UNIQUE violation to ErrConflict and we
// translate it here, so the race between two signups picking the same name is
// handled by the database rather than a check-then-insert.
func (s *AccountService) Signup(ctx context.Context, form SignupForm) (*model.User, error) {
	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(form.Email)

	if err := s.validate.Struct(form); err != nil {
		return nil, apperror.ValidationFailedFields(fieldErrors(err))
	}

	hash, err := s.passwords.Hash(form.Password)
	if err != nil {
		return nil, fmt.Errorf("service/account: hashing password: %w", err)
	}

	user := &model.User{
		Username:     form.Username,
		Email:        form.Email,
		PasswordHash: hash,
	}
	if err := s.users.CreateWithProfile(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ValidationFailed("username", "that username is already taken")
		}
		return nil, fmt.Errorf("service/account: creating user %s: %w", form.Username, err)
	}

	s.logger.Info("account created",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// Login verifies a username/password pair and issues a session token.
//
// Unknown username and wrong password produce the IDENTICAL error. Returning
// "no such user" would let anyone probe which usernames exist.
func (s *AccountService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("invalid username or password")
		}
		return nil, fmt.Errorf("service/account: looking up %s: %w", username, err)
	}

	if user.PasswordHash == "" {
		// GitHub-only account — there is no password to check.
		return nil, apperror.Unauthorized("invalid username or password")
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized("invalid username or password")
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/account: generating token for %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return &AuthResult{User: user, Token: token}, nil
}

// LoginOrRegisterGitHub completes a GitHub OAuth sign-in.
//
// First login inserts the user (with profile, same transaction) keyed on the
// stable GitHub ID; later logins reuse the account. Either way the caller
// gets a session token.
func (s *AccountService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/account: GitHub user must not be nil")
	}

	user := &model.User{
		GitHubID: ghUser.ID,
		Username: ghUser.Login,
		Email:    ghUser.Email,
	}
	if err := s.users.UpsertGitHub(ctx, user); err != nil {
		return nil, fmt.Errorf("service/account: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/account: generating token for %s: %w", user.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID returns the account for a validated session's userID.
func (s *AccountService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/account: user ID must not be empty")
	}
	return s.users.GetByID(ctx, id)
}

// Profile returns a user's profile.
func (s *AccountService) Profile(ctx context.Context, userID string) (*model.UserProfile, error) {
	return s.users.Profile(ctx, userID)
}

// UpdateBio replaces the freeform bio on a user's profile.
func (s *AccountService) UpdateBio(ctx context.Context, userID, bio string) error {
	bio = strings.TrimSpace(bio)
	if len(bio) > 1000 {
		return apperror.ValidationFailed("bio", "bio must be at most 1000 characters")
	}
	return s.users.UpdateBio(ctx, userID, bio)
}
