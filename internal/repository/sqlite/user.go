package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/book-reviews/internal/apperror"
	"github.com/sakif/book-reviews/internal/model"
	"github.com/sakif/book-reviews/internal/repository"
)

type userRepo struct {
	conn *sql.DB
}

var _ repository.UserRepository = (*userRepo)(nil)

const userColumns = `id, username, email, password_hash, github_id, is_admin, created_at, updated_at`

// CreateWithProfile inserts a user AND its profile row in one transaction.
//
// THE PROFILE INVARIANT:
// Every user has exactly one profile, observable the instant the user exists.
// Running both INSERTs in a single transaction means no reader — not even one
// on another connection — can see the user row without the profile row. This
// replaces the implicit "create profile after user is saved" hook some stacks
// use with an explicit, testable code path.
func (r *userRepo) CreateWithProfile(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning user transaction: %w", err)
	}
	// Rollback after a successful Commit is a no-op, so defer is safe.
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, github_id, is_admin, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash,
		nullableGitHubID(user.GitHubID), user.IsAdmin,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		// The UNIQUE constraint on username is how "is this name taken?"
		// stays race-free. Two concurrent signups with the same name both
		// reach the INSERT; exactly one wins, the other gets a Conflict.
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Username)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Username, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_profiles (user_id, bio, created_at) VALUES (?, '', ?)`,
		user.ID, now,
	); err != nil {
		return fmt.Errorf("sqlite: inserting profile for user %s: %w", user.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing user %s: %w", user.ID, err)
	}

	return nil
}

// GetByID retrieves a user by their internal ID.
func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := r.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	return user, nil
}

// GetByUsername retrieves a user by username — the login lookup.
func (r *userRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	row := r.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)

	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user by username %s: %w", username, err)
	}

	return user, nil
}

// UpsertGitHub inserts or updates a user keyed on their GitHub ID.
//
// First OAuth login → INSERT user + profile (same transaction and same
// invariant as CreateWithProfile). Subsequent logins → refresh the email in
// case it changed on GitHub, keeping the existing internal ID and profile.
func (r *userRepo) UpsertGitHub(ctx context.Context, user *model.User) error {
	if user.GitHubID == 0 {
		return fmt.Errorf("sqlite: upserting user: GitHub ID must be set")
	}

	var existingID string
	err := r.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE github_id = ?`, user.GitHubID,
	).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", user.GitHubID, err)
	}

	if existingID != "" {
		user.ID = existingID
		user.UpdatedAt = time.Now()
		if _, err := r.conn.ExecContext(ctx,
			`UPDATE users SET email = ?, updated_at = ? WHERE id = ?`,
			user.Email, user.UpdatedAt, user.ID,
		); err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		// Re-read username/is_admin so the caller gets the canonical record.
		stored, err := r.GetByID(ctx, user.ID)
		if err != nil {
			return err
		}
		*user = *stored
		return nil
	}

	// New GitHub user. If their GitHub login collides with an existing
	// username, suffix the xid to keep the UNIQUE constraint happy.
	if err := r.CreateWithProfile(ctx, user); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			return err
		}
		user.Username = fmt.Sprintf("%s-%s", user.Username, xid.New().String()[:8])
		return r.CreateWithProfile(ctx, user)
	}
	return nil
}

// Profile returns a user's profile row.
func (r *userRepo) Profile(ctx context.Context, userID string) (*model.UserProfile, error) {
	var p model.UserProfile
	err := r.conn.QueryRowContext(ctx,
		`SELECT user_id, bio, created_at FROM user_profiles WHERE user_id = ?`,
		userID,
	).Scan(&p.UserID, &p.Bio, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("profile", userID)
		}
		return nil, fmt.Errorf("sqlite: getting profile for user %s: %w", userID, err)
	}

	return &p, nil
}

// UpdateBio replaces the profile bio.
func (r *userRepo) UpdateBio(ctx context.Context, userID, bio string) error {
	result, err := r.conn.ExecContext(ctx,
		`UPDATE user_profiles SET bio = ? WHERE user_id = ?`,
		bio, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating bio for user %s: %w", userID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("profile", userID)
	}

	return nil
}

// Delete removes a user. The CASCADE rules delete their reviews and profile
// in the same statement.
func (r *userRepo) Delete(ctx context.Context, id string) error {
	result, err := r.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("user", id)
	}

	return nil
}

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var (
		u        model.User
		githubID sql.NullInt64 // NULL for password-only accounts
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&githubID, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.GitHubID = githubID.Int64
	return &u, nil
}

// nullableGitHubID maps the zero value to NULL so the UNIQUE constraint on
// github_id never trips across password-only accounts.
func nullableGitHubID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

// isUniqueViolation sniffs the driver error text for a UNIQUE constraint
// failure. modernc.org/sqlite doesn't export a typed error for this, so the
// message check is the practical option.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
