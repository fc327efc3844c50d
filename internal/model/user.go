package model

import "time"

// User represents a registered account.
//
// Two sign-in paths create users:
//   - password signup: Username + Email + PasswordHash are set, GitHubID is 0
//   - GitHub OAuth: GitHubID is set, PasswordHash stays empty
//
// WHY GitHubID int64?
// GitHub user IDs are integers (e.g. 1234567). Using int64 avoids overflow for
// large GitHub account numbers. The UNIQUE constraint on github_id in the DB
// ensures one GitHub account maps to exactly one app account. For password-only
// accounts the column is NULL, so the zero value never collides.
//
// PasswordHash is never serialized — note the json:"-" tag. Leaking bcrypt
// hashes in an API response would be a gift to offline crackers.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Username     string    `json:"username"  db:"username"`
	Email        string    `json:"email"     db:"email"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	GitHubID     int64     `json:"-"         db:"github_id"`
	IsAdmin      bool      `json:"isAdmin"   db:"is_admin"` // admins may edit/delete any review
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// UserProfile holds the freeform extras attached to a User.
//
// Every user has exactly one profile. It is created in the same database
// transaction as the user row (see repository.UserRepository.CreateWithProfile),
// so no reader can ever observe a user without a profile. It shares the user's
// lifetime: deleting the user cascades to the profile.
type UserProfile struct {
	UserID    string    `json:"userId"    db:"user_id"`
	Bio       string    `json:"bio"       db:"bio"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
