// Package notify sends the best-effort emails the site produces.
//
// "Best-effort" is load-bearing: a review must save whether or not the mail
// server is up. The service layer fires notifications on a separate goroutine
// and logs failures at Warn — an error from this package never reaches a
// request, and nothing here retries.
package notify

import "context"

// Notifier is the outbound-notification interface the review service depends
// on. Keeping it this narrow means tests can swap in a recorder and the SMTP
// details stay in one file.
type Notifier interface {
	// ReviewAdded tells a user their review of bookTitle was posted.
	ReviewAdded(ctx context.Context, toEmail, bookTitle string) error
}

// Noop discards every notification. Used when SMTP isn't configured and in
// tests that don't care about mail.
type Noop struct{}

var _ Notifier = Noop{}

func (Noop) ReviewAdded(context.Context, string, string) error { return nil }
