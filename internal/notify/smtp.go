package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPMailer sends notifications through a plain SMTP relay.
//
// No third-party mail client here on purpose: the messages are single-part
// plain text to one recipient, which net/smtp covers entirely, and failures
// are swallowed upstream anyway — a richer client would add knobs nobody
// reads.
type SMTPMailer struct {
	addr string // host:port of the relay, e.g. "localhost:1025"
	from string // From: address, e.g. "noreply@book-reviews.local"
	auth smtp.Auth
}

var _ Notifier = (*SMTPMailer)(nil)

// NewSMTPMailer creates a mailer for the given relay. username may be empty
// for unauthenticated relays (local dev with Mailpit/MailHog).
func NewSMTPMailer(addr, from, username, password string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		host := addr
		if i := strings.IndexByte(addr, ':'); i >= 0 {
			host = addr[:i]
		}
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{addr: addr, from: from, auth: auth}
}

// ReviewAdded emails the review's author a confirmation.
// Subject and body mirror what readers have come to expect from the site;
// the book title is quoted verbatim.
func (m *SMTPMailer) ReviewAdded(_ context.Context, toEmail, bookTitle string) error {
	if toEmail == "" {
		// Accounts created via GitHub can hide their email; nothing to send.
		return nil
	}

	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + toEmail,
		"Subject: New Review Added",
		"",
		fmt.Sprintf("Your review for %q has been posted successfully!", bookTitle),
		"",
	}, "\r\n")

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{toEmail}, []byte(msg)); err != nil {
		return fmt.Errorf("notify: sending review email to %s: %w", toEmail, err)
	}
	return nil
}
