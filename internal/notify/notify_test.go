package notify

import (
	"context"
	"testing"
)

func TestNoop(t *testing.T) {
	if err := (Noop{}).ReviewAdded(context.Background(), "a@example.com", "Dune"); err != nil {
		t.Errorf("Noop.ReviewAdded() error = %v, want nil", err)
	}
}

// A user without an email (possible for GitHub accounts that hide it) is a
// silent skip, not a send attempt and not an error.
func TestSMTPMailer_EmptyRecipient(t *testing.T) {
	m := NewSMTPMailer("localhost:1025", "noreply@bookreviews.local", "", "")

	if err := m.ReviewAdded(context.Background(), "", "Dune"); err != nil {
		t.Errorf("ReviewAdded() with empty recipient error = %v, want nil", err)
	}
}
