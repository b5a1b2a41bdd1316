package usecase

import "context"

// Mailer delivers transactional mail. Implementations may defer delivery, so
// a nil error means the mail was sent or queued for retry.
type Mailer interface {
	SendWelcome(ctx context.Context, personID, email, name, confirmationLink string) error
	SendPasswordReset(ctx context.Context, personID, email, resetLink string) error
}
