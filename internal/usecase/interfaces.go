package usecase

import (
	"context"
	"time"

	"github.com/xavierca1/salespilot/internal/entity"
)

// Notifier hands a notification over for asynchronous delivery. It must not
// block on delivery; an error means the notification could not be queued.
type Notifier interface {
	Notify(ctx context.Context, n entity.Notification) error
}

type ProposalRenderer interface {
	Render(lead *entity.Lead, issuedAt time.Time) ([]byte, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenIssuer interface {
	Issue(user *entity.User) (string, error)
}

// Clock returns the current time. Use cases default to UTC wall time.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}
