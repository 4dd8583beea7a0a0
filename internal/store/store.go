package store

import (
	"context"
	"errors"
	"time"

	"github.com/huddlechat/huddle/internal/models"
)

// RetentionWindow is the maximum age of a retrievable chat message.
// Messages older than this must never appear in Recent, even if not
// yet physically purged.
const RetentionWindow = 7 * 24 * time.Hour

// Duplicate identity errors returned by UserStore.CreateUser.
var (
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrDuplicateUsername = errors.New("username already exists")
)

// UserStore defines the interface for persistent storage of users.
// PostgresStore, SQLiteStore and MemoryUserStore implement this interface.
type UserStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// User operations
	CreateUser(ctx context.Context, email, username, passwordHash string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

// MessageStore defines the interface for the durable, time-ordered message
// log and the group metadata singleton. Append is the only write path for
// messages; stored messages are immutable.
type MessageStore interface {
	Close() error
	Ping(ctx context.Context) error

	// Append stores msg, assigning its ID and timestamp.
	Append(ctx context.Context, msg *models.Message) error
	// Recent returns up to limit of the newest messages inside the
	// retention window, ordered oldest first.
	Recent(ctx context.Context, limit int) ([]models.Message, error)
	// Purge physically removes messages outside the retention window.
	Purge(ctx context.Context) error

	// Group metadata. LoadGroup returns nil when nothing is stored.
	LoadGroup(ctx context.Context) (*models.Group, error)
	SaveGroup(ctx context.Context, g *models.Group) error
}

// StartJanitor runs Purge on every tick until ctx is cancelled. It keeps
// retention enforcement continuous rather than read-time only.
func StartJanitor(ctx context.Context, s MessageStore, every time.Duration) {
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = s.Purge(ctx)
			}
		}
	}()
}
