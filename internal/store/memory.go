package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/huddlechat/huddle/internal/models"
)

// MemoryUserStore is an in-memory UserStore used for tests.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]*models.User // keyed by ID
}

// NewMemoryUserStore creates an empty in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]*models.User)}
}

func (s *MemoryUserStore) Close() {}

func (s *MemoryUserStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryUserStore) CreateUser(ctx context.Context, email, username, passwordHash string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return nil, ErrDuplicateEmail
		}
		if strings.EqualFold(u.Username, username) {
			return nil, ErrDuplicateUsername
		}
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	s.users[user.ID.String()] = user

	cp := *user
	return &cp, nil
}

func (s *MemoryUserStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryUserStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryUserStore) CountUsers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

// MemoryMessageStore is an in-memory MessageStore with the same retention
// semantics as RedisStore. It backs development mode and tests.
type MemoryMessageStore struct {
	mu       sync.RWMutex
	messages []models.Message
	group    *models.Group
	now      func() time.Time
}

// NewMemoryMessageStore creates an empty in-memory message store.
func NewMemoryMessageStore() *MemoryMessageStore {
	return &MemoryMessageStore{now: time.Now}
}

func (s *MemoryMessageStore) Close() error { return nil }

func (s *MemoryMessageStore) Ping(ctx context.Context) error { return nil }

// Append stores a message, assigning its ULID and timestamp.
func (s *MemoryMessageStore) Append(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = s.now().UnixMilli()
	}

	s.messages = append(s.messages, *msg)
	sort.SliceStable(s.messages, func(i, j int) bool {
		return s.messages[i].Timestamp < s.messages[j].Timestamp
	})
	return nil
}

// Recent returns up to limit of the newest unexpired messages, oldest first.
func (s *MemoryMessageStore) Recent(ctx context.Context, limit int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().Add(-RetentionWindow).UnixMilli()

	live := make([]models.Message, 0, len(s.messages))
	for _, m := range s.messages {
		if m.Timestamp >= cutoff {
			live = append(live, m)
		}
	}

	if len(live) > limit {
		live = live[len(live)-limit:]
	}
	return live, nil
}

// Purge drops messages outside the retention window.
func (s *MemoryMessageStore) Purge(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-RetentionWindow).UnixMilli()

	kept := s.messages[:0]
	for _, m := range s.messages {
		if m.Timestamp >= cutoff {
			kept = append(kept, m)
		}
	}
	s.messages = kept
	return nil
}

func (s *MemoryMessageStore) LoadGroup(ctx context.Context) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.group == nil {
		return nil, nil
	}
	cp := *s.group
	return &cp, nil
}

func (s *MemoryMessageStore) SaveGroup(ctx context.Context, g *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *g
	s.group = &cp
	return nil
}
