// Package storage holds the entity types of the service and the backends that
// persist them: an in-memory store, a postgres store on gorm and a redis
// session store that can stand in for either one's sessions.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionTTL is how long a session stays valid after it is created.
const SessionTTL = 7 * 24 * time.Hour

var (
	ErrNotFound  = errors.New("storage: not found")
	ErrDuplicate = errors.New("storage: username or email already exists")
)

type UserStore interface {
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, u NewUser) (*User, error)
}

type CalculationStore interface {
	GetCalculation(ctx context.Context, id string) (*Calculation, error)
	ListCalculationsByUser(ctx context.Context, userID string) ([]Calculation, error)
	CreateCalculation(ctx context.Context, c NewCalculation) (*Calculation, error)
	UpdateCalculation(ctx context.Context, id string, p CalculationPatch) (*Calculation, error)
	DeleteCalculation(ctx context.Context, id string) (bool, error)
}

type ProjectStore interface {
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjectsByUser(ctx context.Context, userID string) ([]Project, error)
	CreateProject(ctx context.Context, p NewProject) (*Project, error)
	UpdateProject(ctx context.Context, id string, p ProjectPatch) (*Project, error)
	DeleteProject(ctx context.Context, id string) (bool, error)
}

type SessionStore interface {
	CreateSession(ctx context.Context, userID string) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) (bool, error)
}

// Store is the full repository contract the HTTP layer depends on.
type Store interface {
	UserStore
	CalculationStore
	ProjectStore
	SessionStore
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now for timestamps and session expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// newID returns a random UUIDv4 read from crypto/rand. A failing entropy
// source is reported, never papered over.
func newID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}

type sessionOverride struct {
	Store
	sessions SessionStore
}

// WithSessions returns base with its session operations served by sessions.
func WithSessions(base Store, sessions SessionStore) Store {
	return &sessionOverride{Store: base, sessions: sessions}
}

func (s *sessionOverride) CreateSession(ctx context.Context, userID string) (*Session, error) {
	return s.sessions.CreateSession(ctx, userID)
}

func (s *sessionOverride) GetSession(ctx context.Context, id string) (*Session, error) {
	return s.sessions.GetSession(ctx, id)
}

func (s *sessionOverride) DeleteSession(ctx context.Context, id string) (bool, error) {
	return s.sessions.DeleteSession(ctx, id)
}
