// Package store persists interview sessions with an expiry policy.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/spigell/interviewer/internal/interview"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session expired")
	ErrExists   = errors.New("session already exists")
)

const DefaultTTL = 24 * time.Hour

// Store keeps sessions by id. Every Update extends the session lifetime by the TTL.
type Store interface {
	Create(ctx context.Context, s interview.Session) error
	Get(ctx context.Context, id string) (interview.Session, error)
	Update(ctx context.Context, s interview.Session) error
	Delete(ctx context.Context, id string) error
	// PurgeExpired removes expired sessions and returns how many were removed.
	PurgeExpired(ctx context.Context) (int, error)
	Close() error
}

type clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}
