// Package session owns every transient matchmaking entity: user sessions,
// groups, slots, queues, parties and the token revocation set. Mutations go
// through atomic critical sections so the cross-entity invariants hold at
// every externally observable point.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Scope names the entities a critical section may touch. Matchmaking is
// serialized per game; the acting user's session key is covered too because
// a user can race their own group membership across games.
type Scope struct {
	GameID  int
	UserIDs []uuid.UUID
}

// Store is the session store contract
type Store interface {
	// Update runs fn as an atomic sequence over the scope. Writes staged by
	// fn are committed iff fn returns nil; domain errors roll everything
	// back. Conflicting concurrent updates are retried a bounded number of
	// times, then ErrConflict.
	Update(ctx context.Context, scope Scope, fn func(*Txn) error) error

	// View runs fn over a read-only snapshot. Staged writes are discarded.
	View(ctx context.Context, fn func(*Txn) error) error

	// RevokeToken marks a token id as revoked until expiry. Entries whose
	// expiry has passed are pruned before each write.
	RevokeToken(ctx context.Context, tokenID string, expiry time.Time) error

	// IsTokenRevoked reports whether the token id is in the revocation set
	// and not yet expired.
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}
