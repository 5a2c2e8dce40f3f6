// Package identity is the durable side of the service: accounts and
// registered games. Transient matchmaking state lives in the session store.
package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/webgames/backend/internal/models"
)

// ErrNotFound is returned when a user or game does not exist
var ErrNotFound = errors.New("not found")

// ConstraintError carries the backend's native message for an integrity
// violation (duplicate name/email, bad foreign key). Surfaced to clients
// as a 400 with the native message.
type ConstraintError struct {
	Message string
}

func (e *ConstraintError) Error() string { return e.Message }

// Store is the identity store contract
type Store interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	SetUserAdmin(ctx context.Context, userID uuid.UUID, isAdmin bool) error
	SetUserVerified(ctx context.Context, userID uuid.UUID, isVerified bool) error

	CreateGame(ctx context.Context, name string, ownerID uuid.UUID, capacity int, image string, ports []int) (int, error)
	GetGameByID(ctx context.Context, gameID int) (*models.Game, error)
	GetGameByName(ctx context.Context, name string) (*models.Game, error)
	GetAllGames(ctx context.Context) ([]models.Game, error)
	GetGamesByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Game, error)
}
