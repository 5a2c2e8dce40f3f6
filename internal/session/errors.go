package session

import (
	"errors"
	"fmt"

	"github.com/webgames/backend/internal/models"
)

// Domain preconditions surfaced to clients with a stable phrase.
var (
	ErrPlayerInGroupAlready = errors.New("Player already in a group")
	ErrPlayerNotInGroup     = errors.New("Player not in group")
	ErrGroupDoesntExist     = errors.New("Group doesn't exist")
	ErrGroupIsFull          = errors.New("Group is full")
	ErrGroupNotReady        = errors.New("The group is not ready yet")
	ErrGameDoesntExist      = errors.New("Game doesn't exist")
	ErrPartyDoesntExist     = errors.New("Party doesn't exist")
	ErrNotFound             = errors.New("Not found")
)

// WrongGroupStateError reports an operation attempted outside its valid
// group states.
type WrongGroupStateError struct {
	Current models.GroupState
	Allowed []models.GroupState
}

func (e *WrongGroupStateError) Error() string {
	return fmt.Sprintf("Wrong group state: %s (allowed: %v)", e.Current, e.Allowed)
}

// ErrConflict is returned when an optimistic transaction keeps failing
// after the bounded retries.
var ErrConflict = errors.New("transaction conflict, retries exhausted")
