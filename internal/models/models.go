package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ClientType is the principal kind carried in a token's "typ" claim
type ClientType string

const (
	ClientAdmin   ClientType = "admin"
	ClientPlayer  ClientType = "player"
	ClientGame    ClientType = "game"
	ClientWebAPI  ClientType = "webapi"
	ClientManager ClientType = "manager"
)

// GroupState is the lifecycle state of a group
type GroupState string

const (
	GroupCheck GroupState = "group-check"
	InQueue    GroupState = "in-queue"
	PartyCheck GroupState = "party-check"
	Playing    GroupState = "playing"
)

// QueueKind identifies a message queue namespace
type QueueKind string

const (
	QueueUser  QueueKind = "user"
	QueueGroup QueueKind = "group"
	QueueParty QueueKind = "party"
)

// Valid reports whether k is one of the three stream kinds
func (k QueueKind) Valid() bool {
	return k == QueueUser || k == QueueGroup || k == QueueParty
}

// User represents an account in the identity store
type User struct {
	UserID       uuid.UUID `db:"userid" json:"userid"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash []byte    `db:"password" json:"-"`
	IsVerified   bool      `db:"isverified" json:"isverified"`
	IsAdmin      bool      `db:"isadmin" json:"isadmin"`
}

// Game represents a playable game registered by an admin
type Game struct {
	GameID   int           `db:"gameid" json:"gameid"`
	Name     string        `db:"name" json:"name"`
	OwnerID  uuid.UUID     `db:"ownerid" json:"ownerid"`
	Capacity int           `db:"capacity" json:"capacity"`
	Image    string        `db:"image" json:"image"`
	Ports    pq.Int64Array `db:"ports" json:"ports"`
}

// UserSession is the transient per-user matchmaking state.
// It exists iff the user is currently in a group.
type UserSession struct {
	GroupID uuid.UUID `json:"groupid"`
	PartyID uuid.UUID `json:"partyid,omitempty"`
	Ready   bool      `json:"ready"`
}

// Group is a set of users grouped for one game
type Group struct {
	State   GroupState  `json:"state"`
	Members []uuid.UUID `json:"members"`
	GameID  int         `json:"gameid"`
	SlotID  uuid.UUID   `json:"slotid,omitempty"`
	PartyID uuid.UUID   `json:"partyid,omitempty"`
}

// Slot is a matchmaker bucket accumulating groups up to the game capacity
type Slot struct {
	GameID  int         `json:"gameid"`
	Players []uuid.UUID `json:"players"`
	Groups  []uuid.UUID `json:"groups"`
}

// Party is a launched game instance
type Party struct {
	GameID int       `json:"gameid"`
	SlotID uuid.UUID `json:"slotid"`
	Host   string    `json:"host"`
	Ports  []int     `json:"ports"`
}
