// Package matchmaker implements the group/slot/party state machine and the
// FIFO packing policy. Every mutating operation runs as one atomic sequence
// in the session store; events are published only after the commit.
package matchmaker

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/webgames/backend/internal/config"
	"github.com/webgames/backend/internal/identity"
	"github.com/webgames/backend/internal/models"
	"github.com/webgames/backend/internal/msg"
	"github.com/webgames/backend/internal/session"
)

// LaunchFunc hands a freshly started party off to the container launcher
type LaunchFunc func(game models.Game, partyID uuid.UUID, party models.Party)

type Matchmaker struct {
	store    session.Store
	identity identity.Store
	bus      msg.Bus
	cfg      *config.Config
	launch   LaunchFunc
}

func New(store session.Store, ident identity.Store, bus msg.Bus, cfg *config.Config) *Matchmaker {
	return &Matchmaker{store: store, identity: ident, bus: bus, cfg: cfg}
}

// SetLaunchFunc wires the container launcher. The launcher calls back into
// EndGame, so the hookup happens after both sides exist.
func (m *Matchmaker) SetLaunchFunc(f LaunchFunc) { m.launch = f }

func (m *Matchmaker) getGame(ctx context.Context, gameID int) (*models.Game, error) {
	game, err := m.identity.GetGameByID(ctx, gameID)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, session.ErrGameDoesntExist
	}
	return game, err
}

// GetUser returns the transient session of a user, which exists iff the
// user is in a group
func (m *Matchmaker) GetUser(ctx context.Context, userID uuid.UUID) (models.UserSession, error) {
	var sess models.UserSession
	err := m.store.View(ctx, func(t *session.Txn) error {
		s, ok := t.Session(userID)
		if !ok {
			return session.ErrPlayerNotInGroup
		}
		sess = s
		return nil
	})
	return sess, err
}

func (m *Matchmaker) GetGroup(ctx context.Context, groupID uuid.UUID) (models.Group, error) {
	var group models.Group
	err := m.store.View(ctx, func(t *session.Txn) error {
		g, ok := t.Group(groupID)
		if !ok {
			return session.ErrGroupDoesntExist
		}
		group = g
		return nil
	})
	return group, err
}

func (m *Matchmaker) GetParty(ctx context.Context, partyID uuid.UUID) (models.Party, error) {
	var party models.Party
	err := m.store.View(ctx, func(t *session.Txn) error {
		p, ok := t.Party(partyID)
		if !ok {
			return session.ErrPartyDoesntExist
		}
		party = p
		return nil
	})
	return party, err
}

func (m *Matchmaker) IsUserReady(ctx context.Context, userID uuid.UUID) (bool, error) {
	sess, err := m.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return sess.Ready, nil
}

// CreateGroup creates a fresh group for the game with the user as its only
// member
func (m *Matchmaker) CreateGroup(ctx context.Context, userID uuid.UUID, gameID int) (uuid.UUID, error) {
	if _, err := m.getGame(ctx, gameID); err != nil {
		return uuid.Nil, err
	}

	groupID := uuid.New()
	err := m.store.Update(ctx, session.Scope{GameID: gameID, UserIDs: []uuid.UUID{userID}}, func(t *session.Txn) error {
		if _, ok := t.Session(userID); ok {
			return session.ErrPlayerInGroupAlready
		}
		t.PutGroup(groupID, models.Group{
			State:   models.GroupCheck,
			Members: []uuid.UUID{userID},
			GameID:  gameID,
		})
		t.PutSession(userID, models.UserSession{GroupID: groupID})
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return groupID, nil
}

// JoinGroup adds the user to an existing group in GROUP_CHECK
func (m *Matchmaker) JoinGroup(ctx context.Context, groupID, userID uuid.UUID) error {
	group, err := m.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	game, err := m.getGame(ctx, group.GameID)
	if err != nil {
		return err
	}

	return m.store.Update(ctx, session.Scope{GameID: group.GameID, UserIDs: []uuid.UUID{userID}}, func(t *session.Txn) error {
		if _, ok := t.Session(userID); ok {
			return session.ErrPlayerInGroupAlready
		}
		group, ok := t.Group(groupID)
		if !ok {
			return session.ErrGroupDoesntExist
		}
		if group.State != models.GroupCheck {
			return &session.WrongGroupStateError{Current: group.State, Allowed: []models.GroupState{models.GroupCheck}}
		}
		if len(group.Members)+1 > game.Capacity {
			return session.ErrGroupIsFull
		}
		group.Members = append(group.Members, userID)
		t.PutGroup(groupID, group)
		t.PutSession(userID, models.UserSession{GroupID: groupID})
		return nil
	})
}

// LeaveGroup removes the user from their group. A group in queue leaves the
// queue first (the queue removal reads the full member set, so order
// matters); the last member leaving dissolves the group.
func (m *Matchmaker) LeaveGroup(ctx context.Context, userID uuid.UUID) error {
	scope, err := m.userScope(ctx, userID)
	if err != nil {
		return err
	}

	return m.store.Update(ctx, scope, func(t *session.Txn) error {
		sess, ok := t.Session(userID)
		if !ok {
			return session.ErrPlayerNotInGroup
		}
		group, ok := t.Group(sess.GroupID)
		if !ok {
			return session.ErrGroupDoesntExist
		}
		if group.State != models.GroupCheck && group.State != models.InQueue {
			return &session.WrongGroupStateError{
				Current: group.State,
				Allowed: []models.GroupState{models.GroupCheck, models.InQueue},
			}
		}
		if group.State == models.InQueue {
			if err := leaveQueue(t, sess.GroupID); err != nil {
				return err
			}
			group, _ = t.Group(sess.GroupID)
		}

		for i, member := range group.Members {
			if member == userID {
				group.Members = append(group.Members[:i], group.Members[i+1:]...)
				break
			}
		}
		t.DeleteSession(userID)
		if len(group.Members) == 0 {
			t.DeleteGroup(sess.GroupID)
		} else {
			t.PutGroup(sess.GroupID, group)
		}
		return nil
	})
}

// MarkReady marks the calling user as ready
func (m *Matchmaker) MarkReady(ctx context.Context, userID uuid.UUID) error {
	scope, err := m.userScope(ctx, userID)
	if err != nil {
		return err
	}

	return m.store.Update(ctx, scope, func(t *session.Txn) error {
		sess, ok := t.Session(userID)
		if !ok {
			return session.ErrPlayerNotInGroup
		}
		group, ok := t.Group(sess.GroupID)
		if !ok {
			return session.ErrGroupDoesntExist
		}
		if group.State != models.GroupCheck && group.State != models.PartyCheck {
			return &session.WrongGroupStateError{
				Current: group.State,
				Allowed: []models.GroupState{models.GroupCheck, models.PartyCheck},
			}
		}
		sess.Ready = true
		t.PutSession(userID, sess)
		return nil
	})
}

// MarkNotReady clears the calling user's readiness. During IN_QUEUE the
// whole group leaves the queue first; other members keep their readiness.
func (m *Matchmaker) MarkNotReady(ctx context.Context, userID uuid.UUID) error {
	scope, err := m.userScope(ctx, userID)
	if err != nil {
		return err
	}

	return m.store.Update(ctx, scope, func(t *session.Txn) error {
		sess, ok := t.Session(userID)
		if !ok {
			return session.ErrPlayerNotInGroup
		}
		group, ok := t.Group(sess.GroupID)
		if !ok {
			return session.ErrGroupDoesntExist
		}
		switch group.State {
		case models.GroupCheck, models.PartyCheck:
		case models.InQueue:
			if err := leaveQueue(t, sess.GroupID); err != nil {
				return err
			}
		default:
			return &session.WrongGroupStateError{
				Current: group.State,
				Allowed: []models.GroupState{models.GroupCheck, models.PartyCheck, models.InQueue},
			}
		}
		sess.Ready = false
		t.PutSession(userID, sess)
		return nil
	})
}

// LeaveQueue pulls the group out of the matchmaking queue and returns it to
// GROUP_CHECK
func (m *Matchmaker) LeaveQueue(ctx context.Context, groupID uuid.UUID) error {
	group, err := m.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}

	return m.store.Update(ctx, session.Scope{GameID: group.GameID}, func(t *session.Txn) error {
		return leaveQueue(t, groupID)
	})
}

// userScope resolves the game a user's group belongs to, for transaction
// scoping. Preconditions are re-checked inside the critical section.
func (m *Matchmaker) userScope(ctx context.Context, userID uuid.UUID) (session.Scope, error) {
	scope := session.Scope{UserIDs: []uuid.UUID{userID}}
	err := m.store.View(ctx, func(t *session.Txn) error {
		sess, ok := t.Session(userID)
		if !ok {
			return session.ErrPlayerNotInGroup
		}
		group, ok := t.Group(sess.GroupID)
		if !ok {
			return session.ErrGroupDoesntExist
		}
		scope.GameID = group.GameID
		return nil
	})
	return scope, err
}

// EndGame tears a party down: groups return to GROUP_CHECK, sessions and
// groups drop their party reference, slot and party are deleted. Invoked by
// the launcher on container exit.
func (m *Matchmaker) EndGame(ctx context.Context, partyID uuid.UUID) error {
	party, err := m.GetParty(ctx, partyID)
	if err != nil {
		return err
	}

	err = m.store.Update(ctx, session.Scope{GameID: party.GameID}, func(t *session.Txn) error {
		party, ok := t.Party(partyID)
		if !ok {
			return session.ErrPartyDoesntExist
		}
		slot, ok := t.Slot(party.SlotID)
		if ok {
			for _, groupID := range slot.Groups {
				group, ok := t.Group(groupID)
				if !ok {
					continue
				}
				group.State = models.GroupCheck
				group.PartyID = uuid.Nil
				group.SlotID = uuid.Nil
				t.PutGroup(groupID, group)

				for _, member := range group.Members {
					if sess, ok := t.Session(member); ok {
						sess.PartyID = uuid.Nil
						t.PutSession(member, sess)
					}
				}
			}
			t.DeleteSlot(party.SlotID)
		}
		t.DeleteParty(partyID)
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("[MATCHMAKER] party %s over", partyID)
	return m.bus.Publish(ctx, msg.PartyTopic(partyID), map[string]any{"type": "game:over"})
}
