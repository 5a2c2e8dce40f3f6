package matchmaker

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/webgames/backend/internal/models"
	"github.com/webgames/backend/internal/msg"
	"github.com/webgames/backend/internal/session"
)

// JoinQueue transitions the group to IN_QUEUE and packs it into the oldest
// partial slot that still fits. A slot reaching capacity leaves the queue
// and the party launch is scheduled asynchronously.
func (m *Matchmaker) JoinQueue(ctx context.Context, groupID uuid.UUID) error {
	peek, err := m.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	game, err := m.getGame(ctx, peek.GameID)
	if err != nil {
		return err
	}

	var launched uuid.UUID
	err = m.store.Update(ctx, session.Scope{GameID: peek.GameID}, func(t *session.Txn) error {
		launched = uuid.Nil

		group, ok := t.Group(groupID)
		if !ok {
			return session.ErrGroupDoesntExist
		}
		if group.State != models.GroupCheck {
			return &session.WrongGroupStateError{Current: group.State, Allowed: []models.GroupState{models.GroupCheck}}
		}
		for _, member := range group.Members {
			sess, ok := t.Session(member)
			if !ok || !sess.Ready {
				return session.ErrGroupNotReady
			}
		}

		group.State = models.InQueue
		size := len(group.Members)
		capacity := game.Capacity
		queue := t.Queue(group.GameID)

		// Packing pass: oldest partial slot first, never skipped for a
		// smaller group
		placed := false
		for i, slotID := range queue {
			slot, ok := t.Slot(slotID)
			if !ok {
				continue
			}
			occupied := len(slot.Players)
			if occupied+size > capacity {
				continue
			}

			slot.Players = append(slot.Players, group.Members...)
			slot.Groups = append(slot.Groups, groupID)
			t.PutSlot(slotID, slot)
			group.SlotID = slotID
			placed = true

			if occupied+size == capacity {
				t.PutQueue(group.GameID, append(queue[:i:i], queue[i+1:]...))
				launched = slotID
			}
			break
		}

		// Overflow: no slot accepted, open a fresh one
		if !placed {
			slotID := uuid.New()
			t.PutSlot(slotID, models.Slot{
				GameID:  group.GameID,
				Players: append([]uuid.UUID(nil), group.Members...),
				Groups:  []uuid.UUID{groupID},
			})
			group.SlotID = slotID
			if size == capacity {
				launched = slotID
			} else {
				t.PutQueue(group.GameID, append(queue, slotID))
			}
		}

		t.PutGroup(groupID, group)
		return nil
	})
	if err != nil {
		return err
	}

	if launched != uuid.Nil {
		slotID := launched
		go func() {
			// The request that filled the slot is done; the launch runs on
			// its own lifetime
			if err := m.StartGame(context.Background(), peek.GameID, slotID); err != nil {
				log.Printf("[MATCHMAKER] start game %d slot %s: %v", peek.GameID, slotID, err)
			}
		}()
	}
	return nil
}

// leaveQueue removes the group and all its members from its slot, dropping
// the slot entirely when it empties, and returns the group to GROUP_CHECK
func leaveQueue(t *session.Txn, groupID uuid.UUID) error {
	group, ok := t.Group(groupID)
	if !ok {
		return session.ErrGroupDoesntExist
	}
	if group.State != models.InQueue {
		return &session.WrongGroupStateError{Current: group.State, Allowed: []models.GroupState{models.InQueue}}
	}

	if slot, ok := t.Slot(group.SlotID); ok {
		for i, id := range slot.Groups {
			if id == groupID {
				slot.Groups = append(slot.Groups[:i], slot.Groups[i+1:]...)
				break
			}
		}
		members := make(map[uuid.UUID]bool, len(group.Members))
		for _, member := range group.Members {
			members[member] = true
		}
		players := slot.Players[:0]
		for _, player := range slot.Players {
			if !members[player] {
				players = append(players, player)
			}
		}
		slot.Players = players

		if len(slot.Groups) == 0 {
			queue := t.Queue(group.GameID)
			for i, id := range queue {
				if id == group.SlotID {
					queue = append(queue[:i], queue[i+1:]...)
					break
				}
			}
			t.PutQueue(group.GameID, queue)
			t.DeleteSlot(group.SlotID)
		} else {
			t.PutSlot(group.SlotID, slot)
		}
	}

	group.SlotID = uuid.Nil
	group.State = models.GroupCheck
	t.PutGroup(groupID, group)
	return nil
}

// StartGame promotes a full slot into a party: groups turn PLAYING, every
// member session gets the party id, host and external ports are allocated,
// and the container launch is handed off.
func (m *Matchmaker) StartGame(ctx context.Context, gameID int, slotID uuid.UUID) error {
	game, err := m.getGame(ctx, gameID)
	if err != nil {
		return err
	}

	partyID := uuid.New()
	var party models.Party
	var groups []uuid.UUID

	err = m.store.Update(ctx, session.Scope{GameID: gameID}, func(t *session.Txn) error {
		slot, ok := t.Slot(slotID)
		if !ok {
			return session.ErrNotFound
		}

		ports, err := m.allocatePorts(t, len(game.Ports))
		if err != nil {
			return err
		}
		party = models.Party{
			GameID: gameID,
			SlotID: slotID,
			Host:   m.cfg.GameHost,
			Ports:  ports,
		}

		for _, groupID := range slot.Groups {
			group, ok := t.Group(groupID)
			if !ok {
				return session.ErrGroupDoesntExist
			}
			group.State = models.Playing
			group.PartyID = partyID
			t.PutGroup(groupID, group)
		}
		for _, player := range slot.Players {
			sess, ok := t.Session(player)
			if !ok {
				return session.ErrPlayerNotInGroup
			}
			sess.PartyID = partyID
			t.PutSession(player, sess)
		}

		t.PutParty(partyID, party)
		groups = slot.Groups
		return nil
	})
	if err != nil {
		return err
	}

	for _, groupID := range groups {
		payload := map[string]any{"type": "game:starting", "partyid": partyID.String()}
		if err := m.bus.Publish(ctx, msg.GroupTopic(groupID), payload); err != nil {
			log.Printf("[MATCHMAKER] publish game:starting to group %s: %v", groupID, err)
		}
	}

	log.Printf("[MATCHMAKER] party %s started (game %d, host %s, ports %v)",
		partyID, gameID, party.Host, party.Ports)

	if m.launch != nil {
		go m.launch(*game, partyID, party)
	}
	return nil
}
