package session

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/webgames/backend/internal/models"
)

// backing is the raw key/value view a Txn stages its reads and writes over.
// The memory store backs it with maps, the redis store with GETs issued on
// the watched connection.
type backing interface {
	get(key string) ([]byte, bool, error)
}

const partyIndexKey = "party-index"

func sessionKey(userID uuid.UUID) string { return "session:" + userID.String() }
func groupKey(groupID uuid.UUID) string  { return "group:" + groupID.String() }
func slotKey(slotID uuid.UUID) string    { return "slot:" + slotID.String() }
func partyKey(partyID uuid.UUID) string  { return "party:" + partyID.String() }
func queueKey(gameID int) string         { return "queue:" + strconv.Itoa(gameID) }

type pending struct {
	data    []byte
	present bool
}

// Txn is an atomic view over the transient entities. Reads go through a
// cache, writes are staged and only reach the backing store when the
// surrounding Update commits. Decode failures are sticky and abort the
// commit.
type Txn struct {
	base  backing
	cache map[string]pending
	dirty map[string]bool
	err   error
}

func newTxn(base backing) *Txn {
	return &Txn{
		base:  base,
		cache: make(map[string]pending),
		dirty: make(map[string]bool),
	}
}

func (t *Txn) load(key string) ([]byte, bool) {
	if p, ok := t.cache[key]; ok {
		return p.data, p.present
	}
	data, present, err := t.base.get(key)
	if err != nil && t.err == nil {
		t.err = err
	}
	t.cache[key] = pending{data: data, present: present}
	return data, present
}

func (t *Txn) getJSON(key string, out any) bool {
	data, present := t.load(key)
	if !present {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil && t.err == nil {
		t.err = fmt.Errorf("corrupted entry %s: %w", key, err)
		return false
	}
	return true
}

func (t *Txn) putJSON(key string, val any) {
	data, err := json.Marshal(val)
	if err != nil {
		if t.err == nil {
			t.err = err
		}
		return
	}
	t.cache[key] = pending{data: data, present: true}
	t.dirty[key] = true
}

func (t *Txn) delete(key string) {
	t.cache[key] = pending{}
	t.dirty[key] = true
}

// Err reports the first decode or backing failure seen by this Txn
func (t *Txn) Err() error { return t.err }

func (t *Txn) writes() map[string]pending {
	out := make(map[string]pending, len(t.dirty))
	for key := range t.dirty {
		out[key] = t.cache[key]
	}
	return out
}

func (t *Txn) Session(userID uuid.UUID) (models.UserSession, bool) {
	var s models.UserSession
	ok := t.getJSON(sessionKey(userID), &s)
	return s, ok
}

func (t *Txn) PutSession(userID uuid.UUID, s models.UserSession) {
	t.putJSON(sessionKey(userID), s)
}

func (t *Txn) DeleteSession(userID uuid.UUID) {
	t.delete(sessionKey(userID))
}

func (t *Txn) Group(groupID uuid.UUID) (models.Group, bool) {
	var g models.Group
	ok := t.getJSON(groupKey(groupID), &g)
	return g, ok
}

func (t *Txn) PutGroup(groupID uuid.UUID, g models.Group) {
	t.putJSON(groupKey(groupID), g)
}

func (t *Txn) DeleteGroup(groupID uuid.UUID) {
	t.delete(groupKey(groupID))
}

func (t *Txn) Slot(slotID uuid.UUID) (models.Slot, bool) {
	var s models.Slot
	ok := t.getJSON(slotKey(slotID), &s)
	return s, ok
}

func (t *Txn) PutSlot(slotID uuid.UUID, s models.Slot) {
	t.putJSON(slotKey(slotID), s)
}

func (t *Txn) DeleteSlot(slotID uuid.UUID) {
	t.delete(slotKey(slotID))
}

// Queue returns the FIFO of partially filled slot ids for a game
func (t *Txn) Queue(gameID int) []uuid.UUID {
	var q []uuid.UUID
	t.getJSON(queueKey(gameID), &q)
	return q
}

func (t *Txn) PutQueue(gameID int, slots []uuid.UUID) {
	if len(slots) == 0 {
		t.delete(queueKey(gameID))
		return
	}
	t.putJSON(queueKey(gameID), slots)
}

func (t *Txn) Party(partyID uuid.UUID) (models.Party, bool) {
	var p models.Party
	ok := t.getJSON(partyKey(partyID), &p)
	return p, ok
}

func (t *Txn) PutParty(partyID uuid.UUID, p models.Party) {
	t.putJSON(partyKey(partyID), p)
	index := t.PartyIDs()
	for _, id := range index {
		if id == partyID {
			return
		}
	}
	t.putJSON(partyIndexKey, append(index, partyID))
}

func (t *Txn) DeleteParty(partyID uuid.UUID) {
	t.delete(partyKey(partyID))
	index := t.PartyIDs()
	for i, id := range index {
		if id == partyID {
			index = append(index[:i], index[i+1:]...)
			break
		}
	}
	if len(index) == 0 {
		t.delete(partyIndexKey)
		return
	}
	t.putJSON(partyIndexKey, index)
}

// PartyIDs lists every live party, used for process-wide port collision
// checks during allocation
func (t *Txn) PartyIDs() []uuid.UUID {
	var index []uuid.UUID
	t.getJSON(partyIndexKey, &index)
	return index
}
