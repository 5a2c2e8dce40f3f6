package session

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store. A single mutex serializes every critical
// section, which is all the cooperative model needs. No durability.
type Memory struct {
	mu      sync.Mutex
	data    map[string][]byte
	revoked map[string]time.Time
}

func NewMemory() *Memory {
	return &Memory{
		data:    make(map[string][]byte),
		revoked: make(map[string]time.Time),
	}
}

type memoryBacking struct {
	data map[string][]byte
}

func (b *memoryBacking) get(key string) ([]byte, bool, error) {
	data, ok := b.data[key]
	return data, ok, nil
}

func (m *Memory) Update(_ context.Context, _ Scope, fn func(*Txn) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	txn := newTxn(&memoryBacking{data: m.data})
	if err := fn(txn); err != nil {
		return err
	}
	if err := txn.Err(); err != nil {
		return err
	}

	for key, p := range txn.writes() {
		if p.present {
			m.data[key] = p.data
		} else {
			delete(m.data, key)
		}
	}
	return nil
}

func (m *Memory) View(_ context.Context, fn func(*Txn) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	txn := newTxn(&memoryBacking{data: m.data})
	if err := fn(txn); err != nil {
		return err
	}
	return txn.Err()
}

func (m *Memory) RevokeToken(_ context.Context, tokenID string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for id, exp := range m.revoked {
		if exp.Before(now) {
			delete(m.revoked, id)
		}
	}
	m.revoked[tokenID] = expiry
	return nil
}

func (m *Memory) IsTokenRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.revoked[tokenID]
	if !ok {
		return false, nil
	}
	return expiry.After(time.Now()), nil
}
