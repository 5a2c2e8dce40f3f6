package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/webgames/backend/internal/models"
)

// Memory is an in-process Store for tests and database-free runs.
// No durability.
type Memory struct {
	mu         sync.RWMutex
	users      map[uuid.UUID]models.User
	games      map[int]models.Game
	nextGameID int
}

func NewMemory() *Memory {
	return &Memory{
		users:      make(map[uuid.UUID]models.User),
		games:      make(map[int]models.Game),
		nextGameID: 1,
	}
}

func (m *Memory) CreateUser(_ context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Name == user.Name || u.Email == user.Email {
			return &ConstraintError{Message: fmt.Sprintf("user %q already exists", user.Name)}
		}
	}
	m.users[user.UserID] = user
	return nil
}

func (m *Memory) GetUserByID(_ context.Context, userID uuid.UUID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (m *Memory) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.Name == login || user.Email == login {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) SetUserAdmin(_ context.Context, userID uuid.UUID, isAdmin bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.IsAdmin = isAdmin
	m.users[userID] = user
	return nil
}

func (m *Memory) SetUserVerified(_ context.Context, userID uuid.UUID, isVerified bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.IsVerified = isVerified
	m.users[userID] = user
	return nil
}

func (m *Memory) CreateGame(_ context.Context, name string, ownerID uuid.UUID, capacity int, image string, ports []int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if capacity < 1 {
		return 0, &ConstraintError{Message: "capacity must be at least 1"}
	}
	for _, g := range m.games {
		if g.Name == name {
			return 0, &ConstraintError{Message: fmt.Sprintf("game %q already exists", name)}
		}
	}

	portsArr := make(pq.Int64Array, len(ports))
	for i, port := range ports {
		portsArr[i] = int64(port)
	}

	gameID := m.nextGameID
	m.nextGameID++
	m.games[gameID] = models.Game{
		GameID:   gameID,
		Name:     name,
		OwnerID:  ownerID,
		Capacity: capacity,
		Image:    image,
		Ports:    portsArr,
	}
	return gameID, nil
}

func (m *Memory) GetGameByID(_ context.Context, gameID int) (*models.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	game, ok := m.games[gameID]
	if !ok {
		return nil, ErrNotFound
	}
	return &game, nil
}

func (m *Memory) GetGameByName(_ context.Context, name string) (*models.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, game := range m.games {
		if game.Name == name {
			g := game
			return &g, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) GetAllGames(_ context.Context) ([]models.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	games := make([]models.Game, 0, len(m.games))
	for id := 1; id < m.nextGameID; id++ {
		if game, ok := m.games[id]; ok {
			games = append(games, game)
		}
	}
	return games, nil
}

func (m *Memory) GetGamesByOwner(_ context.Context, ownerID uuid.UUID) ([]models.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var games []models.Game
	for id := 1; id < m.nextGameID; id++ {
		if game, ok := m.games[id]; ok && game.OwnerID == ownerID {
			games = append(games, game)
		}
	}
	return games, nil
}
