package identity

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/webgames/backend/internal/models"
)

// Postgres implements Store on top of sqlx/postgres
type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// classify maps driver errors onto the store's error kinds. Integrity
// violations (class 23) keep their native message; everything else that is
// not a missing row is treated as transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "23" {
		return &ConstraintError{Message: pqErr.Message}
	}
	return err
}

// withRetry retries f once when the failure is neither not-found nor a
// constraint violation.
func withRetry(f func() error) error {
	err := classify(f())
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	var cerr *ConstraintError
	if errors.As(err, &cerr) {
		return err
	}
	log.Printf("[IDENTITY] transient error, retrying once: %v", err)
	return classify(f())
}

func (p *Postgres) CreateUser(ctx context.Context, user models.User) error {
	return withRetry(func() error {
		_, err := p.db.ExecContext(ctx, `
			INSERT INTO users (userid, name, email, password, isverified, isadmin)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, user.UserID, user.Name, user.Email, user.PasswordHash, user.IsVerified, user.IsAdmin)
		return err
	})
}

func (p *Postgres) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := withRetry(func() error {
		return p.db.GetContext(ctx, &user, `
			SELECT userid, name, email, password, isverified, isadmin
			FROM users WHERE userid = $1
		`, userID)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (p *Postgres) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	var user models.User
	err := withRetry(func() error {
		return p.db.GetContext(ctx, &user, `
			SELECT userid, name, email, password, isverified, isadmin
			FROM users WHERE name = $1 OR email = $1
		`, login)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (p *Postgres) SetUserAdmin(ctx context.Context, userID uuid.UUID, isAdmin bool) error {
	return p.setUserFlag(ctx, "isadmin", userID, isAdmin)
}

func (p *Postgres) SetUserVerified(ctx context.Context, userID uuid.UUID, isVerified bool) error {
	return p.setUserFlag(ctx, "isverified", userID, isVerified)
}

func (p *Postgres) setUserFlag(ctx context.Context, column string, userID uuid.UUID, value bool) error {
	return withRetry(func() error {
		res, err := p.db.ExecContext(ctx,
			`UPDATE users SET `+column+` = $1 WHERE userid = $2`, value, userID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

func (p *Postgres) CreateGame(ctx context.Context, name string, ownerID uuid.UUID, capacity int, image string, ports []int) (int, error) {
	portsArr := make(pq.Int64Array, len(ports))
	for i, port := range ports {
		portsArr[i] = int64(port)
	}

	var gameID int
	err := withRetry(func() error {
		return p.db.QueryRowContext(ctx, `
			INSERT INTO games (name, ownerid, capacity, image, ports)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING gameid
		`, name, ownerID, capacity, image, portsArr).Scan(&gameID)
	})
	if err != nil {
		return 0, err
	}
	return gameID, nil
}

func (p *Postgres) GetGameByID(ctx context.Context, gameID int) (*models.Game, error) {
	var game models.Game
	err := withRetry(func() error {
		return p.db.GetContext(ctx, &game, `
			SELECT gameid, name, ownerid, capacity, image, ports
			FROM games WHERE gameid = $1
		`, gameID)
	})
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func (p *Postgres) GetGameByName(ctx context.Context, name string) (*models.Game, error) {
	var game models.Game
	err := withRetry(func() error {
		return p.db.GetContext(ctx, &game, `
			SELECT gameid, name, ownerid, capacity, image, ports
			FROM games WHERE name = $1
		`, name)
	})
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func (p *Postgres) GetAllGames(ctx context.Context) ([]models.Game, error) {
	var games []models.Game
	err := withRetry(func() error {
		return p.db.SelectContext(ctx, &games, `
			SELECT gameid, name, ownerid, capacity, image, ports
			FROM games ORDER BY gameid
		`)
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return games, nil
}

func (p *Postgres) GetGamesByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Game, error) {
	var games []models.Game
	err := withRetry(func() error {
		return p.db.SelectContext(ctx, &games, `
			SELECT gameid, name, ownerid, capacity, image, ports
			FROM games WHERE ownerid = $1 ORDER BY gameid
		`, ownerID)
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return games, nil
}
