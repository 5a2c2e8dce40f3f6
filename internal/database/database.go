package database

import (
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect opens the identity database and verifies it is reachable
func Connect(databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	// Accounts and the game catalog are read-mostly; matchmaking state
	// lives in redis, so a small pool covers the identity traffic
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(4)

	return db, nil
}
