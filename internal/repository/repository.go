package repository

import (
	"database/sql"
	"errors"

	"github.com/gearguard/backend/internal/config"
)

// ErrDuplicateEmail is returned by CreateUser when the unique index on
// users.email rejects the insert.
var ErrDuplicateEmail = errors.New("email already registered")

type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
	}
}
