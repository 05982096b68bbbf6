package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pinger adapts a pool to the health check.
type Pinger struct {
	db *pgxpool.Pool
}

func NewPinger(db *pgxpool.Pool) *Pinger {
	return &Pinger{db: db}
}

func (p *Pinger) Name() string { return "postgres" }

func (p *Pinger) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}
