package db

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const DriverPgx = "pgx"

type Postgres struct {
	sqlDB
	dsn string
}

func NewPostgres(dsn string) *Postgres {
	return &Postgres{
		sqlDB: sqlDB{driver: DriverPgx, rebind: dollarRebind},
		dsn:   dsn,
	}
}

func (p *Postgres) InitDB() error {
	var err error
	p.conn, err = sql.Open(DriverPgx, p.dsn)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.conn.PingContext(ctx); err != nil {
		return err
	}

	if err := migrate(p); err != nil {
		return err
	}

	dbLogger.Info().Msg("Database initialized")
	return nil
}
