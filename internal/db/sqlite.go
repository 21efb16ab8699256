package db

import (
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const DriverSQLite = "sqlite3"

type SQLite struct {
	sqlDB
	dsn string
}

func NewSQLite(dsn string) *SQLite {
	return &SQLite{
		sqlDB: sqlDB{driver: DriverSQLite, rebind: noRebind},
		dsn:   dsn,
	}
}

func (s *SQLite) InitDB() error {
	var err error
	s.conn, err = sql.Open(DriverSQLite, sqliteDSN(s.dsn))
	if err != nil {
		return err
	}

	// A single connection serializes writers and keeps `:memory:` databases shared.
	s.conn.SetMaxOpenConns(1)

	if err := migrate(s); err != nil {
		return err
	}

	dbLogger.Info().Str("dsn", s.dsn).Msg("Database initialized")
	return nil
}

func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "./roteiro.db"
	}
	if strings.Contains(dsn, "_foreign_keys") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=1"
	}
	return dsn + "?_foreign_keys=1"
}
