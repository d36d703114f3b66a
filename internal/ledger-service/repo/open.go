package repo

import (
	"context"
	"fmt"

	"github.com/radieske/pool-ledger/internal/shared/db"
)

// Open conecta no driver configurado ("postgres" ou "sqlite") e aplica o schema
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var s *Store
	switch driver {
	case "postgres":
		pg, err := db.ConnectPostgres(dsn)
		if err != nil {
			return nil, err
		}
		s = NewPostgres(pg)
	case "sqlite":
		lite, err := db.ConnectSQLite(dsn)
		if err != nil {
			return nil, err
		}
		s = NewSQLite(lite)
	default:
		return nil, fmt.Errorf("repo: unknown store driver %q", driver)
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
