package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	migrate "github.com/rubenv/sql-migrate"
	_ "modernc.org/sqlite"
)

var migrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "001_create_kv",
			Up: []string{`
				CREATE TABLE IF NOT EXISTS kv (
					key   TEXT PRIMARY KEY,
					value TEXT NOT NULL
				);
			`},
			Down: []string{`DROP TABLE kv;`},
		},
		{
			Id: "002_create_prompts",
			Up: []string{`
				CREATE TABLE IF NOT EXISTS prompts (
					id        INTEGER PRIMARY KEY AUTOINCREMENT,
					chat_id   INTEGER NOT NULL,
					prompt    TEXT NOT NULL,
					from_user TEXT NOT NULL DEFAULT ''
				);
			`},
			Down: []string{`DROP TABLE prompts;`},
		},
	},
}

func NewSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// modernc sqlite serializes writes itself; a single connection avoids
	// SQLITE_BUSY under the bot's concurrent handlers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging sqlite database: %w", err)
	}

	n, err := migrate.Exec(db, "sqlite3", migrations, migrate.Up)
	if err != nil {
		return nil, fmt.Errorf("applying migrations: %w", err)
	}

	slog.Info("database ready", "path", path, "migrationsApplied", n)

	return db, nil
}
