package database

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations are embedded rather than read from disk so the binary is
// self-contained. Versions must be strictly increasing.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "reference_graph",
		SQL: `
		CREATE TABLE IF NOT EXISTS graph_nodes (
			node_id   INTEGER PRIMARY KEY,
			latitude  REAL NOT NULL,
			longitude REAL NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_graph_nodes_lat_lng ON graph_nodes(latitude, longitude);

		CREATE TABLE IF NOT EXISTS graph_edges (
			edge_id      TEXT PRIMARY KEY,
			node_a       INTEGER NOT NULL,
			node_b       INTEGER NOT NULL,
			way_id       INTEGER NOT NULL,
			way_name     TEXT NOT NULL DEFAULT '',
			highway_type TEXT NOT NULL DEFAULT '',
			length_m     REAL NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_graph_edges_way ON graph_edges(way_id);

		CREATE TABLE IF NOT EXISTS ways (
			way_id         INTEGER PRIMARY KEY,
			name           TEXT NOT NULL DEFAULT '',
			node_count     INTEGER NOT NULL,
			total_length_m REAL NOT NULL
		);

		CREATE TABLE IF NOT EXISTS way_nodes (
			way_id   INTEGER NOT NULL,
			node_id  INTEGER NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (way_id, position)
		);
		CREATE INDEX IF NOT EXISTS idx_way_nodes_node ON way_nodes(node_id);
		`,
	},
	{
		Version: 2,
		Name:    "user_coverage",
		SQL: `
		CREATE TABLE IF NOT EXISTS user_node_hits (
			user_id      TEXT NOT NULL,
			node_id      INTEGER NOT NULL,
			first_hit_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, node_id)
		);

		CREATE TABLE IF NOT EXISTS user_edges (
			user_id      TEXT NOT NULL,
			edge_id      TEXT NOT NULL,
			node_a       INTEGER NOT NULL,
			node_b       INTEGER NOT NULL,
			way_id       INTEGER NOT NULL,
			way_name     TEXT NOT NULL DEFAULT '',
			highway_type TEXT NOT NULL DEFAULT '',
			length_m     REAL NOT NULL,
			first_run_at TIMESTAMP NOT NULL,
			run_count    INTEGER NOT NULL DEFAULT 1,
			PRIMARY KEY (user_id, edge_id)
		);
		CREATE INDEX IF NOT EXISTS idx_user_edges_way ON user_edges(user_id, way_id);

		CREATE TABLE IF NOT EXISTS user_street_progress (
			user_id          TEXT NOT NULL,
			street_key       TEXT NOT NULL,
			display_name     TEXT NOT NULL DEFAULT '',
			percentage       REAL NOT NULL DEFAULT 0,
			run_count        INTEGER NOT NULL DEFAULT 0,
			completion_count INTEGER NOT NULL DEFAULT 0,
			ever_completed   INTEGER NOT NULL DEFAULT 0,
			first_run_date   TIMESTAMP NOT NULL,
			last_run_date    TIMESTAMP,
			PRIMARY KEY (user_id, street_key)
		);
		`,
	},
	{
		Version: 3,
		Name:    "areas_and_activity_log",
		SQL: `
		CREATE TABLE IF NOT EXISTS areas (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    TEXT NOT NULL,
			name       TEXT NOT NULL,
			latitude   REAL NOT NULL,
			longitude  REAL NOT NULL,
			radius_m   REAL NOT NULL,
			archived   INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			last_activity_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_areas_user ON areas(user_id);

		CREATE TABLE IF NOT EXISTS processed_activities (
			user_id      TEXT NOT NULL,
			fingerprint  TEXT NOT NULL,
			units_hit    INTEGER NOT NULL,
			processed_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, fingerprint)
		);
		`,
	},
}

// Migrate applies all pending migrations in version order.
func Migrate(db *sql.DB) error {
	if err := initMigrationsTable(db); err != nil {
		return err
	}

	applied, err := appliedMigrations(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if err := apply(db, m); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", m.Version, m.Name, err)
		}
		log.Printf("[Database] Applied migration %d: %s", m.Version, m.Name)
	}

	return nil
}

func initMigrationsTable(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func appliedMigrations(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query("SELECT version FROM migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

func apply(db *sql.DB, m Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.SQL); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)", m.Version, m.Name); err != nil {
		return err
	}

	return tx.Commit()
}
