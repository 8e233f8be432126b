package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB with salonkit-specific helpers.
type DB struct {
	*sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	d := &DB{DB: sqlDB, path: path}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// OpenMemory creates an in-memory SQLite database (useful for testing).
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}

	d := &DB{DB: sqlDB, path: ":memory:"}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// migrate runs all schema migrations.
func (d *DB) migrate() error {
	if _, err := d.Exec(schema); err != nil {
		return err
	}
	return d.seedAbilityDimensions()
}

// seedAbilityDimensions inserts the fixed scoring dimensions if absent.
func (d *DB) seedAbilityDimensions() error {
	dimensions := []struct{ name, description string }{
		{"color_accuracy", "How faithfully colors match the design plan"},
		{"shape_precision", "Nail shape and outline control"},
		{"detail_fidelity", "Reproduction of fine patterns and decorations"},
		{"surface_finish", "Smoothness and gloss of the finished surface"},
		{"composition", "Overall balance and placement across nails"},
		{"durability_technique", "Application technique affecting wear"},
	}
	for _, dim := range dimensions {
		_, err := d.Exec(
			"INSERT OR IGNORE INTO ability_dimensions (name, description) VALUES (?, ?)",
			dim.name, dim.description,
		)
		if err != nil {
			return fmt.Errorf("seeding dimension %s: %w", dim.name, err)
		}
	}
	return nil
}

// schema contains the full database schema. New tables are added here.
const schema = `
CREATE TABLE IF NOT EXISTS conversations (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'active' CHECK(status IN ('active','completed','abandoned')),
    current_step TEXT NOT NULL DEFAULT 'greeting',
    context TEXT NOT NULL DEFAULT '{}',
    step_summaries TEXT NOT NULL DEFAULT '[]',
    file_path TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
    completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_conversations_owner ON conversations(owner_id, created_at);
CREATE INDEX IF NOT EXISTS idx_conversations_status ON conversations(status);

CREATE TABLE IF NOT EXISTS customers (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    name TEXT NOT NULL,
    phone TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_customers_owner ON customers(owner_id);
CREATE INDEX IF NOT EXISTS idx_customers_name ON customers(name);
CREATE INDEX IF NOT EXISTS idx_customers_phone ON customers(phone);

CREATE TABLE IF NOT EXISTS customer_profiles (
    customer_id TEXT PRIMARY KEY REFERENCES customers(id) ON DELETE CASCADE,
    nail_shape TEXT NOT NULL DEFAULT '',
    nail_length TEXT NOT NULL DEFAULT '',
    color_preferences TEXT NOT NULL DEFAULT '',
    style_preferences TEXT NOT NULL DEFAULT '',
    allergies TEXT NOT NULL DEFAULT '',
    prohibitions TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS design_plans (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    customer_id TEXT,
    parent_id TEXT,
    version INTEGER NOT NULL DEFAULT 1,
    prompt TEXT NOT NULL,
    design_target TEXT NOT NULL DEFAULT '10nails' CHECK(design_target IN ('single','5nails','10nails')),
    style_keywords TEXT NOT NULL DEFAULT '[]',
    reference_images TEXT NOT NULL DEFAULT '[]',
    generated_image_path TEXT NOT NULL DEFAULT '',
    estimated_duration INTEGER NOT NULL DEFAULT 0,
    difficulty_level TEXT NOT NULL DEFAULT '',
    estimated_materials TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_design_plans_owner ON design_plans(owner_id);
CREATE INDEX IF NOT EXISTS idx_design_plans_customer ON design_plans(customer_id);

CREATE TABLE IF NOT EXISTS service_records (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    design_plan_id TEXT,
    service_date TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending','completed')),
    actual_image_path TEXT NOT NULL DEFAULT '',
    service_duration INTEGER NOT NULL DEFAULT 0,
    materials_used TEXT NOT NULL DEFAULT '',
    artist_review TEXT NOT NULL DEFAULT '',
    customer_feedback TEXT NOT NULL DEFAULT '',
    customer_satisfaction INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_service_records_owner ON service_records(owner_id, service_date);
CREATE INDEX IF NOT EXISTS idx_service_records_customer ON service_records(customer_id);

CREATE TABLE IF NOT EXISTS comparison_results (
    id TEXT PRIMARY KEY,
    service_record_id TEXT NOT NULL UNIQUE REFERENCES service_records(id) ON DELETE CASCADE,
    similarity_score REAL NOT NULL DEFAULT 0,
    differences TEXT NOT NULL DEFAULT '{}',
    suggestions TEXT NOT NULL DEFAULT '[]',
    contextual_insights TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS ability_dimensions (
    name TEXT PRIMARY KEY,
    description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS ability_records (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    service_record_id TEXT NOT NULL REFERENCES service_records(id) ON DELETE CASCADE,
    dimension TEXT NOT NULL REFERENCES ability_dimensions(name),
    score REAL NOT NULL,
    evidence TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_ability_records_owner ON ability_records(owner_id, dimension);
CREATE INDEX IF NOT EXISTS idx_ability_records_service ON ability_records(service_record_id);

CREATE TABLE IF NOT EXISTS inspiration_images (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '[]',
    image_path TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_inspirations_owner ON inspiration_images(owner_id);
CREATE INDEX IF NOT EXISTS idx_inspirations_category ON inspiration_images(category);
`
