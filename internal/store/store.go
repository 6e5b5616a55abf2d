package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/backendbuddy/backendbuddy/internal/core/domain"
)

// ErrNotFound is returned when no project has been configured yet.
var ErrNotFound = errors.New("project config not found")

const schema = `
CREATE TABLE IF NOT EXISTS project_config (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	name TEXT NOT NULL DEFAULT '',
	directory TEXT NOT NULL DEFAULT '',
	command TEXT NOT NULL DEFAULT '',
	frontend_directory TEXT NOT NULL DEFAULT '',
	frontend_command TEXT NOT NULL DEFAULT '',
	port INTEGER NOT NULL DEFAULT 8000,
	lan_ip TEXT NOT NULL DEFAULT '',
	lan_enabled INTEGER NOT NULL DEFAULT 0,
	ngrok_enabled INTEGER NOT NULL DEFAULT 0,
	cloudflare_enabled INTEGER NOT NULL DEFAULT 0,
	queue_enabled INTEGER NOT NULL DEFAULT 1,
	max_concurrent_users INTEGER NOT NULL DEFAULT 1,
	prioritize_localhost INTEGER NOT NULL DEFAULT 1,
	updated_at TEXT NOT NULL DEFAULT ''
);
`

// Store persists the single project configuration row in SQLite. All hot
// settings (target port, queue flags, tunnel toggles) live here so they
// survive restarts.
type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", path, err)
	}

	// modernc.org/sqlite serialises writes itself but a single connection
	// avoids SQLITE_BUSY on concurrent updates.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialise store schema: %w", err)
	}

	s := &Store{db: db}
	if err := s.seedDefaults(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// seedDefaults inserts the default row if the table is empty so a fresh
// install starts with queueing on and one concurrent user.
func (s *Store) seedDefaults(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM project_config`).Scan(&count); err != nil {
		return fmt.Errorf("failed to check store state: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO project_config (id, name, port, queue_enabled, max_concurrent_users, prioritize_localhost, updated_at)
		VALUES (1, 'My Project', 8000, 1, 1, 1, ?)`,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to seed default config: %w", err)
	}
	return nil
}

// Get returns the current project configuration.
func (s *Store) Get(ctx context.Context) (*domain.ProjectConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, directory, command, frontend_directory, frontend_command,
		       port, lan_ip, lan_enabled, ngrok_enabled, cloudflare_enabled,
		       queue_enabled, max_concurrent_users, prioritize_localhost, updated_at
		FROM project_config WHERE id = 1`)

	var (
		cfg       domain.ProjectConfig
		updatedAt string
	)
	err := row.Scan(
		&cfg.Name, &cfg.Directory, &cfg.Command,
		&cfg.FrontendDirectory, &cfg.FrontendCommand,
		&cfg.Port, &cfg.LanIP, &cfg.LanEnabled,
		&cfg.NgrokEnabled, &cfg.CloudflareEnabled,
		&cfg.QueueEnabled, &cfg.MaxConcurrentUsers, &cfg.PrioritizeLocalhost,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project config: %w", err)
	}

	if updatedAt != "" {
		if t, perr := time.Parse(time.RFC3339, updatedAt); perr == nil {
			cfg.UpdatedAt = t
		}
	}
	return &cfg, nil
}

// Update applies the non-nil fields of the patch and returns the updated
// configuration.
func (s *Store) Update(ctx context.Context, patch domain.ConfigUpdate) (*domain.ProjectConfig, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	applyUpdate(current, patch)
	current.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		UPDATE project_config SET
			name = ?, directory = ?, command = ?,
			frontend_directory = ?, frontend_command = ?,
			port = ?, lan_ip = ?, lan_enabled = ?,
			ngrok_enabled = ?, cloudflare_enabled = ?,
			queue_enabled = ?, max_concurrent_users = ?, prioritize_localhost = ?,
			updated_at = ?
		WHERE id = 1`,
		current.Name, current.Directory, current.Command,
		current.FrontendDirectory, current.FrontendCommand,
		current.Port, current.LanIP, current.LanEnabled,
		current.NgrokEnabled, current.CloudflareEnabled,
		current.QueueEnabled, current.MaxConcurrentUsers, current.PrioritizeLocalhost,
		current.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update project config: %w", err)
	}
	return current, nil
}

func applyUpdate(cfg *domain.ProjectConfig, patch domain.ConfigUpdate) {
	if patch.Name != nil {
		cfg.Name = *patch.Name
	}
	if patch.Directory != nil {
		cfg.Directory = *patch.Directory
	}
	if patch.Command != nil {
		cfg.Command = *patch.Command
	}
	if patch.FrontendDirectory != nil {
		cfg.FrontendDirectory = *patch.FrontendDirectory
	}
	if patch.FrontendCommand != nil {
		cfg.FrontendCommand = *patch.FrontendCommand
	}
	if patch.Port != nil {
		cfg.Port = *patch.Port
	}
	if patch.LanIP != nil {
		cfg.LanIP = *patch.LanIP
	}
	if patch.LanEnabled != nil {
		cfg.LanEnabled = *patch.LanEnabled
	}
	if patch.NgrokEnabled != nil {
		cfg.NgrokEnabled = *patch.NgrokEnabled
	}
	if patch.CloudflareEnabled != nil {
		cfg.CloudflareEnabled = *patch.CloudflareEnabled
	}
	if patch.QueueEnabled != nil {
		cfg.QueueEnabled = *patch.QueueEnabled
	}
	if patch.MaxConcurrentUsers != nil {
		cfg.MaxConcurrentUsers = *patch.MaxConcurrentUsers
	}
	if patch.PrioritizeLocalhost != nil {
		cfg.PrioritizeLocalhost = *patch.PrioritizeLocalhost
	}
}
