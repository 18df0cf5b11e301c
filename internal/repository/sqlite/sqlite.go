package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"neurosim/internal/domain"
	"neurosim/internal/repository"

	_ "modernc.org/sqlite"
)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *sql.DB
}

var _ repository.Repository = (*Repository)(nil)

// New creates a new SQLite repository. Pass ":memory:" for a throwaway database.
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers anyway; a single connection also keeps
	// :memory: databases from splitting across pool connections.
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		hash TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS neurons (
		owner_id TEXT NOT NULL,
		id TEXT NOT NULL,
		threshold REAL NOT NULL,
		x REAL,
		y REAL,
		PRIMARY KEY (owner_id, id)
	);

	CREATE TABLE IF NOT EXISTS connections (
		owner_id TEXT NOT NULL,
		from_id TEXT NOT NULL,
		to_id TEXT NOT NULL,
		UNIQUE (owner_id, from_id, to_id),
		FOREIGN KEY (owner_id, from_id) REFERENCES neurons(owner_id, id) ON DELETE CASCADE,
		FOREIGN KEY (owner_id, to_id) REFERENCES neurons(owner_id, id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS firing_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id TEXT NOT NULL,
		neuron_id TEXT NOT NULL,
		fired_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_connections_owner ON connections(owner_id);
	CREATE INDEX IF NOT EXISTS idx_firing_events_owner ON firing_events(owner_id, fired_at);
	`

	_, err := r.db.Exec(schema)
	return err
}

// ============================================================================
// Network Operations
// ============================================================================

// SaveNeuron inserts a neuron for owner, replacing threshold and position if
// the ID already exists
func (r *Repository) SaveNeuron(ctx context.Context, rec domain.NeuronRecord, owner string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO neurons (`+neuronInsertColumns+`)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, id) DO UPDATE SET
			threshold = excluded.threshold,
			x = excluded.x,
			y = excluded.y
	`, neuronInsertArgs(rec, owner)...)
	if err != nil {
		return fmt.Errorf("failed to save neuron %s: %w", rec.ID, err)
	}
	return nil
}

// SaveConnection stores the edge fromID -> toID. Repeated edges are ignored.
func (r *Repository) SaveConnection(ctx context.Context, fromID, toID, owner string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO connections (owner_id, from_id, to_id)
		VALUES (?, ?, ?)
	`, owner, fromID, toID)
	if err != nil {
		return fmt.Errorf("failed to save connection %s -> %s: %w", fromID, toID, err)
	}
	return nil
}

// LoadNeurons returns the owner's neurons in insertion order
func (r *Repository) LoadNeurons(ctx context.Context, owner string) ([]domain.NeuronRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+neuronColumns+`
		FROM neurons
		WHERE owner_id = ?
		ORDER BY rowid
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query neurons: %w", err)
	}
	defer rows.Close()

	records := make([]domain.NeuronRecord, 0)
	for rows.Next() {
		var row neuronRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan neuron: %w", err)
		}
		records = append(records, row.toDomain())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating neurons: %w", err)
	}
	return records, nil
}

// LoadConnections returns the owner's edges in insertion order
func (r *Repository) LoadConnections(ctx context.Context, owner string) ([]domain.Connection, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT from_id, to_id
		FROM connections
		WHERE owner_id = ?
		ORDER BY rowid
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer rows.Close()

	conns := make([]domain.Connection, 0)
	for rows.Next() {
		var c domain.Connection
		if err := rows.Scan(&c.FromID, &c.ToID); err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		conns = append(conns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating connections: %w", err)
	}
	return conns, nil
}

// DeleteOwnerNetwork removes the owner's connections, firing events and
// neurons in a single transaction
func (r *Repository) DeleteOwnerNetwork(ctx context.Context, owner string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Order matters due to foreign keys
	for _, table := range []string{"connections", "firing_events", "neurons"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE owner_id = ?`, owner); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ============================================================================
// Firing History
// ============================================================================

// AppendFiringEvent records one firing of neuronID at the given time
func (r *Repository) AppendFiringEvent(ctx context.Context, neuronID, owner string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO firing_events (owner_id, neuron_id, fired_at)
		VALUES (?, ?, ?)
	`, owner, neuronID, timeToUnix(at))
	if err != nil {
		return fmt.Errorf("failed to record firing of %s: %w", neuronID, err)
	}
	return nil
}

// LoadFiringEvents returns the owner's firing history ordered by time
func (r *Repository) LoadFiringEvents(ctx context.Context, owner string) ([]domain.FiringEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT neuron_id, fired_at
		FROM firing_events
		WHERE owner_id = ?
		ORDER BY fired_at, id
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query firing events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.FiringEvent, 0)
	for rows.Next() {
		var (
			e       domain.FiringEvent
			firedAt int64
		)
		if err := rows.Scan(&e.NeuronID, &firedAt); err != nil {
			return nil, fmt.Errorf("failed to scan firing event: %w", err)
		}
		e.FiredAt = unixToTime(firedAt)
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating firing events: %w", err)
	}
	return events, nil
}

// ============================================================================
// User Operations
// ============================================================================

// CreateUser inserts a new account. It returns domain.ErrUsernameTaken if the
// username is already registered.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(username) DO NOTHING
	`, userInsertArgs(user)...)
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.Username, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.Username, err)
	}
	if n == 0 {
		return domain.ErrUsernameTaken
	}
	return nil
}

// GetUserByUsername looks up an account, returning domain.ErrUserNotFound if
// there is none
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var row userRow
	err := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE username = ?
	`, username).Scan(row.scanArgs()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return row.toDomain(), nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
