package sqlite

import (
	"database/sql"
	"time"

	"neurosim/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToPosition builds a position only when both coordinates are present
func nullToPosition(x, y sql.NullFloat64) *domain.Position {
	if !x.Valid || !y.Valid {
		return nil
	}
	return &domain.Position{X: x.Float64, Y: y.Float64}
}

// positionToNull splits a position into nullable coordinates
func positionToNull(p *domain.Position) (sql.NullFloat64, sql.NullFloat64) {
	if p == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: p.X, Valid: true}, sql.NullFloat64{Float64: p.Y, Valid: true}
}

// Timestamps are stored as unix nanoseconds so ordering and second-binning
// do not depend on the driver's time formatting.

func timeToUnix(t time.Time) int64 {
	return t.UnixNano()
}

func unixToTime(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

// ============================================================================
// Schema Evolution Guide
// ============================================================================
//
// To add a new column to the neurons table:
// 1. Add field to neuronRow struct (below)
// 2. Update scanArgs() - APPEND to end to match column order
// 3. Update neuronColumns and neuronInsertColumns - APPEND to end
// 4. Update toDomain() and neuronInsertArgs()
// 5. Add the column in migrate() with a default so existing rows stay valid
// 6. Update relevant tests
//
// CRITICAL: Column order must match between:
// - neuronColumns constant
// - scanArgs() return slice
// - All SELECT queries using neuronColumns
//
// Same pattern applies to users.

// ============================================================================
// Neuron Row Scanner
// ============================================================================

// neuronRow holds all columns from a neuron query for scanning
type neuronRow struct {
	ID        string
	Threshold float64
	X         sql.NullFloat64
	Y         sql.NullFloat64
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match neuronColumns order exactly:
// id, threshold, x, y
func (r *neuronRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,        // 1
		&r.Threshold, // 2
		&r.X,         // 3
		&r.Y,         // 4
	}
}

// toDomain converts the scanned row to a domain.NeuronRecord
func (r *neuronRow) toDomain() domain.NeuronRecord {
	return domain.NeuronRecord{
		ID:        r.ID,
		Threshold: r.Threshold,
		Position:  nullToPosition(r.X, r.Y),
	}
}

// neuronColumns returns the SELECT column list for neuron queries
const neuronColumns = `id, threshold, x, y`

// neuronInsertColumns is the INSERT column list matching neuronInsertArgs
const neuronInsertColumns = `owner_id, id, threshold, x, y`

// neuronInsertArgs prepares arguments for neuron INSERT/UPSERT
// Returns: owner_id, id, threshold, x, y
func neuronInsertArgs(rec domain.NeuronRecord, owner string) []interface{} {
	x, y := positionToNull(rec.Position)
	return []interface{}{owner, rec.ID, rec.Threshold, x, y}
}

// ============================================================================
// User Row Scanner
// ============================================================================

// userRow holds all columns from a user query for scanning
type userRow struct {
	ID        string
	Username  string
	Hash      string
	CreatedAt int64
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match userColumns order exactly:
// id, username, hash, created_at
func (r *userRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,        // 1
		&r.Username,  // 2
		&r.Hash,      // 3
		&r.CreatedAt, // 4
	}
}

// toDomain converts the scanned row to a domain.User
func (r *userRow) toDomain() *domain.User {
	return &domain.User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.Hash,
		CreatedAt:    unixToTime(r.CreatedAt),
	}
}

// userColumns is the column list for user queries and inserts
const userColumns = `id, username, hash, created_at`

// userInsertArgs prepares arguments for user INSERT
func userInsertArgs(u *domain.User) []interface{} {
	return []interface{}{u.ID, u.Username, u.PasswordHash, timeToUnix(u.CreatedAt)}
}
