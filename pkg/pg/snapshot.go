package pg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/marshallshelly/caretable/pkg/store"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS caretable_snapshots (
	entity TEXT NOT NULL,
	id     BIGINT NOT NULL,
	row    JSONB NOT NULL,
	PRIMARY KEY (entity, id)
);
CREATE TABLE IF NOT EXISTS caretable_sequences (
	entity  TEXT PRIMARY KEY,
	next_id BIGINT NOT NULL
);`

// EnsureSchema creates the snapshot tables if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, snapshotSchema); err != nil {
		return fmt.Errorf("failed to create snapshot schema: %w", err)
	}
	return nil
}

// SaveSnapshot replaces the persisted snapshot with snap in one
// transaction. A reader never sees a half-written snapshot.
func (db *DB) SaveSnapshot(ctx context.Context, snap store.Snapshot) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM caretable_snapshots`); err != nil {
		return fmt.Errorf("failed to clear snapshot rows: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM caretable_sequences`); err != nil {
		return fmt.Errorf("failed to clear snapshot sequences: %w", err)
	}

	for entity, rows := range snap.Entities {
		for id, raw := range rows.Rows {
			if _, err := tx.Exec(ctx,
				`INSERT INTO caretable_snapshots (entity, id, row) VALUES ($1, $2, $3)`,
				entity, id, raw,
			); err != nil {
				return fmt.Errorf("failed to write %s %d: %w", entity, id, err)
			}
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO caretable_sequences (entity, next_id) VALUES ($1, $2)`,
			entity, rows.NextID,
		); err != nil {
			return fmt.Errorf("failed to write %s sequence: %w", entity, err)
		}
	}
	return tx.Commit(ctx)
}

// LoadSnapshot reads the persisted snapshot back. Entities with a
// sequence row but no data rows come back empty with their identifier
// high-water mark intact.
func (db *DB) LoadSnapshot(ctx context.Context) (store.Snapshot, error) {
	snap := store.Snapshot{Entities: make(map[string]store.EntityRows)}

	seqRows, err := db.pool.Query(ctx, `SELECT entity, next_id FROM caretable_sequences`)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("failed to read snapshot sequences: %w", err)
	}
	defer seqRows.Close()
	for seqRows.Next() {
		var entity string
		var nextID int64
		if err := seqRows.Scan(&entity, &nextID); err != nil {
			return store.Snapshot{}, fmt.Errorf("failed to scan sequence row: %w", err)
		}
		snap.Entities[entity] = store.EntityRows{
			NextID: nextID,
			Rows:   make(map[int64]json.RawMessage),
		}
	}
	if err := seqRows.Err(); err != nil {
		return store.Snapshot{}, fmt.Errorf("failed to read snapshot sequences: %w", err)
	}

	rows, err := db.pool.Query(ctx, `SELECT entity, id, row FROM caretable_snapshots`)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("failed to read snapshot rows: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var entity string
		var id int64
		var raw json.RawMessage
		if err := rows.Scan(&entity, &id, &raw); err != nil {
			return store.Snapshot{}, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		er, ok := snap.Entities[entity]
		if !ok {
			er = store.EntityRows{Rows: make(map[int64]json.RawMessage)}
		}
		er.Rows[id] = raw
		snap.Entities[entity] = er
	}
	if err := rows.Err(); err != nil {
		return store.Snapshot{}, fmt.Errorf("failed to read snapshot rows: %w", err)
	}
	return snap, nil
}
