package store

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/marshallshelly/caretable/pkg/runtime"
)

// Snapshot is the serialisable representation of full store state. It is
// what the external storage substrate persists; the store itself stays
// agnostic of where snapshots live.
type Snapshot struct {
	Entities map[string]EntityRows `json:"entities"`
}

// EntityRows holds one entity's rows plus its identifier high-water mark.
// NextID must survive round trips so identifiers are never reused after a
// delete-then-restore.
type EntityRows struct {
	NextID int64                     `json:"next_id"`
	Rows   map[int64]json.RawMessage `json:"rows"`
}

// Snapshot exports the current state of every table.
func (s *Store) Snapshot() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{Entities: make(map[string]EntityRows, len(s.tables))}
	for name, tab := range s.tables {
		rows := make(map[int64]json.RawMessage, len(tab.rows))
		for id, row := range tab.rows {
			raw, err := json.Marshal(row)
			if err != nil {
				return Snapshot{}, fmt.Errorf("marshal %s %d: %w", name, id, err)
			}
			rows[id] = raw
		}
		snap.Entities[name] = EntityRows{NextID: tab.nextID, Rows: rows}
	}
	return snap, nil
}

// Restore replaces store state with the snapshot's contents and rebuilds
// every secondary index. Snapshots are trusted: they were produced by a
// store that already enforced the constraints.
func (s *Store) Restore(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name := range snap.Entities {
		if _, ok := s.tables[name]; !ok {
			return fmt.Errorf("%w: snapshot contains %s", runtime.ErrEntityNotRegistered, name)
		}
	}

	for name, tab := range s.tables {
		er, ok := snap.Entities[name]

		tab.rows = make(map[int64]any, len(er.Rows))
		for _, ix := range tab.indexes {
			ix.entries = nil
		}
		tab.nextID = 1
		if !ok {
			continue
		}

		maxID := int64(0)
		for id, raw := range er.Rows {
			rv := reflect.New(tab.meta.GoType)
			if err := json.Unmarshal(raw, rv.Interface()); err != nil {
				return fmt.Errorf("unmarshal %s %d: %w", name, id, err)
			}
			tab.putRow(id, rv.Elem().Interface())
			if id > maxID {
				maxID = id
			}
		}
		tab.nextID = er.NextID
		if tab.nextID <= maxID {
			tab.nextID = maxID + 1
		}
	}
	return nil
}
