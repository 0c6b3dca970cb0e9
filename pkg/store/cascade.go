package store

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/marshallshelly/caretable/pkg/registry"
	"github.com/marshallshelly/caretable/pkg/runtime"
	"github.com/marshallshelly/caretable/pkg/schema"
)

// Delete removes the row and propagates the deletion over the relationship
// graph: CASCADE edges delete dependents transitively, SET NULL edges clear
// the reference, RESTRICT edges abort the whole delete. The root delete and
// every propagated effect commit as one atomic unit. Deleting a nonexistent
// id is a NotFound condition.
func (s *Store) Delete(entity string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tab, ok := s.tables[entity]
	if !ok {
		return fmt.Errorf("%w: %s", runtime.ErrEntityNotRegistered, entity)
	}
	if _, ok := tab.rows[id]; !ok {
		return &runtime.NotFoundError{Entity: entity, ID: id}
	}
	return s.cascadeDelete(entity, id)
}

// DeleteCascade is the retry-safe variant of Delete: invoking it on an id
// that is already fully removed is a no-op, not an error.
func (s *Store) DeleteCascade(entity string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tab, ok := s.tables[entity]
	if !ok {
		return fmt.Errorf("%w: %s", runtime.ErrEntityNotRegistered, entity)
	}
	if _, ok := tab.rows[id]; !ok {
		return nil
	}
	return s.cascadeDelete(entity, id)
}

// frame is one worklist entry. A frame is pushed unexpanded, its dependents
// are discovered and pushed on top of its expanded form, and the row is only
// removed when the expanded form surfaces again with every dependent
// resolved. Dependents therefore always go before their ancestor.
type frame struct {
	entity   string
	id       int64
	expanded bool
}

// cascadeDelete runs the delete and all propagation on a staged clone of
// table state, then commits the clone. A RESTRICT violation anywhere in the
// traversal discards the clone, so no partial cascade is ever observable.
// Caller holds the write lock.
func (s *Store) cascadeDelete(entity string, id int64) error {
	staged := make(map[string]*table, len(s.tables))
	for name, tab := range s.tables {
		staged[name] = tab.clone()
	}

	stack := []frame{{entity: entity, id: id}}
	removed := 0

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		tab := staged[f.entity]
		if _, ok := tab.rows[f.id]; !ok {
			// Already removed on another path through the graph.
			continue
		}

		if f.expanded {
			tab.removeRow(f.id)
			removed++
			s.log.WithFields(logrus.Fields{"entity": f.entity, "id": f.id}).Debug("row deleted")
			continue
		}

		stack = append(stack, frame{entity: f.entity, id: f.id, expanded: true})
		for _, edge := range s.reg.DependentsOf(f.entity) {
			src := staged[edge.Source]
			depIDs := rowsReferencing(src, edge, f.id)
			if len(depIDs) == 0 {
				continue
			}
			switch edge.OnDelete {
			case schema.Restrict:
				deps := make([]runtime.EntityID, len(depIDs))
				for i, depID := range depIDs {
					deps[i] = runtime.EntityID{Entity: edge.Source, ID: depID}
				}
				s.log.WithFields(logrus.Fields{"entity": f.entity, "id": f.id, "edge": edge.Source}).Debug("delete restricted")
				return &runtime.RestrictedDeleteViolation{Entity: f.entity, ID: f.id, Dependents: deps}
			case schema.SetNull:
				for _, depID := range depIDs {
					if err := s.nullifyReference(staged, src, edge, depID); err != nil {
						return err
					}
				}
			case schema.Cascade:
				for _, depID := range depIDs {
					stack = append(stack, frame{entity: edge.Source, id: depID})
				}
			}
		}
	}

	s.tables = staged
	s.log.WithFields(logrus.Fields{"entity": entity, "id": id, "rows": removed}).Debug("cascade committed")
	return nil
}

// nullifyReference clears the referencing field of one dependent row on the
// staged tables. The updated row re-enters the constraint engine like any
// other update.
func (s *Store) nullifyReference(staged map[string]*table, tab *table, edge registry.Edge, id int64) error {
	row := tab.rows[id]
	rv := reflect.New(tab.meta.GoType).Elem()
	rv.Set(reflect.ValueOf(row))

	f := tab.meta.Field(edge.Field)
	rv.Field(f.Position).SetZero()

	if err := s.validateRow(staged, tab.meta, rv, id); err != nil {
		return err
	}
	tab.putRow(id, rv.Interface())
	s.log.WithFields(logrus.Fields{"entity": edge.Source, "id": id, "field": edge.Field}).Debug("reference nullified")
	return nil
}

// rowsReferencing returns the ids of rows in tab whose edge field holds the
// given target id, in ascending order for deterministic traversal.
func rowsReferencing(tab *table, edge registry.Edge, targetID int64) []int64 {
	f := tab.meta.Field(edge.Field)
	var ids []int64
	for id, row := range tab.rows {
		v := reflect.ValueOf(row).Field(f.Position)
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				continue
			}
			v = v.Elem()
		}
		if v.Int() == targetID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
