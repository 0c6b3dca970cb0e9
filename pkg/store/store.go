// Package store implements the integrity-enforcing entity store: keyed
// tables with monotonic surrogate identifiers, a constraint engine that
// gates every mutation, cascade propagation over the relationship graph,
// and secondary indexes kept in step with table state.
package store

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/marshallshelly/caretable/pkg/registry"
	"github.com/marshallshelly/caretable/pkg/runtime"
	"github.com/marshallshelly/caretable/pkg/schema"
)

// Store holds rows for every registered entity type. Instances are
// independent; two stores never share state, so isolated fixtures are just
// two calls to New.
type Store struct {
	mu     sync.RWMutex
	reg    *registry.Registry
	log    *logrus.Logger
	tables map[string]*table
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for mutation tracing. The default logger
// discards everything.
func WithLogger(log *logrus.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// New creates a Store for every entity registered in reg. The relationship
// graph is verified up front: unregistered foreign-key targets, SET NULL
// edges on required fields, and cycles are all construction-time errors.
func New(reg *registry.Registry, opts ...Option) (*Store, error) {
	if err := reg.VerifyGraph(); err != nil {
		return nil, err
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &Store{
		reg:    reg,
		log:    discard,
		tables: make(map[string]*table),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, meta := range reg.All() {
		tab := &table{
			meta:    meta,
			rows:    make(map[int64]any),
			nextID:  1,
			indexes: make(map[string]*secondaryIndex, len(meta.Indexes)),
		}
		for i := range meta.Indexes {
			ix, err := newSecondaryIndex(meta, &meta.Indexes[i])
			if err != nil {
				return nil, err
			}
			tab.indexes[meta.Indexes[i].Name] = ix
		}
		s.tables[meta.Name] = tab
	}
	return s, nil
}

// Registry returns the registry this store was built from.
func (s *Store) Registry() *registry.Registry {
	return s.reg
}

// table holds the live rows of one entity type plus its secondary indexes.
// Rows are stored as struct values, so handing one out through `any` hands
// out a copy; callers can never alias live table state.
type table struct {
	meta    *schema.EntityMetadata
	rows    map[int64]any
	nextID  int64
	indexes map[string]*secondaryIndex
}

func (t *table) clone() *table {
	cp := &table{
		meta:    t.meta,
		rows:    make(map[int64]any, len(t.rows)),
		nextID:  t.nextID,
		indexes: make(map[string]*secondaryIndex, len(t.indexes)),
	}
	for id, row := range t.rows {
		cp.rows[id] = row
	}
	for name, ix := range t.indexes {
		cp.indexes[name] = ix.clone()
	}
	return cp
}

// putRow stores a row and updates every index atomically with it.
func (t *table) putRow(id int64, row any) {
	if old, ok := t.rows[id]; ok {
		for _, ix := range t.indexes {
			ix.remove(id, old)
		}
	}
	t.rows[id] = row
	for _, ix := range t.indexes {
		ix.insert(id, row)
	}
}

// removeRow deletes a row and its index entries.
func (t *table) removeRow(id int64) {
	row, ok := t.rows[id]
	if !ok {
		return
	}
	for _, ix := range t.indexes {
		ix.remove(id, row)
	}
	delete(t.rows, id)
}

// sortedIDs returns the table's row keys in ascending order.
func (t *table) sortedIDs() []int64 {
	ids := make([]int64, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Insert validates the model and commits it with a freshly assigned
// surrogate identifier. Identifiers increase monotonically per entity type
// and are never reused, even after delete. If model is a pointer and the
// entity has an identifier field, the assigned id is written back to it.
func (s *Store) Insert(model any) (int64, error) {
	meta, err := s.reg.Get(reflect.TypeOf(model))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", runtime.ErrEntityNotRegistered, err)
	}
	row, err := normalizeModel(model)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tab := s.tables[meta.Name]
	id := tab.nextID

	if meta.IDField != nil {
		row.Field(meta.IDField.Position).SetInt(id)
	}
	if err := s.validateRow(s.tables, meta, row, id); err != nil {
		s.log.WithFields(logrus.Fields{"entity": meta.Name, "op": "insert"}).WithError(err).Debug("mutation rejected")
		return 0, err
	}

	tab.nextID++
	tab.putRow(id, row.Interface())
	s.log.WithFields(logrus.Fields{"entity": meta.Name, "id": id}).Debug("row inserted")

	if meta.IDField != nil {
		writeBackID(model, meta, id)
	}
	return id, nil
}

// Update validates the replacement row and commits it over the existing row
// with the same identifier. A missing id is a NotFound condition.
func (s *Store) Update(id int64, model any) error {
	meta, err := s.reg.Get(reflect.TypeOf(model))
	if err != nil {
		return fmt.Errorf("%w: %v", runtime.ErrEntityNotRegistered, err)
	}
	row, err := normalizeModel(model)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tab := s.tables[meta.Name]
	if _, ok := tab.rows[id]; !ok {
		return &runtime.NotFoundError{Entity: meta.Name, ID: id}
	}
	if meta.IDField != nil {
		row.Field(meta.IDField.Position).SetInt(id)
	}
	if err := s.validateRow(s.tables, meta, row, id); err != nil {
		s.log.WithFields(logrus.Fields{"entity": meta.Name, "id": id, "op": "update"}).WithError(err).Debug("mutation rejected")
		return err
	}

	tab.putRow(id, row.Interface())
	s.log.WithFields(logrus.Fields{"entity": meta.Name, "id": id}).Debug("row updated")
	return nil
}

// GetRow returns the row of the named entity with the given identifier.
func (s *Store) GetRow(entity string, id int64) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tab, ok := s.tables[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", runtime.ErrEntityNotRegistered, entity)
	}
	row, ok := tab.rows[id]
	if !ok {
		return nil, &runtime.NotFoundError{Entity: entity, ID: id}
	}
	return row, nil
}

// ListRows returns every row of the named entity ordered by identifier.
func (s *Store) ListRows(entity string) ([]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tab, ok := s.tables[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", runtime.ErrEntityNotRegistered, entity)
	}
	rows := make([]any, 0, len(tab.rows))
	for _, id := range tab.sortedIDs() {
		rows = append(rows, tab.rows[id])
	}
	return rows, nil
}

// Count returns the number of live rows of the named entity.
func (s *Store) Count(entity string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tab, ok := s.tables[entity]
	if !ok {
		return 0, fmt.Errorf("%w: %s", runtime.ErrEntityNotRegistered, entity)
	}
	return len(tab.rows), nil
}

// Get returns the row of type T with the given identifier.
func Get[T any](s *Store, id int64) (T, error) {
	var zero T
	meta, err := s.reg.Get(reflect.TypeFor[T]())
	if err != nil {
		return zero, fmt.Errorf("%w: %v", runtime.ErrEntityNotRegistered, err)
	}
	row, err := s.GetRow(meta.Name, id)
	if err != nil {
		return zero, err
	}
	return row.(T), nil
}

// Modify applies fn to the current row of type T and commits the result,
// all inside one critical section. Concurrent Modify calls on the same row
// serialize, so read-modify-write sequences like counter adjustments never
// lose an update. An error from fn aborts the mutation, and a result that
// fails validation leaves the row untouched.
func Modify[T any](s *Store, id int64, fn func(T) (T, error)) (T, error) {
	var zero T
	meta, err := s.reg.Get(reflect.TypeFor[T]())
	if err != nil {
		return zero, fmt.Errorf("%w: %v", runtime.ErrEntityNotRegistered, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tab := s.tables[meta.Name]
	row, ok := tab.rows[id]
	if !ok {
		return zero, &runtime.NotFoundError{Entity: meta.Name, ID: id}
	}
	next, err := fn(row.(T))
	if err != nil {
		return zero, err
	}

	rv := reflect.New(meta.GoType).Elem()
	rv.Set(reflect.ValueOf(next))
	if meta.IDField != nil {
		rv.Field(meta.IDField.Position).SetInt(id)
	}
	if err := s.validateRow(s.tables, meta, rv, id); err != nil {
		s.log.WithFields(logrus.Fields{"entity": meta.Name, "id": id, "op": "modify"}).WithError(err).Debug("mutation rejected")
		return zero, err
	}
	tab.putRow(id, rv.Interface())
	s.log.WithFields(logrus.Fields{"entity": meta.Name, "id": id}).Debug("row modified")
	return rv.Interface().(T), nil
}

// Rows returns every row of type T keyed by its store identifier. For
// pair-identified entities this is the only way to learn the key a delete
// needs.
func Rows[T any](s *Store) (map[int64]T, error) {
	meta, err := s.reg.Get(reflect.TypeFor[T]())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", runtime.ErrEntityNotRegistered, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	tab := s.tables[meta.Name]
	out := make(map[int64]T, len(tab.rows))
	for id, row := range tab.rows {
		out[id] = row.(T)
	}
	return out, nil
}

// List returns every row of type T ordered by identifier.
func List[T any](s *Store) ([]T, error) {
	meta, err := s.reg.Get(reflect.TypeFor[T]())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", runtime.ErrEntityNotRegistered, err)
	}
	rows, err := s.ListRows(meta.Name)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(rows))
	for i, row := range rows {
		out[i] = row.(T)
	}
	return out, nil
}

// normalizeModel dereferences the model and returns an addressable copy of
// the struct value.
func normalizeModel(model any) (reflect.Value, error) {
	v := reflect.ValueOf(model)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("%w: nil pointer", runtime.ErrInvalidModel)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%w: %s is not a struct", runtime.ErrInvalidModel, v.Kind())
	}
	cp := reflect.New(v.Type()).Elem()
	cp.Set(v)
	return cp, nil
}

// writeBackID sets the assigned identifier on the caller's model when it
// was passed by pointer.
func writeBackID(model any, meta *schema.EntityMetadata, id int64) {
	v := reflect.ValueOf(model)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return
	}
	v = v.Elem()
	if v.Kind() == reflect.Struct {
		v.Field(meta.IDField.Position).SetInt(id)
	}
}
