package store

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/marshallshelly/caretable/pkg/runtime"
	"github.com/marshallshelly/caretable/pkg/schema"
)

// segmentSeparator joins encoded key segments. It sorts below every
// encoded byte, so a key prefix bounds all of its extensions.
const segmentSeparator = "\x00"

// secondaryIndex is one ordered secondary lookup structure: entries sorted
// by (encoded key, id). It is updated in the same critical section as the
// table mutation it derives from, so it is never observably stale.
type secondaryIndex struct {
	def     *schema.Index
	fields  []*schema.FieldMetadata
	entries []indexEntry
}

type indexEntry struct {
	key string
	id  int64
}

func newSecondaryIndex(meta *schema.EntityMetadata, def *schema.Index) (*secondaryIndex, error) {
	ix := &secondaryIndex{def: def}
	for _, col := range def.Columns {
		f := meta.Field(col)
		if f == nil {
			return nil, fmt.Errorf("index %s references unknown column %s", def.Name, col)
		}
		ix.fields = append(ix.fields, f)
	}
	return ix, nil
}

func (ix *secondaryIndex) clone() *secondaryIndex {
	cp := &secondaryIndex{
		def:     ix.def,
		fields:  ix.fields,
		entries: make([]indexEntry, len(ix.entries)),
	}
	copy(cp.entries, ix.entries)
	return cp
}

// keyFor builds the encoded key of a row.
func (ix *secondaryIndex) keyFor(row any) string {
	rv := reflect.ValueOf(row)
	parts := make([]string, len(ix.fields))
	for i, f := range ix.fields {
		parts[i] = encodeSegment(rv.Field(f.Position))
	}
	return strings.Join(parts, segmentSeparator)
}

// locate returns the position of (key, id) or where it would be inserted.
func (ix *secondaryIndex) locate(key string, id int64) int {
	return sort.Search(len(ix.entries), func(i int) bool {
		e := ix.entries[i]
		if e.key != key {
			return e.key > key
		}
		return e.id >= id
	})
}

func (ix *secondaryIndex) insert(id int64, row any) {
	key := ix.keyFor(row)
	pos := ix.locate(key, id)
	ix.entries = append(ix.entries, indexEntry{})
	copy(ix.entries[pos+1:], ix.entries[pos:])
	ix.entries[pos] = indexEntry{key: key, id: id}
}

func (ix *secondaryIndex) remove(id int64, row any) {
	key := ix.keyFor(row)
	pos := ix.locate(key, id)
	if pos < len(ix.entries) && ix.entries[pos].key == key && ix.entries[pos].id == id {
		ix.entries = append(ix.entries[:pos], ix.entries[pos+1:]...)
	}
}

// scanRange returns ids with lower <= key < upper, in key order. Empty
// bounds are unbounded.
func (ix *secondaryIndex) scanRange(lower, upper string, bounded bool) []int64 {
	start := 0
	if lower != "" {
		start = sort.Search(len(ix.entries), func(i int) bool { return ix.entries[i].key >= lower })
	}
	var ids []int64
	for i := start; i < len(ix.entries); i++ {
		if bounded && ix.entries[i].key >= upper {
			break
		}
		ids = append(ids, ix.entries[i].id)
	}
	return ids
}

// scanPrefix returns ids whose leading key segments equal the given prefix.
func (ix *secondaryIndex) scanPrefix(prefix string) []int64 {
	start := sort.Search(len(ix.entries), func(i int) bool { return ix.entries[i].key >= prefix })
	var ids []int64
	for i := start; i < len(ix.entries); i++ {
		key := ix.entries[i].key
		if key != prefix && !strings.HasPrefix(key, prefix+segmentSeparator) {
			break
		}
		ids = append(ids, ix.entries[i].id)
	}
	return ids
}

// IndexRange returns ids from the named index whose key is >= the lower
// bound and < the upper bound, in index order. A nil bound is unbounded.
// Bounds may name fewer parts than the index has columns; a short bound
// compares against the key prefix.
func (s *Store) IndexRange(entity, index string, lower, upper []any) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ix, err := s.index(entity, index)
	if err != nil {
		return nil, err
	}
	return ix.scanRange(encodeParts(lower), encodeParts(upper), upper != nil), nil
}

// IndexPrefix returns ids from the named index whose leading key segments
// equal parts, in index order.
func (s *Store) IndexPrefix(entity, index string, parts ...any) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ix, err := s.index(entity, index)
	if err != nil {
		return nil, err
	}
	return ix.scanPrefix(encodeParts(parts)), nil
}

// IndexStringPrefix returns ids from a single-column string index whose
// value starts with the given prefix, in value order. This backs
// name-prefix lookup.
func (s *Store) IndexStringPrefix(entity, index, prefix string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ix, err := s.index(entity, index)
	if err != nil {
		return nil, err
	}
	if len(ix.fields) != 1 {
		return nil, fmt.Errorf("index %s is composite; string prefix lookup needs a single column", index)
	}
	start := sort.Search(len(ix.entries), func(i int) bool { return ix.entries[i].key >= prefix })
	var ids []int64
	for i := start; i < len(ix.entries); i++ {
		if !strings.HasPrefix(ix.entries[i].key, prefix) {
			break
		}
		ids = append(ids, ix.entries[i].id)
	}
	return ids, nil
}

func (s *Store) index(entity, index string) (*secondaryIndex, error) {
	tab, ok := s.tables[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", runtime.ErrEntityNotRegistered, entity)
	}
	ix, ok := tab.indexes[index]
	if !ok {
		return nil, fmt.Errorf("entity %s has no index %s", entity, index)
	}
	return ix, nil
}

// encodeParts encodes bound parts the same way row keys are encoded.
func encodeParts(parts []any) string {
	if len(parts) == 0 {
		return ""
	}
	encoded := make([]string, len(parts))
	for i, p := range parts {
		encoded[i] = encodeSegment(reflect.ValueOf(p))
	}
	return strings.Join(encoded, segmentSeparator)
}

// encodeSegment encodes one value so that lexicographic order of the
// encoding matches the natural order of the value. Integers get a sign
// digit plus fixed-width decimal; times get a fixed-width UTC layout.
func encodeSegment(v reflect.Value) string {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if t, ok := v.Interface().(time.Time); ok {
		return t.UTC().Format("2006-01-02 15:04:05.000000000")
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := v.Int()
		if n >= 0 {
			return fmt.Sprintf("1%019d", n)
		}
		return fmt.Sprintf("0%019d", n-math.MinInt64)
	case reflect.String:
		return v.String()
	case reflect.Bool:
		if v.Bool() {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}
