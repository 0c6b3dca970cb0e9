package store

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/marshallshelly/caretable/pkg/runtime"
	"github.com/marshallshelly/caretable/pkg/schema"
)

// validateRow is the constraint engine. Checks run in a fixed order (domain,
// range, uniqueness, referential) and the first violation found is the one
// reported, so rejection behavior is deterministic. The row is checked
// against the given table set, which is the live tables for ordinary
// mutations and a staged clone during cascade propagation. selfID excludes
// the row's own slot from uniqueness comparisons.
func (s *Store) validateRow(tables map[string]*table, meta *schema.EntityMetadata, row reflect.Value, selfID int64) error {
	if err := checkDomains(meta, row); err != nil {
		return err
	}
	if err := checkRanges(meta, row); err != nil {
		return err
	}
	if err := checkUniqueness(tables[meta.Name], meta, row, selfID); err != nil {
		return err
	}
	return checkReferences(tables, meta, row)
}

// checkDomains verifies that enumerated fields hold only allowed values.
func checkDomains(meta *schema.EntityMetadata, row reflect.Value) error {
	for i := range meta.Fields {
		f := &meta.Fields[i]
		if len(f.Enum) == 0 {
			continue
		}
		v := row.Field(f.Position)
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				continue
			}
			v = v.Elem()
		}
		val := v.String()
		allowed := false
		for _, e := range f.Enum {
			if val == e {
				allowed = true
				break
			}
		}
		if !allowed {
			return &runtime.DomainViolation{Entity: meta.Name, Field: f.Name, Value: val, Allowed: f.Enum}
		}
	}
	return nil
}

// checkRanges verifies declared numeric bounds.
func checkRanges(meta *schema.EntityMetadata, row reflect.Value) error {
	for i := range meta.Fields {
		f := &meta.Fields[i]
		if f.Min == nil {
			continue
		}
		v := row.Field(f.Position)
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				continue
			}
			v = v.Elem()
		}
		if n := v.Int(); n < *f.Min {
			return &runtime.RangeViolation{Entity: meta.Name, Field: f.Name, Constraint: f.MinLabel, Value: n}
		}
	}
	return nil
}

// checkUniqueness verifies single-field unique constraints first, then
// composite keys, both in declaration order. Absent optional values (nil
// pointers, empty strings behind them) never collide; on a required field
// the empty string is a value and collides like any other.
func checkUniqueness(tab *table, meta *schema.EntityMetadata, row reflect.Value, selfID int64) error {
	for i := range meta.Fields {
		f := &meta.Fields[i]
		if !f.Unique {
			continue
		}
		val, present := comparableValue(f, row.Field(f.Position))
		if !present {
			continue
		}
		for id, other := range tab.rows {
			if id == selfID {
				continue
			}
			otherVal, otherPresent := comparableValue(f, reflect.ValueOf(other).Field(f.Position))
			if otherPresent && otherVal == val {
				return &runtime.UniquenessViolation{Entity: meta.Name, Fields: []string{f.Name}}
			}
		}
	}

	for _, uk := range meta.UniqueKeys {
		key, present := compositeValue(meta, row, uk.Columns)
		if !present {
			continue
		}
		for id, other := range tab.rows {
			if id == selfID {
				continue
			}
			otherKey, otherPresent := compositeValue(meta, reflect.ValueOf(other), uk.Columns)
			if otherPresent && otherKey == key {
				return &runtime.UniquenessViolation{Entity: meta.Name, Fields: uk.Columns}
			}
		}
	}
	return nil
}

// checkReferences verifies that every foreign-key field resolves to a live
// row of the target entity. Absent optional references are valid.
func checkReferences(tables map[string]*table, meta *schema.EntityMetadata, row reflect.Value) error {
	for i := range meta.ForeignKeys {
		fk := &meta.ForeignKeys[i]
		f := meta.Field(fk.Field)
		v := row.Field(f.Position)
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				continue
			}
			v = v.Elem()
		}
		id := v.Int()
		target := tables[fk.Target]
		if _, ok := target.rows[id]; !ok {
			return &runtime.ReferenceViolation{Entity: meta.Name, Field: fk.Field, Target: fk.Target, TargetID: id}
		}
	}
	return nil
}

// comparableValue normalizes a field value for uniqueness comparison. The
// second return reports whether the value participates in uniqueness at
// all: only absent optional values (nil pointers, empty strings on
// optional fields) do not.
func comparableValue(f *schema.FieldMetadata, v reflect.Value) (string, bool) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "", false
		}
		v = v.Elem()
	}
	if t, ok := v.Interface().(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano), true
	}
	switch v.Kind() {
	case reflect.String:
		s := v.String()
		return s, s != "" || !f.Optional
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), true
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), true
	default:
		return fmt.Sprintf("%v", v.Interface()), true
	}
}

// compositeValue builds the comparison key for a composite unique
// constraint. The key participates only when every part is present.
func compositeValue(meta *schema.EntityMetadata, row reflect.Value, columns []string) (string, bool) {
	key := ""
	for _, col := range columns {
		f := meta.Field(col)
		part, present := comparableValue(f, row.Field(f.Position))
		if !present {
			return "", false
		}
		key += part + "\x00"
	}
	return key, true
}
