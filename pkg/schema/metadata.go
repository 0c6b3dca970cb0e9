// Package schema extracts entity metadata from Go struct definitions.
// Metadata drives every other layer: the constraint engine reads enum and
// bound declarations, the cascade executor reads foreign-key actions, and
// the index manager reads secondary orderings.
package schema

import (
	"fmt"
	"reflect"
)

// ReferenceAction defines how deleting a referenced row propagates to rows
// holding the reference.
type ReferenceAction int

const (
	// Restrict refuses the delete while live dependents exist.
	Restrict ReferenceAction = iota
	// Cascade deletes dependent rows along with the referenced row.
	Cascade
	// SetNull clears the referencing field and keeps the dependent row.
	SetNull
)

// String returns the SQL-style spelling of the action.
func (a ReferenceAction) String() string {
	switch a {
	case Cascade:
		return "CASCADE"
	case SetNull:
		return "SET NULL"
	default:
		return "RESTRICT"
	}
}

// FieldMetadata describes a single persisted field of an entity.
type FieldMetadata struct {
	Name     string // column name
	GoField  string // struct field name
	GoType   reflect.Type
	Position int
	Optional bool // pointer-typed, value may be absent
	NotNull  bool
	Unique   bool     // single-field uniqueness
	Enum     []string // allowed values; empty means unconstrained
	Min      *int64   // inclusive lower bound for integer fields
	MinLabel string   // human-readable form of the bound, e.g. ">= 0"
}

// ForeignKeyMetadata describes a reference from one entity to another.
type ForeignKeyMetadata struct {
	Name     string // constraint name, derived when not given
	Field    string // referencing column on the source entity
	GoField  string
	Optional bool // pointer-typed reference, may be absent
	Target   string
	OnDelete ReferenceAction
}

// UniqueKey declares a composite uniqueness constraint.
type UniqueKey struct {
	Name    string
	Columns []string
}

// Index declares a secondary ordering maintained alongside the entity's rows.
type Index struct {
	Name    string
	Columns []string
}

// EntityMetadata is the parsed description of one entity type.
type EntityMetadata struct {
	Name        string
	GoType      reflect.Type
	IDField     *FieldMetadata // nil for pair-identified entities (junctions)
	Fields      []FieldMetadata
	ForeignKeys []ForeignKeyMetadata
	UniqueKeys  []UniqueKey
	Indexes     []Index
}

// Field returns the field with the given column name, or nil.
func (e *EntityMetadata) Field(column string) *FieldMetadata {
	for i := range e.Fields {
		if e.Fields[i].Name == column {
			return &e.Fields[i]
		}
	}
	return nil
}

// ForeignKey returns the foreign key on the given column, or nil.
func (e *EntityMetadata) ForeignKey(column string) *ForeignKeyMetadata {
	for i := range e.ForeignKeys {
		if e.ForeignKeys[i].Field == column {
			return &e.ForeignKeys[i]
		}
	}
	return nil
}

// Index returns the index with the given name, or nil.
func (e *EntityMetadata) Index(name string) *Index {
	for i := range e.Indexes {
		if e.Indexes[i].Name == name {
			return &e.Indexes[i]
		}
	}
	return nil
}

// verify checks internal consistency of parsed metadata: every column named
// by a unique key or index must exist on the entity.
func (e *EntityMetadata) verify() error {
	for _, uk := range e.UniqueKeys {
		for _, col := range uk.Columns {
			if e.Field(col) == nil {
				return fmt.Errorf("unique key %s references unknown column %s on %s", uk.Name, col, e.Name)
			}
		}
	}
	for _, idx := range e.Indexes {
		for _, col := range idx.Columns {
			if e.Field(col) == nil {
				return fmt.Errorf("index %s references unknown column %s on %s", idx.Name, col, e.Name)
			}
		}
	}
	return nil
}

// EntityNamer overrides the entity name derived from the struct name.
type EntityNamer interface {
	EntityName() string
}

// CompositeUniquer is implemented by models declaring multi-column
// uniqueness constraints, such as a junction identified by its pair.
type CompositeUniquer interface {
	UniqueKeys() []UniqueKey
}

// CompositeIndexer is implemented by models declaring multi-column orderings.
type CompositeIndexer interface {
	CompositeIndexes() []Index
}
