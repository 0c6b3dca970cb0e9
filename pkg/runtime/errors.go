// Package runtime provides the shared error taxonomy for the store.
package runtime

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a row is not found.
	ErrNotFound = errors.New("row not found")

	// ErrInvalidModel is returned when an invalid model is provided.
	ErrInvalidModel = errors.New("invalid model")

	// ErrEntityNotRegistered is returned when an operation names an entity
	// type the registry does not know.
	ErrEntityNotRegistered = errors.New("entity not registered")

	// ErrNoSurrogateKey is returned when an id-based operation targets an
	// entity identified only by a composite key.
	ErrNoSurrogateKey = errors.New("entity has no surrogate identifier")
)

// Violation is implemented by all constraint violation errors. Violations
// are recoverable: the rejected mutation leaves the store untouched.
type Violation interface {
	error
	violation()
}

// DomainViolation reports a value outside an enumerated set.
type DomainViolation struct {
	Entity  string
	Field   string
	Value   string
	Allowed []string
}

func (e *DomainViolation) Error() string {
	return fmt.Sprintf("domain violation on %s.%s: %q is not one of [%s]",
		e.Entity, e.Field, e.Value, strings.Join(e.Allowed, ", "))
}

func (e *DomainViolation) violation() {}

// RangeViolation reports a numeric bound violation.
type RangeViolation struct {
	Entity     string
	Field      string
	Constraint string
	Value      int64
}

func (e *RangeViolation) Error() string {
	return fmt.Sprintf("range violation on %s.%s: %d fails %s", e.Entity, e.Field, e.Value, e.Constraint)
}

func (e *RangeViolation) violation() {}

// UniquenessViolation reports a collision on a unique or composite-unique key.
type UniquenessViolation struct {
	Entity string
	Fields []string
}

func (e *UniquenessViolation) Error() string {
	return fmt.Sprintf("uniqueness violation on %s (%s)", e.Entity, strings.Join(e.Fields, ", "))
}

func (e *UniquenessViolation) violation() {}

// ReferenceViolation reports a dangling foreign key.
type ReferenceViolation struct {
	Entity   string
	Field    string
	Target   string
	TargetID int64
}

func (e *ReferenceViolation) Error() string {
	return fmt.Sprintf("reference violation on %s.%s: %s %d does not exist",
		e.Entity, e.Field, e.Target, e.TargetID)
}

func (e *ReferenceViolation) violation() {}

// EntityID identifies one row.
type EntityID struct {
	Entity string
	ID     int64
}

func (r EntityID) String() string {
	return fmt.Sprintf("%s/%d", r.Entity, r.ID)
}

// RestrictedDeleteViolation reports a delete blocked by a RESTRICT edge.
type RestrictedDeleteViolation struct {
	Entity     string
	ID         int64
	Dependents []EntityID
}

func (e *RestrictedDeleteViolation) Error() string {
	deps := make([]string, len(e.Dependents))
	for i, d := range e.Dependents {
		deps[i] = d.String()
	}
	return fmt.Sprintf("delete of %s %d restricted by live dependents [%s]",
		e.Entity, e.ID, strings.Join(deps, ", "))
}

func (e *RestrictedDeleteViolation) violation() {}

// NotFoundError reports an operation targeting a nonexistent row. It matches
// ErrNotFound under errors.Is.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d: %v", e.Entity, e.ID, ErrNotFound)
}

// Is reports whether the target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// IsViolation reports whether err (or anything it wraps) is a constraint
// violation rather than an operational failure.
func IsViolation(err error) bool {
	var v Violation
	return errors.As(err, &v)
}
