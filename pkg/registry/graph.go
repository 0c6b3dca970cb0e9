package registry

import (
	"fmt"

	"github.com/marshallshelly/caretable/pkg/schema"
)

// Edge is one foreign-key relationship viewed from the referenced side:
// rows of Source hold a reference to rows of Target in the named field.
type Edge struct {
	Source   string
	Field    string // referencing column on Source
	GoField  string
	Optional bool
	Target   string
	OnDelete schema.ReferenceAction
}

// DependentsOf returns every edge whose target is the given entity, in
// registration order. These are the edges the cascade executor must walk
// when a row of that entity is deleted.
func (r *Registry) DependentsOf(entity string) []Edge {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var edges []Edge
	for _, name := range r.order {
		meta := r.names[name]
		for _, fk := range meta.ForeignKeys {
			if fk.Target != entity {
				continue
			}
			edges = append(edges, Edge{
				Source:   name,
				Field:    fk.Field,
				GoField:  fk.GoField,
				Optional: fk.Optional,
				Target:   fk.Target,
				OnDelete: fk.OnDelete,
			})
		}
	}
	return edges
}

// VerifyGraph checks that every foreign key targets a registered entity,
// that SET NULL edges sit on optional fields, and that the edge set is
// acyclic. An acyclic graph bounds cascade depth, so traversal always
// terminates.
func (r *Registry) VerifyGraph() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// adjacency: source -> targets
	adj := make(map[string][]string, len(r.order))
	for _, name := range r.order {
		meta := r.names[name]
		for _, fk := range meta.ForeignKeys {
			target, ok := r.names[fk.Target]
			if !ok {
				return fmt.Errorf("entity %s: foreign key %s targets unregistered entity %s", name, fk.Field, fk.Target)
			}
			if target.IDField == nil {
				return fmt.Errorf("entity %s: foreign key %s targets %s, which has no surrogate identifier", name, fk.Field, fk.Target)
			}
			if fk.OnDelete == schema.SetNull && !fk.Optional {
				return fmt.Errorf("entity %s: SET NULL foreign key %s requires an optional (pointer) field", name, fk.Field)
			}
			adj[name] = append(adj[name], fk.Target)
		}
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(r.order))

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			return fmt.Errorf("relationship graph contains a cycle through %s", name)
		case done:
			return nil
		}
		state[name] = visiting
		for _, next := range adj[name] {
			if err := visit(next); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	for _, name := range r.order {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}
