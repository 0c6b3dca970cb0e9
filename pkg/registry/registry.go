// Package registry provides a central registry for entity metadata and the
// relationship graph derived from it.
package registry

import (
	"fmt"
	"maps"
	"reflect"
	"sync"

	"github.com/marshallshelly/caretable/pkg/schema"
)

// Registry is a thread-safe registry for entity metadata.
type Registry struct {
	mu       sync.RWMutex
	parser   *schema.Parser
	entities map[reflect.Type]*schema.EntityMetadata
	names    map[string]*schema.EntityMetadata
	order    []string // registration order, used for deterministic iteration
}

// NewRegistry creates a new Registry instance.
func NewRegistry() *Registry {
	return &Registry{
		parser:   schema.NewParser(),
		entities: make(map[reflect.Type]*schema.EntityMetadata),
		names:    make(map[string]*schema.EntityMetadata),
	}
}

// Register registers a model type and extracts its metadata.
func (r *Registry) Register(model any) error {
	modelType := reflect.TypeOf(model)
	for modelType.Kind() == reflect.Pointer {
		modelType = modelType.Elem()
	}
	if modelType.Kind() != reflect.Struct {
		return fmt.Errorf("model must be a struct, got %s", modelType.Kind())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entities[modelType]; ok {
		return nil // already registered
	}

	entity, err := r.parser.Parse(modelType)
	if err != nil {
		return fmt.Errorf("failed to parse model %s: %w", modelType.Name(), err)
	}
	if existing, ok := r.names[entity.Name]; ok && existing.GoType != modelType {
		return fmt.Errorf("entity name %s already registered by %s", entity.Name, existing.GoType.Name())
	}

	r.entities[modelType] = entity
	r.names[entity.Name] = entity
	r.order = append(r.order, entity.Name)
	return nil
}

// Get retrieves EntityMetadata by Go type.
func (r *Registry) Get(modelType reflect.Type) (*schema.EntityMetadata, error) {
	for modelType.Kind() == reflect.Pointer {
		modelType = modelType.Elem()
	}

	r.mu.RLock()
	entity, ok := r.entities[modelType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("model type %s not registered", modelType.Name())
	}
	return entity, nil
}

// GetByName retrieves EntityMetadata by entity name.
func (r *Registry) GetByName(name string) (*schema.EntityMetadata, error) {
	r.mu.RLock()
	entity, ok := r.names[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("entity %s not registered", name)
	}
	return entity, nil
}

// Has checks if a model type is registered.
func (r *Registry) Has(modelType reflect.Type) bool {
	for modelType.Kind() == reflect.Pointer {
		modelType = modelType.Elem()
	}

	r.mu.RLock()
	_, ok := r.entities[modelType]
	r.mu.RUnlock()
	return ok
}

// HasEntity checks if an entity name is registered.
func (r *Registry) HasEntity(name string) bool {
	r.mu.RLock()
	_, ok := r.names[name]
	r.mu.RUnlock()
	return ok
}

// All returns all registered entity metadata in registration order.
func (r *Registry) All() []*schema.EntityMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entities := make([]*schema.EntityMetadata, 0, len(r.order))
	for _, name := range r.order {
		entities = append(entities, r.names[name])
	}
	return entities
}

// AllNames returns all registered entity names in registration order.
func (r *Registry) AllNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// AllEntities returns all registered entities as a map[name]*EntityMetadata.
func (r *Registry) AllEntities() map[string]*schema.EntityMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entities := make(map[string]*schema.EntityMetadata)
	maps.Copy(entities, r.names)
	return entities
}

// Clear removes all registered models.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entities = make(map[reflect.Type]*schema.EntityMetadata)
	r.names = make(map[string]*schema.EntityMetadata)
	r.order = nil
}

// globalRegistry is the default global registry instance.
var globalRegistry = NewRegistry()

// Register registers a model in the global registry.
func Register(model any) error {
	return globalRegistry.Register(model)
}

// Get retrieves EntityMetadata from the global registry.
func Get(modelType reflect.Type) (*schema.EntityMetadata, error) {
	return globalRegistry.Get(modelType)
}

// GetByName retrieves EntityMetadata by name from the global registry.
func GetByName(name string) (*schema.EntityMetadata, error) {
	return globalRegistry.GetByName(name)
}

// Default returns the global registry instance.
func Default() *Registry {
	return globalRegistry
}

// Clear clears the global registry.
func Clear() {
	globalRegistry.Clear()
}
