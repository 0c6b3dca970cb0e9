package clinic

import (
	"github.com/marshallshelly/caretable/pkg/registry"
	"github.com/marshallshelly/caretable/pkg/store"
)

// RegisterAll registers every clinical entity with the given registry.
// Registration order matters only for readability of listings; the graph
// verification done at store construction is order independent.
func RegisterAll(reg *registry.Registry) error {
	models := []any{
		Specialization{},
		Patient{},
		Doctor{},
		PatientPhone{},
		DoctorSpecialization{},
		Appointment{},
		Medication{},
		Prescription{},
	}
	for _, m := range models {
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// NewStore builds a fresh store holding the full clinical schema.
func NewStore(opts ...store.Option) (*store.Store, error) {
	reg := registry.NewRegistry()
	if err := RegisterAll(reg); err != nil {
		return nil, err
	}
	return store.New(reg, opts...)
}
