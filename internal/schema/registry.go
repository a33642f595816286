package schema

import (
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/veracity-cli/internal/model"
)

// Registry maps schema versions to schemas.
type Registry struct {
	schemas map[string]*Schema
	order   []string // insertion order for deterministic iteration
}

// NewRegistry creates a registry populated with every built-in schema.
// It panics if a built-in schema is malformed, so schema drift fails at
// startup.
func NewRegistry() *Registry {
	r := &Registry{schemas: make(map[string]*Schema)}
	r.mustRegister(V1, v1Features)
	r.mustRegister(V2, slices.Concat(v1Features, v2Extension))
	return r
}

func (r *Registry) mustRegister(version string, features []Feature) {
	s, err := New(version, features)
	if err != nil {
		panic(err)
	}
	if err := r.Register(s); err != nil {
		panic(err)
	}
}

// Register adds a schema. Versions are immutable once registered.
func (r *Registry) Register(s *Schema) error {
	if _, ok := r.schemas[s.Version]; ok {
		return eris.Errorf("schema: version %q already registered", s.Version)
	}
	r.schemas[s.Version] = s
	r.order = append(r.order, s.Version)
	return nil
}

// Get returns the schema for version.
func (r *Registry) Get(version string) (*Schema, error) {
	s, ok := r.schemas[version]
	if !ok {
		return nil, &model.SchemaMismatchError{Version: version, Reason: "unknown schema version"}
	}
	return s, nil
}

// Versions returns registered versions in registration order.
func (r *Registry) Versions() []string {
	return slices.Clone(r.order)
}

var defaultRegistry = NewRegistry()

// Get resolves a version against the built-in registry.
func Get(version string) (*Schema, error) {
	return defaultRegistry.Get(version)
}

// MustGet is Get for versions known at compile time.
func MustGet(version string) *Schema {
	s, err := Get(version)
	if err != nil {
		panic(err)
	}
	return s
}

// Versions lists the built-in schema versions.
func Versions() []string {
	return defaultRegistry.Versions()
}
