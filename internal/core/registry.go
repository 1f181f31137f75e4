package core

import "fmt"

// Scope is a named global scope: a query mutation applied to every builder
// for its model at snapshot time unless suppressed with WithoutScope. Clauses
// appended while Apply runs are tagged with the scope name.
type Scope struct {
	Name  string
	Apply func(*Builder)
}

// Model describes one registered model: its table, primary key, declared
// relations and global scopes. Models and their relation descriptors are
// immutable once registered and shared read-only across all builders.
type Model struct {
	Name       string
	Table      string
	PrimaryKey string
	Relations  map[string]*Relation
	Scopes     []Scope
}

// Relation returns the named relation descriptor.
func (m *Model) Relation(name string) (*Relation, error) {
	if r, ok := m.Relations[name]; ok {
		return r, nil
	}
	return nil, WrapError(ErrUnknownRelation, fmt.Sprintf("%s.%s", m.Name, name))
}

// Registry is the explicit, read-only registry of models and polymorphic
// type mappings. Construct it once at startup, register every model and
// morph label, then pass it by reference into builders and the relation
// resolver. It must not be mutated after builders observe it; with that
// discipline no locking is needed.
type Registry struct {
	models map[string]*Model
	morphs map[string]string // discriminator label -> model name
	labels map[string]string // model name -> discriminator label
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		models: make(map[string]*Model),
		morphs: make(map[string]string),
		labels: make(map[string]string),
	}
}

// Register adds a model. PrimaryKey defaults to "id".
func (r *Registry) Register(m *Model) *Registry {
	if m.PrimaryKey == "" {
		m.PrimaryKey = "id"
	}
	r.models[m.Name] = m
	return r
}

// Morph maps a polymorphic discriminator label to a registered model name.
func (r *Registry) Morph(label, modelName string) *Registry {
	r.morphs[label] = modelName
	r.labels[modelName] = label
	return r
}

// Model returns the registered model by name.
func (r *Registry) Model(name string) (*Model, error) {
	if m, ok := r.models[name]; ok {
		return m, nil
	}
	return nil, WrapError(ErrUnknownModel, name)
}

// morphModel resolves a discriminator value to its model. Unresolvable
// discriminators fail with UnresolvedPolymorphicTypeError rather than
// silently returning no relation.
func (r *Registry) morphModel(label string) (*Model, error) {
	name, ok := r.morphs[label]
	if !ok {
		return nil, &UnresolvedPolymorphicTypeError{Discriminator: label}
	}
	return r.Model(name)
}

// morphLabel returns the discriminator label declared for a model, falling
// back to the model name when no label was declared.
func (r *Registry) morphLabel(modelName string) string {
	if label, ok := r.labels[modelName]; ok {
		return label
	}
	return modelName
}
