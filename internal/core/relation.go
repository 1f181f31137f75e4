package core

import (
	"github.com/coregx/eloq/internal/grammar"
)

// RelationKind is the closed set of relation variants. Every resolver
// operation dispatches over this tag in one switch; adding a kind means
// adding one variant plus one arm per switch.
type RelationKind int

// Relation kinds.
const (
	HasOne RelationKind = iota
	HasMany
	BelongsTo
	BelongsToMany
	HasManyThrough
	MorphOne
	MorphMany
	MorphTo
	MorphToMany
)

// String returns the kind name for error messages.
func (k RelationKind) String() string {
	switch k {
	case HasOne:
		return "has one"
	case HasMany:
		return "has many"
	case BelongsTo:
		return "belongs to"
	case BelongsToMany:
		return "belongs to many"
	case HasManyThrough:
		return "has many through"
	case MorphOne:
		return "morph one"
	case MorphMany:
		return "morph many"
	case MorphTo:
		return "morph to"
	case MorphToMany:
		return "morph to many"
	default:
		return "unknown"
	}
}

// Relation is an immutable relation descriptor. Descriptors are constructed
// once at model registration and shared read-only across all instances;
// which fields are meaningful depends on Kind.
type Relation struct {
	Kind    RelationKind
	Related string // related model name; empty for MorphTo

	ForeignKey string // has*: fk on related; belongs-to: fk on the owner row
	OwnerKey   string // belongs-to: key on related (defaults to its pk)
	LocalKey   string // has*: key on owner (defaults to its pk)

	PivotTable      string
	PivotForeignKey string   // pivot column referencing the owner
	PivotRelatedKey string   // pivot column referencing the related model
	PivotColumns    []string // extra pivot columns surfaced as row metadata

	Through        string // intermediate model name for has-many-through
	FirstKey       string // fk on intermediate referencing the owner
	SecondKey      string // fk on related referencing the intermediate
	SecondLocalKey string // key on intermediate (defaults to its pk)

	MorphType string // discriminator column (on related, owner or pivot per kind)
	MorphID   string // id column paired with the discriminator
}

// NewHasOne declares a one-to-one relation: related rows carry foreignKey
// pointing at the owner's localKey (pass "" for the owner's primary key).
func NewHasOne(related, foreignKey, localKey string) *Relation {
	return &Relation{Kind: HasOne, Related: related, ForeignKey: foreignKey, LocalKey: localKey}
}

// NewHasMany declares a one-to-many relation.
func NewHasMany(related, foreignKey, localKey string) *Relation {
	return &Relation{Kind: HasMany, Related: related, ForeignKey: foreignKey, LocalKey: localKey}
}

// NewBelongsTo declares the inverse side: the owner row carries foreignKey
// pointing at the related model's ownerKey (pass "" for its primary key).
func NewBelongsTo(related, foreignKey, ownerKey string) *Relation {
	return &Relation{Kind: BelongsTo, Related: related, ForeignKey: foreignKey, OwnerKey: ownerKey}
}

// NewBelongsToMany declares a many-to-many relation through a pivot table.
func NewBelongsToMany(related, pivotTable, pivotForeignKey, pivotRelatedKey string) *Relation {
	return &Relation{
		Kind: BelongsToMany, Related: related,
		PivotTable: pivotTable, PivotForeignKey: pivotForeignKey, PivotRelatedKey: pivotRelatedKey,
	}
}

// NewHasManyThrough declares a two-hop relation bridged by an intermediate
// model; it compiles to one statement with an inner join, never two
// round-trips.
func NewHasManyThrough(related, through, firstKey, secondKey, localKey string) *Relation {
	return &Relation{
		Kind: HasManyThrough, Related: related, Through: through,
		FirstKey: firstKey, SecondKey: secondKey, LocalKey: localKey,
	}
}

// NewMorphOne declares a polymorphic one-to-one: the related table carries
// <name>_id and <name>_type columns.
func NewMorphOne(related, name string) *Relation {
	return &Relation{Kind: MorphOne, Related: related, ForeignKey: name + "_id", MorphType: name + "_type"}
}

// NewMorphMany declares a polymorphic one-to-many.
func NewMorphMany(related, name string) *Relation {
	return &Relation{Kind: MorphMany, Related: related, ForeignKey: name + "_id", MorphType: name + "_type"}
}

// NewMorphTo declares the inverse polymorphic side: the owner row carries
// <name>_id and <name>_type, and the related model is selected at resolution
// time from the registry's morph map.
func NewMorphTo(name string) *Relation {
	return &Relation{Kind: MorphTo, MorphID: name + "_id", MorphType: name + "_type"}
}

// NewMorphToMany declares a polymorphic many-to-many: the pivot table
// carries <name>_id, <name>_type and the related key.
func NewMorphToMany(related, name, pivotTable, pivotRelatedKey string) *Relation {
	return &Relation{
		Kind: MorphToMany, Related: related,
		PivotTable: pivotTable, PivotForeignKey: name + "_id", PivotRelatedKey: pivotRelatedKey,
		MorphType: name + "_type",
	}
}

// WithPivot adds extra pivot columns to surface as row metadata under the
// pivot key.
func (r *Relation) WithPivot(columns ...string) *Relation {
	r.PivotColumns = append(r.PivotColumns, columns...)
	return r
}

// throughKeyAlias is the synthetic column carrying the owner-side key on
// rows loaded through a has-many-through relation.
const throughKeyAlias = "through_key"

// relationPlan is the derived query plus the partition metadata needed to
// hand result rows back to their parents.
type relationPlan struct {
	builder      *Builder
	partitionKey string // column on the related row matched against parentKey
	parentKey    string // column on the parent row supplying the key value
	single       bool   // attach one row (or nil) instead of a slice
	pivot        bool   // restructure pivot_-prefixed columns into metadata
}

// buildRelationQuery derives the constrained relation query for a set of
// owner key values. One call serves both lazy (single owner key) and eager
// (batched IN over the distinct parent key set) resolution; MorphTo is
// resolved separately because the related table itself depends on each
// owner row's discriminator.
func buildRelationQuery(a Adapter, g grammar.Grammar, reg *Registry, owner *Model, rel *Relation, keys []interface{}) (*relationPlan, error) {
	switch rel.Kind {
	case HasOne, HasMany, MorphOne, MorphMany:
		m, err := reg.Model(rel.Related)
		if err != nil {
			return nil, err
		}
		b := newBuilder(a, g, reg, m).Table(m.Table).WhereIn(rel.ForeignKey, keys...)
		if rel.Kind == MorphOne || rel.Kind == MorphMany {
			// The fixed discriminator filter is an ordinary basic where
			// clause as far as the compiler is concerned.
			b.Where(rel.MorphType, reg.morphLabel(owner.Name))
		}
		return &relationPlan{
			builder:      b,
			partitionKey: rel.ForeignKey,
			parentKey:    defaulted(rel.LocalKey, owner.PrimaryKey),
			single:       rel.Kind == HasOne || rel.Kind == MorphOne,
		}, nil

	case BelongsTo:
		m, err := reg.Model(rel.Related)
		if err != nil {
			return nil, err
		}
		ownerKey := defaulted(rel.OwnerKey, m.PrimaryKey)
		b := newBuilder(a, g, reg, m).Table(m.Table).WhereIn(ownerKey, keys...)
		return &relationPlan{
			builder:      b,
			partitionKey: ownerKey,
			parentKey:    rel.ForeignKey,
			single:       true,
		}, nil

	case BelongsToMany, MorphToMany:
		m, err := reg.Model(rel.Related)
		if err != nil {
			return nil, err
		}
		relatedKey := defaulted(rel.OwnerKey, m.PrimaryKey)
		fkAlias := "pivot_" + rel.PivotForeignKey

		b := newBuilder(a, g, reg, m).
			Table(m.Table).
			Select(m.Table+".*").
			SelectRaw(g.Wrap(rel.PivotTable+"."+rel.PivotForeignKey)+" AS "+g.Wrap(fkAlias)).
			Join(rel.PivotTable, rel.PivotTable+"."+rel.PivotRelatedKey, "=", m.Table+"."+relatedKey).
			WhereIn(rel.PivotTable+"."+rel.PivotForeignKey, keys...)
		for _, col := range rel.PivotColumns {
			b.SelectRaw(g.Wrap(rel.PivotTable+"."+col) + " AS " + g.Wrap("pivot_"+col))
		}
		if rel.Kind == MorphToMany {
			b.Where(rel.PivotTable+"."+rel.MorphType, reg.morphLabel(owner.Name))
		}
		return &relationPlan{
			builder:      b,
			partitionKey: fkAlias,
			parentKey:    owner.PrimaryKey,
			pivot:        true,
		}, nil

	case HasManyThrough:
		through, err := reg.Model(rel.Through)
		if err != nil {
			return nil, err
		}
		m, err := reg.Model(rel.Related)
		if err != nil {
			return nil, err
		}
		secondLocal := defaulted(rel.SecondLocalKey, through.PrimaryKey)

		b := newBuilder(a, g, reg, m).
			Table(m.Table).
			Select(m.Table+".*").
			SelectRaw(g.Wrap(through.Table+"."+rel.FirstKey)+" AS "+g.Wrap(throughKeyAlias)).
			Join(through.Table, through.Table+"."+secondLocal, "=", m.Table+"."+rel.SecondKey).
			WhereIn(through.Table+"."+rel.FirstKey, keys...)
		return &relationPlan{
			builder:      b,
			partitionKey: throughKeyAlias,
			parentKey:    defaulted(rel.LocalKey, owner.PrimaryKey),
		}, nil

	default:
		return nil, WrapError(ErrUnknownRelation, rel.Kind.String())
	}
}

func defaulted(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// RelationQuery returns the constrained query for one owner row's relation.
// For MorphTo the related table is chosen by the row's stored discriminator.
func RelationQuery(a Adapter, g grammar.Grammar, reg *Registry, modelName, relationName string, owner Row) (*Builder, error) {
	om, err := reg.Model(modelName)
	if err != nil {
		return nil, err
	}
	rel, err := om.Relation(relationName)
	if err != nil {
		return nil, err
	}

	if rel.Kind == MorphTo {
		m, err := reg.morphModel(normKey(owner[rel.MorphType]))
		if err != nil {
			return nil, err
		}
		return newBuilder(a, g, reg, m).Table(m.Table).Where(m.PrimaryKey, owner[rel.MorphID]), nil
	}

	plan, err := buildRelationQuery(a, g, reg, om, rel, []interface{}{owner[plan0ParentKey(rel, om)]})
	if err != nil {
		return nil, err
	}
	if plan.single {
		plan.builder.Limit(1)
	}
	return plan.builder, nil
}

// plan0ParentKey mirrors the parent-key choice made by buildRelationQuery so
// the single-owner path can pull the right key value up front.
func plan0ParentKey(rel *Relation, owner *Model) string {
	switch rel.Kind {
	case BelongsTo:
		return rel.ForeignKey
	case BelongsToMany, MorphToMany:
		return owner.PrimaryKey
	default:
		return defaulted(rel.LocalKey, owner.PrimaryKey)
	}
}

// Relation returns the constrained query for one owner row's relation,
// executing through this DB.
func (db *DB) Relation(reg *Registry, modelName, relationName string, owner Row) (*Builder, error) {
	return RelationQuery(db, db.grammar, reg, modelName, relationName, owner)
}

// Relation returns the constrained query for one owner row's relation,
// executing within this transaction.
func (tx *Tx) Relation(reg *Registry, modelName, relationName string, owner Row) (*Builder, error) {
	return RelationQuery(tx, tx.db.grammar, reg, modelName, relationName, owner)
}
