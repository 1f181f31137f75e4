package core

import (
	"context"
	"strings"

	"github.com/spf13/cast"

	"github.com/coregx/eloq/internal/grammar"
)

// eagerLoader batches relation loading for a result set. Each named
// relation costs exactly one additional query per nesting level no matter
// how many parent rows were loaded; MorphTo is the one exception, issuing
// one query per distinct discriminator.
type eagerLoader struct {
	adapter  Adapter
	grammar  grammar.Grammar
	registry *Registry
}

// Load resolves the named relations onto parents in place. Dotted names
// ("posts.comments") recurse: each segment is loaded against the rows
// produced by the previous one.
func (l *eagerLoader) Load(ctx context.Context, owner *Model, parents []Row, names []string) error {
	if len(parents) == 0 || len(names) == 0 {
		return nil
	}
	if owner == nil {
		return WrapError(ErrUnknownModel, "eager load requires a model-bound query")
	}

	for _, first := range groupOrder(names) {
		nested := nestedNames(names, first)
		rel, err := owner.Relation(first)
		if err != nil {
			return err
		}

		if rel.Kind == MorphTo {
			if err := l.loadMorphTo(ctx, rel, parents, first, nested); err != nil {
				return err
			}
			continue
		}

		children, related, err := l.loadRelation(ctx, owner, rel, parents, first)
		if err != nil {
			return err
		}
		if len(nested) > 0 {
			if err := l.Load(ctx, related, children, nested); err != nil {
				return err
			}
		}
	}
	return nil
}

// loadRelation issues the single batched query for one relation and
// attaches the partitioned results to their parents. It returns the loaded
// rows so nested relations can recurse over them.
func (l *eagerLoader) loadRelation(ctx context.Context, owner *Model, rel *Relation, parents []Row, name string) ([]Row, *Model, error) {
	related, err := l.registry.Model(rel.Related)
	if err != nil {
		return nil, nil, err
	}

	parentKey := plan0ParentKey(rel, owner)
	keys := distinctKeys(parents, parentKey)
	if len(keys) == 0 {
		attachEmpty(parents, name, rel.Kind == HasOne || rel.Kind == BelongsTo || rel.Kind == MorphOne)
		return nil, related, nil
	}

	plan, err := buildRelationQuery(l.adapter, l.grammar, l.registry, owner, rel, keys)
	if err != nil {
		return nil, nil, err
	}
	rows, err := plan.builder.Get(ctx)
	if err != nil {
		return nil, nil, err
	}

	dict := make(map[string][]Row, len(rows))
	for _, row := range rows {
		k := normKey(row[plan.partitionKey])
		dict[k] = append(dict[k], row)
	}
	if plan.pivot {
		// Partitioning reads the aliased pivot key first; only then are the
		// pivot_ columns folded into nested metadata.
		for _, row := range rows {
			foldPivot(row)
		}
	} else if plan.partitionKey == throughKeyAlias {
		for _, row := range rows {
			delete(row, throughKeyAlias)
		}
	}

	for _, parent := range parents {
		matches := dict[normKey(parent[plan.parentKey])]
		if plan.single {
			if len(matches) > 0 {
				parent[name] = matches[0]
			} else {
				parent[name] = nil
			}
		} else {
			if matches == nil {
				matches = []Row{}
			}
			parent[name] = matches
		}
	}
	return rows, related, nil
}

// loadMorphTo resolves an inverse polymorphic relation: parents are grouped
// by discriminator, each group loaded from its own table. An unregistered
// discriminator aborts the whole batch.
func (l *eagerLoader) loadMorphTo(ctx context.Context, rel *Relation, parents []Row, name string, nested []string) error {
	groups := make(map[string][]Row)
	var labels []string
	for _, parent := range parents {
		if parent[rel.MorphType] == nil || parent[rel.MorphID] == nil {
			parent[name] = nil
			continue
		}
		label := normKey(parent[rel.MorphType])
		if _, ok := groups[label]; !ok {
			labels = append(labels, label)
		}
		groups[label] = append(groups[label], parent)
	}

	for _, label := range labels {
		m, err := l.registry.morphModel(label)
		if err != nil {
			return err
		}
		group := groups[label]
		keys := distinctKeys(group, rel.MorphID)

		rows, err := newBuilder(l.adapter, l.grammar, l.registry, m).
			Table(m.Table).
			WhereIn(m.PrimaryKey, keys...).
			Get(ctx)
		if err != nil {
			return err
		}

		dict := make(map[string]Row, len(rows))
		for _, row := range rows {
			dict[normKey(row[m.PrimaryKey])] = row
		}
		for _, parent := range group {
			if row, ok := dict[normKey(parent[rel.MorphID])]; ok {
				parent[name] = row
			} else {
				parent[name] = nil
			}
		}
		if len(nested) > 0 {
			if err := l.Load(ctx, m, rows, nested); err != nil {
				return err
			}
		}
	}
	return nil
}

// attachEmpty writes the empty shape for relations with no loadable keys.
func attachEmpty(parents []Row, name string, single bool) {
	for _, parent := range parents {
		if single {
			parent[name] = nil
		} else {
			parent[name] = []Row{}
		}
	}
}

// foldPivot moves pivot_-prefixed columns into a nested row under the
// pivot metadata key.
func foldPivot(row Row) {
	pivot := Row{}
	for k, v := range row {
		if strings.HasPrefix(k, "pivot_") {
			pivot[strings.TrimPrefix(k, "pivot_")] = v
			delete(row, k)
		}
	}
	row[PivotKey] = pivot
}

// normKey normalizes a key value for partition matching, so an int64 parent
// key pairs with a string foreign key holding the same digits.
func normKey(v interface{}) string {
	return cast.ToString(v)
}

// distinctKeys collects the distinct non-nil values of column across rows,
// preserving first-seen order for deterministic IN lists.
func distinctKeys(rows []Row, column string) []interface{} {
	seen := make(map[string]struct{}, len(rows))
	var keys []interface{}
	for _, row := range rows {
		v := row[column]
		if v == nil {
			continue
		}
		k := normKey(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, v)
	}
	return keys
}

// groupOrder returns the distinct first segments of dotted relation names
// in declaration order.
func groupOrder(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	var order []string
	for _, n := range names {
		first, _, _ := strings.Cut(n, ".")
		if _, ok := seen[first]; ok {
			continue
		}
		seen[first] = struct{}{}
		order = append(order, first)
	}
	return order
}

// nestedNames returns the remainders of names whose first segment is head.
func nestedNames(names []string, head string) []string {
	var rest []string
	for _, n := range names {
		first, tail, found := strings.Cut(n, ".")
		if first == head && found {
			rest = append(rest, tail)
		}
	}
	return rest
}
