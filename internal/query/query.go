package query

// Query is an immutable snapshot of an accumulated query, handed to a grammar
// for compilation. Grammars must not mutate it; compiling the same snapshot
// twice yields byte-identical SQL and binding lists. Clause order is
// semantically significant and is preserved exactly as declared.
type Query struct {
	Table    string
	Alias    string
	Columns  []SelectExpr
	Distinct bool
	Joins    []Join
	Wheres   []Where
	Groups   []string
	Havings  []Where
	Orders   []Order
	Limit    *int
	Offset   *int
	Unions   []Union
}

// Clone returns a deep copy of the snapshot. Nested queries and unions are
// cloned recursively; binding values are shared (they are treated as
// immutable primitives at this boundary).
func (q *Query) Clone() *Query {
	if q == nil {
		return nil
	}

	c := *q
	c.Columns = append([]SelectExpr(nil), q.Columns...)
	c.Groups = append([]string(nil), q.Groups...)
	c.Orders = append([]Order(nil), q.Orders...)
	c.Wheres = cloneWheres(q.Wheres)
	c.Havings = cloneWheres(q.Havings)

	if q.Joins != nil {
		c.Joins = make([]Join, len(q.Joins))
		for i, j := range q.Joins {
			j.On = append([]JoinCondition(nil), j.On...)
			c.Joins[i] = j
		}
	}

	if q.Limit != nil {
		n := *q.Limit
		c.Limit = &n
	}
	if q.Offset != nil {
		n := *q.Offset
		c.Offset = &n
	}

	if q.Unions != nil {
		c.Unions = make([]Union, len(q.Unions))
		for i, u := range q.Unions {
			c.Unions[i] = Union{Query: u.Query.Clone(), All: u.All}
		}
	}

	return &c
}

func cloneWheres(ws []Where) []Where {
	if ws == nil {
		return nil
	}
	out := make([]Where, len(ws))
	for i, w := range ws {
		w.Values = append([]interface{}(nil), w.Values...)
		w.Nested = w.Nested.Clone()
		out[i] = w
	}
	return out
}
