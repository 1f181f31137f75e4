package core

import "database/sql"

// Row is one result row keyed by column name. Eager-loaded relations are
// attached under their relation name; many-to-many pivot columns are surfaced
// as a nested Row under PivotKey rather than merged into the row itself.
type Row map[string]interface{}

// PivotKey is the row key holding pivot-table metadata for rows loaded
// through a many-to-many relation.
const PivotKey = "pivot"

// Pivot returns the pivot metadata attached to a row loaded through a
// many-to-many relation, or nil.
func (r Row) Pivot() Row {
	if p, ok := r[PivotKey].(Row); ok {
		return p
	}
	return nil
}

// Result reports the outcome of a mutation statement.
type Result struct {
	RowsAffected int64
	LastInsertID int64
}

// scanRows drains sql.Rows into Row maps. Text columns frequently arrive as
// []byte from the driver; they are converted to string so callers compare
// values without caring about the driver's scan type.
func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
