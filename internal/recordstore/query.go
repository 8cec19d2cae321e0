package recordstore

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Direction int

const (
	Ascending Direction = iota
	Descending
)

type condition struct {
	column string
	value  any
}

type ordering struct {
	column string
	desc   bool
}

// Query selects rows by equality filters, an optional IN filter, ordering
// and a limit. Methods mutate and return the receiver for chaining.
type Query struct {
	eq       []condition
	inColumn string
	inValues []any
	hasIn    bool
	order    []ordering
	limit    int
}

func NewQuery() *Query {
	return &Query{}
}

// Eq starts a query with a single equality filter.
func Eq(column string, value any) *Query {
	return NewQuery().Eq(column, value)
}

func (q *Query) Eq(column string, value any) *Query {
	q.eq = append(q.eq, condition{column: column, value: value})
	return q
}

// In restricts column to values. An empty list matches no rows.
func (q *Query) In(column string, values []string) *Query {
	q.hasIn = true
	q.inColumn = column
	q.inValues = make([]any, len(values))
	for i, v := range values {
		q.inValues[i] = v
	}
	return q
}

func (q *Query) OrderBy(column string, dir Direction) *Query {
	q.order = append(q.order, ordering{column: column, desc: dir == Descending})
	return q
}

func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// matchesNothing reports whether the query can be answered without a round
// trip.
func (q *Query) matchesNothing() bool {
	return q != nil && q.hasIn && len(q.inValues) == 0
}

func (q *Query) applyFilters(db *gorm.DB) *gorm.DB {
	if q == nil {
		return db
	}
	for _, c := range q.eq {
		db = db.Where(clause.Eq{Column: clause.Column{Name: c.column}, Value: c.value})
	}
	if q.hasIn {
		db = db.Where(clause.IN{Column: clause.Column{Name: q.inColumn}, Values: q.inValues})
	}
	return db
}

func (q *Query) apply(db *gorm.DB) *gorm.DB {
	db = q.applyFilters(db)
	if q == nil {
		return db
	}
	for _, o := range q.order {
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: o.column}, Desc: o.desc})
	}
	if q.limit > 0 {
		db = db.Limit(q.limit)
	}
	return db
}

// Matches evaluates the equality and IN filters against a decoded record.
// Broker filters and tests use it; ordering and limits are ignored.
func (q *Query) Matches(record map[string]any) bool {
	if q == nil {
		return true
	}
	for _, c := range q.eq {
		if !sameValue(record[c.column], c.value) {
			return false
		}
	}
	if q.hasIn {
		for _, v := range q.inValues {
			if sameValue(record[q.inColumn], v) {
				return true
			}
		}
		return false
	}
	return true
}
