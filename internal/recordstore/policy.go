package recordstore

import "gorm.io/gorm"

// Rule narrows the rows an operation may touch.
type Rule struct {
	deny  bool
	match []condition
}

// Allow places no restriction.
func Allow() Rule { return Rule{} }

// Deny matches no rows.
func Deny() Rule { return Rule{deny: true} }

// Match restricts rows to column = value.
func Match(column string, value any) Rule {
	return Rule{match: []condition{{column: column, value: value}}}
}

func (r Rule) apply(db *gorm.DB) *gorm.DB {
	if r.deny {
		return db.Where("1 = 0")
	}
	return (&Query{eq: r.match}).applyFilters(db)
}

// Policy is the row-level access policy of a table. A nil function allows
// the operation. The service role bypasses every policy.
type Policy[T any] struct {
	Select func(s Session) Rule
	Insert func(s Session, row *T) bool
	Update func(s Session) Rule
	Delete func(s Session) Rule
}

type op int

const (
	opSelect op = iota
	opUpdate
	opDelete
)

func (p Policy[T]) rule(o op, s Session) Rule {
	if s.IsService() {
		return Allow()
	}
	var fn func(Session) Rule
	switch o {
	case opSelect:
		fn = p.Select
	case opUpdate:
		fn = p.Update
	case opDelete:
		fn = p.Delete
	}
	if fn == nil {
		return Allow()
	}
	return fn(s)
}

func (p Policy[T]) allowInsert(s Session, row *T) bool {
	if s.IsService() || p.Insert == nil {
		return true
	}
	return p.Insert(s, row)
}

// AllowAll is a rule function admitting every session.
func AllowAll(Session) Rule { return Allow() }

// DenyAll is a rule function admitting no session.
func DenyAll(Session) Rule { return Deny() }

// AdminOnly admits administrators and denies everyone else.
func AdminOnly(s Session) Rule {
	if s.IsAdmin() {
		return Allow()
	}
	return Deny()
}

// OwnRows restricts a signed-in session to rows whose column holds its user
// id. Anonymous sessions match nothing.
func OwnRows(column string) func(Session) Rule {
	return func(s Session) Rule {
		if !s.Authenticated() {
			return Deny()
		}
		return Match(column, s.UserID)
	}
}
