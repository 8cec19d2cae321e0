package recordstore

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/catalog/internal/logger"
)

// Table is a policy-guarded view of one database table holding rows of T.
// Every table is expected to have a string primary key column "id".
type Table[T any] struct {
	db        *gorm.DB
	name      string
	policy    Policy[T]
	publisher Publisher
	log       *logger.Logger
}

func NewTable[T any](c *Client, name string, policy Policy[T]) *Table[T] {
	return &Table[T]{
		db:        c.db,
		name:      name,
		policy:    policy,
		publisher: c.broker,
		log:       c.log.With("table", name),
	}
}

func (t *Table[T]) Name() string {
	return t.name
}

func (t *Table[T]) scoped(ctx context.Context, db *gorm.DB, o op) *gorm.DB {
	rule := t.policy.rule(o, SessionFromContext(ctx))
	return rule.apply(db.Table(t.name))
}

// Select returns the rows visible to the session that match q.
func (t *Table[T]) Select(ctx context.Context, q *Query) ([]T, error) {
	rows := []T{}
	if q.matchesNothing() {
		return rows, nil
	}
	db := t.scoped(ctx, t.db.WithContext(ctx), opSelect)
	if err := q.apply(db).Find(&rows).Error; err != nil {
		return nil, &Error{Op: "select", Table: t.name, Err: err}
	}
	return rows, nil
}

// Count returns how many visible rows match q.
func (t *Table[T]) Count(ctx context.Context, q *Query) (int64, error) {
	if q.matchesNothing() {
		return 0, nil
	}
	var n int64
	db := t.scoped(ctx, t.db.WithContext(ctx), opSelect)
	if err := q.applyFilters(db).Count(&n).Error; err != nil {
		return 0, &Error{Op: "count", Table: t.name, Err: err}
	}
	return n, nil
}

// Insert stores rows and returns them with generated fields filled.
func (t *Table[T]) Insert(ctx context.Context, rows ...T) ([]T, error) {
	if len(rows) == 0 {
		return []T{}, nil
	}
	s := SessionFromContext(ctx)
	for i := range rows {
		if !t.policy.allowInsert(s, &rows[i]) {
			return nil, &Error{Op: "insert", Table: t.name, Err: ErrPolicyViolation}
		}
	}
	if err := t.db.WithContext(ctx).Table(t.name).Create(&rows).Error; err != nil {
		return nil, &Error{Op: "insert", Table: t.name, Err: err}
	}
	t.publish(ctx, EventInsert, rows)
	return rows, nil
}

// Update applies values to the rows matching q that the policy lets the
// session update. It returns the updated rows; none means nothing matched.
func (t *Table[T]) Update(ctx context.Context, values map[string]any, q *Query) ([]T, error) {
	updated := []T{}
	if q.matchesNothing() || len(values) == 0 {
		return updated, nil
	}
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids, err := t.matchingIDs(ctx, tx, opUpdate, q)
		if err != nil || len(ids) == 0 {
			return err
		}
		if err := tx.Table(t.name).Where(idIn(ids)).Updates(values).Error; err != nil {
			return err
		}
		return tx.Table(t.name).Where(idIn(ids)).Find(&updated).Error
	})
	if err != nil {
		return nil, &Error{Op: "update", Table: t.name, Err: err}
	}
	t.publish(ctx, EventUpdate, updated)
	return updated, nil
}

// Delete removes the rows matching q that the policy lets the session delete
// and returns them.
func (t *Table[T]) Delete(ctx context.Context, q *Query) ([]T, error) {
	deleted := []T{}
	if q.matchesNothing() {
		return deleted, nil
	}
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids, err := t.matchingIDs(ctx, tx, opDelete, q)
		if err != nil || len(ids) == 0 {
			return err
		}
		if err := tx.Table(t.name).Where(idIn(ids)).Find(&deleted).Error; err != nil {
			return err
		}
		return tx.Table(t.name).Where(idIn(ids)).Delete(new(T)).Error
	})
	if err != nil {
		return nil, &Error{Op: "delete", Table: t.name, Err: err}
	}
	t.publish(ctx, EventDelete, deleted)
	return deleted, nil
}

func (t *Table[T]) matchingIDs(ctx context.Context, tx *gorm.DB, o op, q *Query) ([]string, error) {
	var ids []string
	db := q.applyFilters(t.scoped(ctx, tx, o))
	if err := db.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (t *Table[T]) publish(ctx context.Context, event Event, rows []T) {
	if t.publisher == nil {
		return
	}
	now := time.Now().UTC()
	for i := range rows {
		record, err := toRecord(rows[i])
		if err != nil {
			t.log.Warn("failed to encode change record", "event", event, "error", err)
			continue
		}
		change := Change{Table: t.name, Event: event, Record: record, CommittedAt: now}
		if err := t.publisher.Publish(context.WithoutCancel(ctx), change); err != nil {
			t.log.Warn("failed to publish change", "event", event, "error", err)
		}
	}
}

func idIn(ids []string) clause.Expression {
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return clause.IN{Column: clause.Column{Name: "id"}, Values: values}
}
