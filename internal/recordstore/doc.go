// Package recordstore is a table-oriented record store with row-level access
// policies and realtime change notifications.
//
// Callers carry their identity in the context:
//
//	ctx = recordstore.WithSession(ctx, recordstore.Session{UserID: id, Role: recordstore.RoleMember})
//	rows, err := courses.Select(ctx, recordstore.NewQuery().OrderBy("title", recordstore.Ascending))
//
// Each Table applies its Policy to every operation. Reads and writes of
// existing rows that the policy denies match zero rows; a denied insert fails
// with ErrPolicyViolation. Committed mutations are published to a Broker,
// where subscribers filter by table, event and column value.
package recordstore
