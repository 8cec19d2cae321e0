package recordstore

import (
	"encoding/json"
	"fmt"
	"time"
)

type Event string

const (
	EventInsert Event = "INSERT"
	EventUpdate Event = "UPDATE"
	EventDelete Event = "DELETE"
	EventAny    Event = "*"
)

// Change is a committed mutation of one row. Record holds the row as it is
// serialized to clients: the new row for inserts and updates, the removed
// row for deletes.
type Change struct {
	Table       string         `json:"table"`
	Event       Event          `json:"event"`
	Record      map[string]any `json:"record"`
	CommittedAt time.Time      `json:"commit_timestamp"`
}

// ChangeFilter selects changes by table, event and optionally one column
// value, e.g. comments INSERT where course_id = X.
type ChangeFilter struct {
	Table  string
	Event  Event
	Column string
	Value  string
}

func (f ChangeFilter) Matches(c Change) bool {
	if f.Table != "" && f.Table != c.Table {
		return false
	}
	if f.Event != "" && f.Event != EventAny && f.Event != c.Event {
		return false
	}
	if f.Column != "" && !sameValue(c.Record[f.Column], f.Value) {
		return false
	}
	return true
}

func (f ChangeFilter) String() string {
	s := f.Table + ":" + string(f.Event)
	if f.Column != "" {
		s += ":" + f.Column + "=eq." + f.Value
	}
	return s
}

func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// toRecord turns a row into its JSON field map.
func toRecord(row any) (map[string]any, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}
	record := map[string]any{}
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	return record, nil
}
