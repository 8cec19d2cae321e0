package recordstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/catalog/internal/logger"
)

func TestChangeFilter_Matches(t *testing.T) {
	c := Change{Table: "comments", Event: EventInsert, Record: map[string]any{"course_id": "c1"}}

	assert.True(t, ChangeFilter{Table: "comments"}.Matches(c))
	assert.True(t, ChangeFilter{Table: "comments", Event: EventAny}.Matches(c))
	assert.True(t, ChangeFilter{Table: "comments", Event: EventInsert, Column: "course_id", Value: "c1"}.Matches(c))
	assert.False(t, ChangeFilter{Table: "comments", Event: EventDelete}.Matches(c))
	assert.False(t, ChangeFilter{Table: "comments", Column: "course_id", Value: "c2"}.Matches(c))
	assert.False(t, ChangeFilter{Table: "courses"}.Matches(c))
}

func TestMemoryBroker_Subscription(t *testing.T) {
	broker := NewMemoryBroker(logger.Nop())
	defer broker.Close()

	got := make(chan Change, 1)
	sub, err := broker.Subscribe(ChangeFilter{Table: "enrollments"}, func(c Change) { got <- c })
	require.NoError(t, err)
	assert.Equal(t, 1, broker.Subscribers())

	require.NoError(t, broker.Publish(context.Background(), Change{Table: "enrollments", Event: EventDelete}))
	select {
	case c := <-got:
		assert.Equal(t, EventDelete, c.Event)
	case <-time.After(2 * time.Second):
		t.Fatal("expected delivery")
	}

	t.Run("close is idempotent and releases", func(t *testing.T) {
		sub.Close()
		sub.Close()
		assert.Equal(t, 0, broker.Subscribers())

		select {
		case <-sub.Done():
		default:
			t.Fatal("done channel should be closed")
		}

		require.NoError(t, broker.Publish(context.Background(), Change{Table: "enrollments", Event: EventInsert}))
		select {
		case c := <-got:
			t.Fatalf("closed subscription received %+v", c)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("nil handler rejected", func(t *testing.T) {
		_, err := broker.Subscribe(ChangeFilter{}, nil)
		assert.Error(t, err)
	})
}

func TestMemoryBroker_Close(t *testing.T) {
	broker := NewMemoryBroker(logger.Nop())
	sub, err := broker.Subscribe(ChangeFilter{Table: "comments"}, func(Change) {})
	require.NoError(t, err)

	require.NoError(t, broker.Close())

	<-sub.Done()
	_, err = broker.Subscribe(ChangeFilter{Table: "comments"}, func(Change) {})
	assert.ErrorIs(t, err, ErrBrokerClosed)
}

func TestChangeCodec(t *testing.T) {
	in := Change{Table: "comments", Event: EventInsert, Record: map[string]any{"id": "x"}}
	raw, err := encodeChange(in)
	require.NoError(t, err)

	out, err := decodeChange(raw)
	require.NoError(t, err)
	assert.Equal(t, in.Table, out.Table)
	assert.Equal(t, "x", out.Record["id"])

	_, err = decodeChange([]byte(`{"record":{}}`))
	assert.Error(t, err)
}

func TestAuthEvents(t *testing.T) {
	events := NewAuthEvents()
	var seen []AuthEventKind

	unsubscribe := events.OnChange(func(ev AuthEvent) { seen = append(seen, ev.Kind) })
	events.Emit(AuthEvent{Kind: SignedIn, UserID: "u1"})
	unsubscribe()
	unsubscribe()
	events.Emit(AuthEvent{Kind: SignedOut, UserID: "u1"})

	assert.Equal(t, []AuthEventKind{SignedIn}, seen)
}

func TestBucketResolver(t *testing.T) {
	r := BucketResolver{BaseURL: "https://cdn.example.com/storage"}

	assert.Equal(t, "https://cdn.example.com/storage/avatars/u1/me.png", r.PublicURL("avatars", "u1/me.png"))
	assert.Equal(t, "https://other.example.com/a.png", r.PublicURL("avatars", "https://other.example.com/a.png"))
	assert.Equal(t, "", r.PublicURL("avatars", "  "))
}
