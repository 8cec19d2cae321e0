package recordstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	applog "github.com/mrlokans/catalog/internal/logger"
)

// newTestRedisBroker connects to the Redis at REDIS_ADDR, skipping the test
// when none is configured.
func newTestRedisBroker(t *testing.T, channel string) *RedisBroker {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	b, err := NewRedisBroker(context.Background(), applog.Nop(), RedisOptions{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		Channel:  channel,
	})
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

type threadComment struct {
	ID       string `gorm:"primaryKey" json:"id"`
	CourseID string `json:"course_id"`
	UserID   string `json:"user_id"`
	Content  string `json:"content"`
}

func (c *threadComment) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

var threadCommentPolicy = Policy[threadComment]{
	Select: AllowAll,
	Insert: func(s Session, row *threadComment) bool { return s.Authenticated() && row.UserID == s.UserID },
}

func collect(t *testing.T, b Broker, filter ChangeFilter) <-chan Change {
	t.Helper()
	got := make(chan Change, 8)
	sub, err := b.Subscribe(filter, func(c Change) { got <- c })
	require.NoError(t, err)
	t.Cleanup(sub.Close)
	return got
}

func expectOnce(t *testing.T, got <-chan Change) Change {
	t.Helper()
	var c Change
	select {
	case c = <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("change was not delivered")
	}
	select {
	case dup := <-got:
		t.Fatalf("change delivered twice: %+v", dup)
	case <-time.After(200 * time.Millisecond):
	}
	return c
}

func TestRedisBroker_ReplicasShareInserts(t *testing.T) {
	channel := "catalog:test:" + uuid.NewString()
	replicaA := newTestRedisBroker(t, channel)
	replicaB := newTestRedisBroker(t, channel)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Table("comments").AutoMigrate(&threadComment{}))

	comments := NewTable(New(db, replicaA, applog.Nop()), "comments", threadCommentPolicy)

	filter := ChangeFilter{Table: "comments", Event: EventInsert, Column: "course_id", Value: "c1"}
	onB := collect(t, replicaB, filter)
	onA := collect(t, replicaA, filter)
	otherCourse := collect(t, replicaB, ChangeFilter{Table: "comments", Event: EventInsert, Column: "course_id", Value: "c2"})

	inserted, err := comments.Insert(asUser("u1"), threadComment{CourseID: "c1", UserID: "u1", Content: "Great course"})
	require.NoError(t, err)
	require.Len(t, inserted, 1)

	c := expectOnce(t, onB)
	assert.Equal(t, EventInsert, c.Event)
	assert.Equal(t, inserted[0].ID, c.Record["id"])
	assert.Equal(t, "Great course", c.Record["content"])

	expectOnce(t, onA)

	select {
	case c := <-otherCourse:
		t.Fatalf("filtered subscriber received %+v", c)
	default:
	}
}

func TestRedisBroker_IgnoresForeignPayloads(t *testing.T) {
	channel := "catalog:test:" + uuid.NewString()
	b := newTestRedisBroker(t, channel)
	got := collect(t, b, ChangeFilter{Table: "comments"})

	require.NoError(t, b.rdb.Publish(context.Background(), channel, "not json").Err())
	require.NoError(t, b.Publish(context.Background(), Change{Table: "comments", Event: EventInsert}))

	c := expectOnce(t, got)
	assert.Equal(t, "comments", c.Table)
}

func TestNewRedisBroker_Errors(t *testing.T) {
	_, err := NewRedisBroker(context.Background(), applog.Nop(), RedisOptions{Addr: "  "})
	assert.EqualError(t, err, "missing redis address")

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err = NewRedisBroker(ctx, applog.Nop(), RedisOptions{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping")
}
