package courses

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/catalog/internal/apperr"
	"github.com/mrlokans/catalog/internal/config"
	"github.com/mrlokans/catalog/internal/database"
	"github.com/mrlokans/catalog/internal/entities"
	"github.com/mrlokans/catalog/internal/logger"
	"github.com/mrlokans/catalog/internal/recordstore"
)

// countingStore records calls and returns canned results.
type countingStore struct {
	calls   int
	rows    []entities.Course
	err     error
	lastSet map[string]any
}

func (s *countingStore) Select(context.Context, *recordstore.Query) ([]entities.Course, error) {
	s.calls++
	return s.rows, s.err
}

func (s *countingStore) Insert(_ context.Context, rows ...entities.Course) ([]entities.Course, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return rows, nil
}

func (s *countingStore) Update(_ context.Context, values map[string]any, _ *recordstore.Query) ([]entities.Course, error) {
	s.calls++
	s.lastSet = values
	return s.rows, s.err
}

func (s *countingStore) Delete(context.Context, *recordstore.Query) ([]entities.Course, error) {
	s.calls++
	return s.rows, s.err
}

func setupRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := database.NewDatabase(config.Database{Driver: config.DatabaseDriverSQLite, Path: ":memory:"}, logger.Nop())
	require.NoError(t, err)
	broker := recordstore.NewMemoryBroker(logger.Nop())
	t.Cleanup(func() {
		broker.Close()
		db.Close()
	})
	tables := database.NewTables(recordstore.New(db.DB, broker, logger.Nop()))
	return NewRepository(tables.Courses, logger.Nop())
}

func adminCtx() context.Context {
	return recordstore.WithSession(context.Background(), recordstore.Session{UserID: "admin", Role: recordstore.RoleAdmin})
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		req  CreateRequest
		msg  string
	}{
		{"missing title", CreateRequest{Instructor: "Y", Price: Of(10), Category: "Z"}, MsgMissingFields},
		{"blank instructor", CreateRequest{Title: "X", Instructor: "  ", Price: Of(10), Category: "Z"}, MsgMissingFields},
		{"missing price", CreateRequest{Title: "X", Instructor: "Y", Category: "Z"}, MsgMissingFields},
		{"zero price", CreateRequest{Title: "X", Instructor: "Y", Price: Of(0), Category: "Z"}, MsgMissingFields},
		{"missing category", CreateRequest{Title: "X", Instructor: "Y", Price: Of(10)}, MsgMissingFields},
		{"negative price", CreateRequest{Title: "X", Instructor: "Y", Price: Of(-1), Category: "Z"}, "price must not be negative"},
		{"non-numeric price", CreateRequest{Title: "X", Instructor: "Y", Price: Amount{Invalid: true}, Category: "Z"}, "price must be a number"},
		{"bad level", CreateRequest{Title: "X", Instructor: "Y", Price: Of(10), Category: "Z", Level: "Expert"}, "level must be one of Beginner, Intermediate, Advanced, All Levels"},
		{"bad image", CreateRequest{Title: "X", Instructor: "Y", Price: Of(10), Category: "Z", Image: "not a url"}, "image must be a valid URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &countingStore{}
			repo := NewRepository(store, logger.Nop())

			_, err := repo.Create(context.Background(), tt.req)

			require.Error(t, err)
			assert.True(t, apperr.IsValidation(err))
			assert.Equal(t, tt.msg, err.Error())
			assert.Zero(t, store.calls, "validation failures must not reach the store")
		})
	}
}

func TestCreateRejectsNonFinitePrices(t *testing.T) {
	for _, raw := range []string{`"Infinity"`, `"Inf"`, `"-Inf"`, `"NaN"`} {
		t.Run(raw, func(t *testing.T) {
			var req CreateRequest
			body := `{"title":"X","instructor":"Y","category":"Z","price":` + raw + `}`
			require.NoError(t, json.Unmarshal([]byte(body), &req))

			store := &countingStore{}
			_, err := NewRepository(store, logger.Nop()).Create(adminCtx(), req)

			require.Error(t, err)
			assert.Equal(t, "price must be a number", err.Error())
			assert.Zero(t, store.calls)
		})
	}

	t.Run("original price", func(t *testing.T) {
		var req CreateRequest
		body := `{"title":"X","instructor":"Y","category":"Z","price":10,"originalprice":"NaN"}`
		require.NoError(t, json.Unmarshal([]byte(body), &req))

		store := &countingStore{}
		_, err := NewRepository(store, logger.Nop()).Create(adminCtx(), req)

		require.Error(t, err)
		assert.Equal(t, "originalprice must be a number", err.Error())
		assert.Zero(t, store.calls)
	})
}

func TestCreate(t *testing.T) {
	repo := setupRepository(t)

	t.Run("stores a numeric price", func(t *testing.T) {
		var req CreateRequest
		require.NoError(t, json.Unmarshal([]byte(`{"title":"X","instructor":"Y","price":"10","category":"Z"}`), &req))

		course, err := repo.Create(adminCtx(), req)
		require.NoError(t, err)
		assert.NotEmpty(t, course.ID)
		assert.Equal(t, 10.0, course.Price)
		assert.Nil(t, course.OriginalPrice)
	})

	t.Run("keeps original price and level", func(t *testing.T) {
		course, err := repo.Create(adminCtx(), CreateRequest{
			Title: "Go", Instructor: "Rob", Price: Of(50), OriginalPrice: Of(100),
			Category: "Programming", Level: "All Levels",
		})
		require.NoError(t, err)
		require.NotNil(t, course.OriginalPrice)
		assert.Equal(t, 50, course.Discount())
		assert.Equal(t, entities.CourseLevelAll, course.Level)
	})

	t.Run("members are rejected by policy", func(t *testing.T) {
		ctx := recordstore.WithSession(context.Background(), recordstore.Session{UserID: "u1", Role: recordstore.RoleMember})
		_, err := repo.Create(ctx, CreateRequest{Title: "X", Instructor: "Y", Price: Of(1), Category: "Z"})
		require.Error(t, err)
		assert.ErrorIs(t, err, recordstore.ErrPolicyViolation)
	})
}

func TestListAndGet(t *testing.T) {
	repo := setupRepository(t)
	for _, title := range []string{"Rust", "Go", "Python"} {
		_, err := repo.Create(adminCtx(), CreateRequest{Title: title, Instructor: "I", Price: Of(5), Category: "C"})
		require.NoError(t, err)
	}

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Go", list[0].Title)
	assert.Equal(t, "Rust", list[2].Title)

	got, err := repo.Get(context.Background(), list[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "Python", got.Title)

	_, err = repo.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.Get(context.Background(), "7f1c3c52-9f57-4a5f-8d1c-6a0a7b2f1e11")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListStoreError(t *testing.T) {
	repo := NewRepository(&countingStore{err: errors.New("connection refused")}, logger.Nop())

	_, err := repo.List(context.Background())

	var se *apperr.StoreError
	require.ErrorAs(t, err, &se)
	assert.False(t, se.ZeroRows)
	assert.Equal(t, "connection refused", se.Error())
}

func TestUpdate(t *testing.T) {
	repo := setupRepository(t)
	created, err := repo.Create(adminCtx(), CreateRequest{Title: "Go", Instructor: "Rob", Price: Of(10), Category: "Programming"})
	require.NoError(t, err)

	t.Run("requires id", func(t *testing.T) {
		_, err := repo.Update(adminCtx(), UpdateRequest{})
		assert.True(t, apperr.IsValidation(err))
		assert.Equal(t, MsgIDRequired, err.Error())
	})

	t.Run("overwrites present fields only", func(t *testing.T) {
		title := "Go in Depth"
		updated, err := repo.Update(adminCtx(), UpdateRequest{ID: created.ID, Title: &title, Price: Of(0)})
		require.NoError(t, err)
		assert.Equal(t, "Go in Depth", updated.Title)
		assert.Equal(t, "Rob", updated.Instructor)
		assert.Equal(t, 10.0, updated.Price, "zero price is not an overwrite")
	})

	t.Run("sets prices", func(t *testing.T) {
		updated, err := repo.Update(adminCtx(), UpdateRequest{ID: created.ID, Price: Of(20), OriginalPrice: Of(40)})
		require.NoError(t, err)
		assert.Equal(t, 20.0, updated.Price)
		assert.Equal(t, 50, updated.Discount())
	})

	t.Run("rejects empty required field", func(t *testing.T) {
		empty := " "
		_, err := repo.Update(adminCtx(), UpdateRequest{ID: created.ID, Category: &empty})
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("id only leaves fields unchanged", func(t *testing.T) {
		updated, err := repo.Update(adminCtx(), UpdateRequest{ID: created.ID})
		require.NoError(t, err)
		assert.Equal(t, "Go in Depth", updated.Title)
		assert.Equal(t, 20.0, updated.Price)

		_, err = repo.Update(adminCtx(), UpdateRequest{ID: "missing"})
		assert.True(t, apperr.IsZeroRows(err))
	})

	t.Run("rejects non-finite price", func(t *testing.T) {
		var req UpdateRequest
		require.NoError(t, json.Unmarshal([]byte(`{"price":"Infinity"}`), &req))
		req.ID = created.ID
		_, err := repo.Update(adminCtx(), req)
		assert.True(t, apperr.IsValidation(err))
		assert.Equal(t, "price must be a number", err.Error())
	})

	t.Run("unknown id is zero rows", func(t *testing.T) {
		title := "Nope"
		_, err := repo.Update(adminCtx(), UpdateRequest{ID: "missing", Title: &title})
		assert.True(t, apperr.IsZeroRows(err))
		assert.Equal(t, MsgNotUpdated, err.Error())
	})

	t.Run("policy denial is zero rows", func(t *testing.T) {
		title := "Hijacked"
		_, err := repo.Update(context.Background(), UpdateRequest{ID: created.ID, Title: &title})
		assert.True(t, apperr.IsZeroRows(err))

		got, err := repo.Get(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Go in Depth", got.Title)
	})
}

func TestDelete(t *testing.T) {
	repo := setupRepository(t)
	created, err := repo.Create(adminCtx(), CreateRequest{Title: "Go", Instructor: "Rob", Price: Of(10), Category: "Programming"})
	require.NoError(t, err)

	_, err = repo.Delete(adminCtx(), "")
	assert.Equal(t, MsgIDRequired, err.Error())

	_, err = repo.Delete(adminCtx(), "missing")
	assert.True(t, apperr.IsZeroRows(err))

	deleted, err := repo.Delete(adminCtx(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}
