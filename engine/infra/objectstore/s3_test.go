package objectstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	t.Run("Should require a bucket", func(t *testing.T) {
		_, err := NewStore(NewMemoryAPI(), "")
		assert.ErrorIs(t, err, ErrBucketRequired)
	})

	t.Run("Should list keys under a prefix in one call", func(t *testing.T) {
		api := NewMemoryAPI()
		api.Put("celery-task-meta-1", []byte("{}"))
		api.Put("celery-task-meta-2", []byte("{}"))
		api.Put("other", []byte("{}"))
		store, err := NewStore(api, "results")
		require.NoError(t, err)
		list, err := store.List(t.Context(), "celery-task-meta-")
		require.NoError(t, err)
		assert.Equal(t, []string{"celery-task-meta-1", "celery-task-meta-2"}, list.Keys)
		assert.False(t, list.Truncated)
		assert.Equal(t, 1, api.ListCalls)
	})

	t.Run("Should report truncated listings", func(t *testing.T) {
		api := NewMemoryAPI()
		api.PageSize = 1
		api.Put("a1", nil)
		api.Put("a2", nil)
		store, _ := NewStore(api, "results")
		list, err := store.List(t.Context(), "a")
		require.NoError(t, err)
		assert.Len(t, list.Keys, 1)
		assert.True(t, list.Truncated)
	})

	t.Run("Should read object bodies", func(t *testing.T) {
		api := NewMemoryAPI()
		api.Put("k", []byte(`{"status":"SUCCESS"}`))
		store, _ := NewStore(api, "results")
		data, err := store.Get(t.Context(), "k")
		require.NoError(t, err)
		assert.JSONEq(t, `{"status":"SUCCESS"}`, string(data))
	})

	t.Run("Should surface SDK errors", func(t *testing.T) {
		api := NewMemoryAPI()
		api.ListErr = errors.New("AccessDenied")
		store, _ := NewStore(api, "results")
		_, err := store.List(context.Background(), "")
		assert.EqualError(t, err, "AccessDenied")
		assert.Error(t, store.Ping(t.Context()))
	})

	t.Run("Should fail for missing keys", func(t *testing.T) {
		store, _ := NewStore(NewMemoryAPI(), "results")
		_, err := store.Get(t.Context(), "missing")
		assert.Error(t, err)
	})
}
