package msgbase

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanternbbs/lantern/internal/config"
	"github.com/lanternbbs/lantern/internal/kvstore"
	"github.com/lanternbbs/lantern/internal/session"
)

func testConfig() *config.Config {
	return &config.Config{
		System:   config.SystemConfig{BBSName: "Lantern BBS"},
		Database: config.DatabaseConfig{Path: "unused"},
	}
}

// setupTestBase creates a message base on a temporary SQLite store.
func setupTestBase(t *testing.T, cfg *config.Config) *MessageBase {
	t.Helper()
	store, err := kvstore.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})

	mb, err := Open(store, cfg)
	require.NoError(t, err)
	return mb
}

// setupMemBase creates a message base on the in-memory store.
func setupMemBase(t *testing.T, cfg *config.Config) *MessageBase {
	t.Helper()
	mb, err := Open(kvstore.NewMemStore(), cfg)
	require.NoError(t, err)
	return mb
}

func TestSave_AssignsSequentialIDs(t *testing.T) {
	mb := setupTestBase(t, testConfig())
	ctx := context.Background()

	first := New(session.NewStatic("jack"), "bob", "hi", "hello")
	first.Tag("public")
	id, err := mb.Save(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, int64(0), id)

	second := New(session.NewStatic("jack"), "bob", "more", "hello again")
	second.Tag("public", "offtopic")
	id, err = mb.Save(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	ids, err := mb.List(ctx, "offtopic")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)

	ids, err = mb.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1}, ids)
}

func TestSave_RoundTrip(t *testing.T) {
	mb := setupTestBase(t, testConfig())
	ctx := context.Background()

	m := New(session.NewStatic("jack"), "bob", "ahoy", "a body\nwith lines")
	m.Tag("public", "sailing")

	id, err := mb.Save(ctx, m)
	require.NoError(t, err)

	got, err := mb.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "jack", got.Author)
	assert.Equal(t, "bob", got.Recipient)
	assert.Equal(t, "ahoy", got.Subject)
	assert.Equal(t, "a body\nwith lines", got.Body)
	assert.Equal(t, []string{"public", "sailing"}, got.Tags)
	assert.Nil(t, got.Parent)
	assert.Empty(t, got.Children)
	require.NotNil(t, got.ID)
	assert.Equal(t, id, *got.ID)
	assert.WithinDuration(t, m.Created, got.Created, time.Second)
	assert.False(t, got.Saved.IsZero())
}

func TestGet_NotFound(t *testing.T) {
	mb := setupTestBase(t, testConfig())

	_, err := mb.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_UnknownTag(t *testing.T) {
	mb := setupTestBase(t, testConfig())
	ctx := context.Background()

	m := New(nil, "bob", "hi", "hello")
	m.Tag("public")
	_, err := mb.Save(ctx, m)
	require.NoError(t, err)

	ids, err := mb.List(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, ids)

	// Unknown tags contribute nothing to a union.
	ids, err = mb.List(ctx, "nope", "public")
	require.NoError(t, err)
	assert.Equal(t, []int64{0}, ids)
}

func TestSave_UntagRemovesMembership(t *testing.T) {
	mb := setupTestBase(t, testConfig())
	ctx := context.Background()

	m := New(nil, "bob", "hi", "hello")
	m.Tag("public", "offtopic")
	id, err := mb.Save(ctx, m)
	require.NoError(t, err)

	m.Untag("offtopic")
	again, err := mb.Save(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, id, again, "re-save keeps the id")

	ids, err := mb.List(ctx, "offtopic")
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = mb.List(ctx, "public")
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, ids)

	// The emptied tag entry survives for discovery.
	tags, err := mb.ListTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"offtopic", "public"}, tags)
}

func TestSave_ExplicitCreateTime(t *testing.T) {
	mb := setupTestBase(t, testConfig())
	ctx := context.Background()

	ctime := time.Date(2024, 3, 9, 12, 30, 0, 0, time.UTC)

	m := New(nil, "bob", "imported", "from a feed")
	_, err := mb.SaveWith(ctx, m, SaveOptions{CreateTime: ctime})
	require.NoError(t, err)

	got, err := mb.Get(ctx, 0)
	require.NoError(t, err)
	assert.True(t, got.Created.Equal(ctime), "created = %v", got.Created)
	assert.True(t, got.Saved.Equal(ctime), "saved = %v", got.Saved)
}

func TestSave_ReSaveKeepsID(t *testing.T) {
	mb := setupTestBase(t, testConfig())
	ctx := context.Background()

	m := New(nil, "bob", "hi", "hello")
	id, err := mb.Save(ctx, m)
	require.NoError(t, err)

	m.Subject = "hi (edited)"
	again, err := mb.Save(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	ids, err := mb.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, ids)

	got, err := mb.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "hi (edited)", got.Subject)
}

func TestSave_ConcurrentIDsUnique(t *testing.T) {
	mb := setupMemBase(t, testConfig())
	ctx := context.Background()

	const writers = 16

	ids := make([]int64, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			m := New(nil, "bob", "race", "body")
			id, err := mb.Save(ctx, m)
			if err != nil {
				t.Error(err)
				return
			}
			ids[i] = id
		}()
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for _, id := range ids {
		assert.False(t, seen[id], "id %d assigned twice", id)
		assert.GreaterOrEqual(t, id, int64(0))
		assert.Less(t, id, int64(writers))
		seen[id] = true
	}
}

func TestNew_AuthorFromSession(t *testing.T) {
	m := New(session.NewStatic("jack"), "bob", "hi", "hello")
	assert.Equal(t, "jack", m.Author)

	anon := New(nil, "bob", "hi", "hello")
	assert.Empty(t, anon.Author)
}

func TestMsg_TagDeduplicates(t *testing.T) {
	m := New(nil, "", "", "")
	m.Tag("public", "public", "offtopic")
	m.Tag("public")
	assert.Equal(t, []string{"public", "offtopic"}, m.Tags)
}

func TestJournal_RecordsSaves(t *testing.T) {
	mb := setupTestBase(t, testConfig())
	ctx := context.Background()

	m := New(session.NewStatic("jack"), "bob", "hi", "hello")
	m.Tag("public")
	_, err := mb.Save(ctx, m)
	require.NoError(t, err)

	m.Body = "hello, edited"
	_, err = mb.Save(ctx, m)
	require.NoError(t, err)

	entries, err := mb.Journal(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var news, resaves int
	for _, e := range entries {
		assert.Equal(t, int64(0), e.MsgID)
		assert.Equal(t, "jack", e.Author)
		assert.Equal(t, []string{"public"}, e.Tags)
		if e.New {
			news++
		} else {
			resaves++
		}
	}
	assert.Equal(t, 1, news)
	assert.Equal(t, 1, resaves)
}
