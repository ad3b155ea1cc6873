package msgbase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanternbbs/lantern/internal/session"
)

func TestThread_ParentGainsChild(t *testing.T) {
	mb := setupTestBase(t, testConfig())
	ctx := context.Background()

	parent := New(session.NewStatic("jack"), "all", "topic", "original post")
	pid, err := mb.Save(ctx, parent)
	require.NoError(t, err)

	reply := New(session.NewStatic("bob"), "jack", "Re: topic", "a reply")
	reply.Parent = &pid
	rid, err := mb.Save(ctx, reply)
	require.NoError(t, err)

	got, err := mb.Get(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, []int64{rid}, got.Children)
}

func TestThread_SelfParentStripped(t *testing.T) {
	mb := setupTestBase(t, testConfig())
	ctx := context.Background()

	m := New(nil, "bob", "hi", "hello")
	id, err := mb.Save(ctx, m)
	require.NoError(t, err)

	m.Parent = &id
	again, err := mb.Save(ctx, m)
	require.NoError(t, err, "self-parent is repaired, not fatal")
	assert.Equal(t, id, again)

	got, err := mb.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got.Parent)
	assert.Empty(t, got.Children)
}

func TestThread_WalksAncestorChain(t *testing.T) {
	mb := setupTestBase(t, testConfig())
	ctx := context.Background()

	root := New(nil, "all", "root", "start")
	rootID, err := mb.Save(ctx, root)
	require.NoError(t, err)

	mid := New(nil, "all", "Re: root", "middle")
	mid.Parent = &rootID
	midID, err := mb.Save(ctx, mid)
	require.NoError(t, err)

	leaf := New(nil, "all", "Re: Re: root", "end")
	leaf.Parent = &midID
	leafID, err := mb.Save(ctx, leaf)
	require.NoError(t, err)

	gotMid, err := mb.Get(ctx, midID)
	require.NoError(t, err)
	assert.Equal(t, []int64{leafID}, gotMid.Children)

	gotRoot, err := mb.Get(ctx, rootID)
	require.NoError(t, err)
	assert.Equal(t, []int64{midID}, gotRoot.Children)
}

func TestThread_ChildNotDuplicated(t *testing.T) {
	mb := setupTestBase(t, testConfig())
	ctx := context.Background()

	parent := New(nil, "all", "topic", "post")
	pid, err := mb.Save(ctx, parent)
	require.NoError(t, err)

	reply := New(nil, "all", "Re: topic", "reply")
	reply.Parent = &pid
	rid, err := mb.Save(ctx, reply)
	require.NoError(t, err)

	// Re-saving the reply walks the chain again; the back-link is a set.
	_, err = mb.Save(ctx, reply)
	require.NoError(t, err)

	got, err := mb.Get(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, []int64{rid}, got.Children)
}

func TestThread_ParentNotFound(t *testing.T) {
	mb := setupTestBase(t, testConfig())
	ctx := context.Background()

	missing := int64(999)
	m := New(nil, "bob", "orphan", "no such parent")
	m.Parent = &missing

	_, err := mb.Save(ctx, m)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestThread_CycleIsFatal(t *testing.T) {
	mb := setupTestBase(t, testConfig())
	ctx := context.Background()

	a := New(nil, "all", "a", "first")
	aID, err := mb.Save(ctx, a)
	require.NoError(t, err)

	b := New(nil, "all", "b", "second")
	b.Parent = &aID
	bID, err := mb.Save(ctx, b)
	require.NoError(t, err)

	// Corrupt the links: a now claims b as its parent.
	a.Parent = &bID
	_, err = mb.Save(ctx, a)
	assert.ErrorIs(t, err, ErrThreadCycle)
}
