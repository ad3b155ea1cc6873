// ABOUTME: MessageBase core: id assignment, persistence, retrieval, save pipeline
// ABOUTME: Owns the msgbase table and drives tags, threading, and dispatch

package msgbase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/lanternbbs/lantern/internal/config"
	"github.com/lanternbbs/lantern/internal/kvstore"
)

const (
	msgTable     = "msgbase"
	tagTable     = "tags"
	journalTable = "journal"
)

// ErrNotFound is returned when a requested message id does not exist.
var ErrNotFound = errors.New("message not found")

// ErrThreadCycle is returned when a parent chain loops back on itself.
// This indicates corrupted thread links and is not repaired automatically.
var ErrThreadCycle = errors.New("thread cycle detected")

// MessageBase persists messages, keeps the tag index synchronized, maintains
// reply threads, and routes new messages toward configured networks.
type MessageBase struct {
	store   kvstore.Store
	cfg     *config.Config
	logger  *slog.Logger
	msgs    kvstore.Table
	tags    kvstore.Table
	journal kvstore.Table
}

// SaveOptions adjusts a single save call.
type SaveOptions struct {
	// SuppressDispatch skips network routing even for a new message.
	SuppressDispatch bool

	// CreateTime overrides both the creation and save timestamps of a new
	// message. Used when importing messages from a network feed. Ignored
	// for re-saves.
	CreateTime time.Time
}

// Open returns a MessageBase on the given store.
func Open(store kvstore.Store, cfg *config.Config) (*MessageBase, error) {
	msgs, err := store.Table(msgTable)
	if err != nil {
		return nil, fmt.Errorf("opening message table: %w", err)
	}
	tags, err := store.Table(tagTable)
	if err != nil {
		return nil, fmt.Errorf("opening tag table: %w", err)
	}
	journal, err := store.Table(journalTable)
	if err != nil {
		return nil, fmt.Errorf("opening journal table: %w", err)
	}

	return &MessageBase{
		store:   store,
		cfg:     cfg,
		logger:  slog.Default().With("component", "msgbase"),
		msgs:    msgs,
		tags:    tags,
		journal: journal,
	}, nil
}

// Get returns the message with the given id, or ErrNotFound.
func (mb *MessageBase) Get(ctx context.Context, id int64) (*Msg, error) {
	data, err := mb.msgs.Get(ctx, msgKey(id))
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, fmt.Errorf("message %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading message %d: %w", id, err)
	}
	return decodeMsg(data)
}

// List returns message ids, sorted ascending. With no tags it returns every
// known id; with tags it returns the union of the tags' member sets. Tags
// the index does not know contribute nothing.
func (mb *MessageBase) List(ctx context.Context, tags ...string) ([]int64, error) {
	if len(tags) == 0 {
		keys, err := mb.msgs.Keys(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing messages: %w", err)
		}
		ids := make([]int64, 0, len(keys))
		for _, key := range keys {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("corrupt message key %q: %w", key, err)
			}
			ids = append(ids, id)
		}
		sortIDs(ids)
		return ids, nil
	}

	seen := make(map[int64]bool)
	for _, tag := range tags {
		members, err := mb.tagMembers(ctx, tag)
		if err != nil {
			return nil, err
		}
		for _, id := range members {
			seen[id] = true
		}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids, nil
}

// ListTags returns every tag ever used, sorted. Tag entries are never
// deleted, even when their member sets empty out, so this doubles as tag
// discovery.
func (mb *MessageBase) ListTags(ctx context.Context) ([]string, error) {
	keys, err := mb.tags.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return keys, nil
}

// Save persists the message with default options. See SaveWith.
func (mb *MessageBase) Save(ctx context.Context, m *Msg) (int64, error) {
	return mb.SaveWith(ctx, m, SaveOptions{})
}

// SaveWith persists the message and returns its id, assigning one on first
// save. The pipeline runs strictly in order: persist the record, reconcile
// the tag index, update the parent thread, then (for a new message, unless
// suppressed) make the network dispatch decision.
func (mb *MessageBase) SaveWith(ctx context.Context, m *Msg, opts SaveOptions) (int64, error) {
	isNew, err := mb.persist(ctx, m, opts.CreateTime)
	if err != nil {
		return 0, err
	}

	if err := mb.reconcileTags(ctx, m); err != nil {
		return 0, err
	}

	if m.Parent != nil {
		if err := mb.linkThread(ctx, m); err != nil {
			return 0, err
		}
	}

	if isNew && !opts.SuppressDispatch {
		if err := mb.dispatch(ctx, m); err != nil {
			return 0, err
		}
	}

	if err := mb.appendJournal(ctx, m, isNew); err != nil {
		return 0, err
	}

	mb.logger.Info("saved message",
		"id", *m.ID,
		"new", isNew,
		"public", m.HasTag("public"),
		"reply", m.Parent != nil,
		"recipient", m.Recipient,
	)
	return *m.ID, nil
}

// persist writes the record under the message-table lock. For a new message
// the id assignment (read max, increment) and the write happen under the
// same lock hold, so concurrent saves can never mint the same id.
func (mb *MessageBase) persist(ctx context.Context, m *Msg, ctime time.Time) (bool, error) {
	mb.msgs.Acquire()
	defer mb.msgs.Release()

	isNew := m.ID == nil || m.Saved.IsZero()
	if isNew {
		maxID := int64(-1)
		keys, err := mb.msgs.Keys(ctx)
		if err != nil {
			return false, fmt.Errorf("scanning message keys: %w", err)
		}
		for _, key := range keys {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return false, fmt.Errorf("corrupt message key %q: %w", key, err)
			}
			if id > maxID {
				maxID = id
			}
		}
		id := maxID + 1
		m.ID = &id

		if !ctime.IsZero() {
			m.Created = ctime
			m.Saved = ctime
		} else {
			m.Saved = time.Now().UTC()
		}
	}

	data, err := m.encode()
	if err != nil {
		return false, err
	}
	if err := mb.msgs.Set(ctx, msgKey(*m.ID), data); err != nil {
		return false, fmt.Errorf("writing message %d: %w", *m.ID, err)
	}
	return isNew, nil
}

// msgKey is the message-table key for an id.
func msgKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
