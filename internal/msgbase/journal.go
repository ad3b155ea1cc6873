// ABOUTME: Save journal: an append-only record of every completed save
// ABOUTME: Gives operators visibility into message-base activity

package msgbase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// JournalEntry records one completed save.
type JournalEntry struct {
	ID        string    `cbor:"id"` // UUID v4
	MsgID     int64     `cbor:"msg_id"`
	New       bool      `cbor:"new"`
	Author    string    `cbor:"author"`
	Recipient string    `cbor:"recipient"`
	Tags      []string  `cbor:"tags"`
	SavedAt   time.Time `cbor:"saved_at"`
}

// appendJournal writes a journal entry for the save that just completed.
// Entries are keyed by fresh UUIDs, so no table lock is needed.
func (mb *MessageBase) appendJournal(ctx context.Context, m *Msg, isNew bool) error {
	e := JournalEntry{
		ID:        uuid.New().String(),
		MsgID:     *m.ID,
		New:       isNew,
		Author:    m.Author,
		Recipient: m.Recipient,
		Tags:      m.Tags,
		SavedAt:   time.Now().UTC(),
	}

	data, err := cbor.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding journal entry: %w", err)
	}
	if err := mb.journal.Set(ctx, e.ID, data); err != nil {
		return fmt.Errorf("appending journal entry: %w", err)
	}
	return nil
}

// Journal returns all journal entries, oldest first.
func (mb *MessageBase) Journal(ctx context.Context) ([]JournalEntry, error) {
	var entries []JournalEntry
	err := mb.journal.ForEach(ctx, func(key string, value []byte) error {
		var e JournalEntry
		if err := cbor.Unmarshal(value, &e); err != nil {
			return fmt.Errorf("decoding journal entry %q: %w", key, err)
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading journal: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].SavedAt.Equal(entries[j].SavedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].SavedAt.Before(entries[j].SavedAt)
	})
	return entries, nil
}
