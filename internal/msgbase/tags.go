// ABOUTME: Tag index reconciliation against the tags table
// ABOUTME: Keeps every tag's member-id set synchronized with message tag sets

package msgbase

import (
	"context"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/lanternbbs/lantern/internal/kvstore"
)

// reconcileTags performs a full two-way diff of the message's tag set
// against every tag the index knows, under the tag-table lock:
//
//   - a known tag the message carries gains the id if missing
//   - a known tag the message does not carry loses the id if present
//   - tags the index has never seen are created pointing at {id}
//
// Walking every known tag (not just the message's own) is what makes
// untagging work: removing a tag from a message and re-saving drops the id
// from that tag's member set. Entries are never deleted, even when empty.
func (mb *MessageBase) reconcileTags(ctx context.Context, m *Msg) error {
	mb.tags.Acquire()
	defer mb.tags.Release()

	type update struct {
		tag     string
		members []int64
	}
	var updates []update
	known := make(map[string]bool)

	err := mb.tags.ForEach(ctx, func(tag string, value []byte) error {
		known[tag] = true

		members, err := decodeIDSet(value)
		if err != nil {
			return fmt.Errorf("tag %q: %w", tag, err)
		}
		has := containsID(members, *m.ID)

		switch {
		case m.HasTag(tag) && !has:
			updates = append(updates, update{tag, insertID(members, *m.ID)})
			mb.logger.Info("message tagged", "id", *m.ID, "tag", tag)
		case !m.HasTag(tag) && has:
			updates = append(updates, update{tag, removeID(members, *m.ID)})
			mb.logger.Info("message untagged", "id", *m.ID, "tag", tag)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning tag table: %w", err)
	}

	for _, tag := range m.Tags {
		if !known[tag] {
			updates = append(updates, update{tag, []int64{*m.ID}})
		}
	}

	for _, u := range updates {
		data, err := encodeIDSet(u.members)
		if err != nil {
			return fmt.Errorf("tag %q: %w", u.tag, err)
		}
		if err := mb.tags.Set(ctx, u.tag, data); err != nil {
			return fmt.Errorf("writing tag %q: %w", u.tag, err)
		}
	}
	return nil
}

// tagMembers returns the member ids of a tag, or nil for an unknown tag.
func (mb *MessageBase) tagMembers(ctx context.Context, tag string) ([]int64, error) {
	data, err := mb.tags.Get(ctx, tag)
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading tag %q: %w", tag, err)
	}
	members, err := decodeIDSet(data)
	if err != nil {
		return nil, fmt.Errorf("tag %q: %w", tag, err)
	}
	return members, nil
}

// Member sets are stored as sorted id arrays.

func encodeIDSet(ids []int64) ([]byte, error) {
	data, err := cbor.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("encoding id set: %w", err)
	}
	return data, nil
}

func decodeIDSet(data []byte) ([]int64, error) {
	var ids []int64
	if err := cbor.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decoding id set: %w", err)
	}
	return ids, nil
}

func containsID(ids []int64, id int64) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func insertID(ids []int64, id int64) []int64 {
	out := append(ids, id)
	sortIDs(out)
	return out
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
