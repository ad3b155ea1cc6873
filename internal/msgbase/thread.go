// ABOUTME: Reply-thread maintenance: parent/children back-links
// ABOUTME: Walks the parent chain iteratively with cycle detection

package msgbase

import (
	"context"
	"fmt"
	"time"
)

// linkThread records the message as a child of its parent and walks the
// rest of the parent chain, re-saving each ancestor so its own tag index
// entries stay current.
//
// Two corrupt-link conditions are handled differently. A message naming
// itself as parent is repaired: the link is stripped, the repair is logged,
// and the record is persisted again without a parent. A longer cycle in
// the chain cannot be repaired safely and surfaces as ErrThreadCycle.
func (mb *MessageBase) linkThread(ctx context.Context, m *Msg) error {
	visited := map[int64]bool{*m.ID: true}

	cur := m
	for cur.Parent != nil {
		pid := *cur.Parent

		if pid == *cur.ID {
			mb.logger.Error("message lists itself as parent, stripping link", "id", *cur.ID)
			cur.Parent = nil
			if _, err := mb.persist(ctx, cur, time.Time{}); err != nil {
				return err
			}
			return nil
		}

		if visited[pid] {
			return fmt.Errorf("parent chain of message %d revisits %d: %w", *m.ID, pid, ErrThreadCycle)
		}

		parent, err := mb.Get(ctx, pid)
		if err != nil {
			return fmt.Errorf("loading parent of message %d: %w", *cur.ID, err)
		}

		parent.addChild(*cur.ID)
		if _, err := mb.persist(ctx, parent, time.Time{}); err != nil {
			return err
		}
		if err := mb.reconcileTags(ctx, parent); err != nil {
			return err
		}

		visited[pid] = true
		cur = parent
	}
	return nil
}
