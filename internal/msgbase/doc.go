// Package msgbase is the message-base layer of the lantern bulletin system.
//
// # Architecture
//
// MessageBase owns three kvstore tables:
//
//   - msgbase: decimal-string id -> CBOR-encoded Msg record
//   - tags: tag string -> CBOR-encoded sorted id set
//   - journal: UUID -> CBOR-encoded JournalEntry
//
// plus per-network transit and queue tables named by configuration.
//
// # Save pipeline
//
// A save runs strictly in order:
//
//  1. Persist the record. For a new message, id assignment (max existing
//     id + 1) and the write happen under one message-table lock hold, so
//     ids are unique and strictly increasing across concurrent saves.
//  2. Reconcile the tag index: a full two-way diff against every known
//     tag under the tag-table lock.
//  3. If a parent is set, link the thread: add the id to the parent's
//     children and re-save each ancestor up the chain. Self-parent links
//     are stripped and logged; a cycle is a fatal ErrThreadCycle.
//  4. For a new message (unless suppressed), make the network dispatch
//     decision: the first tag matching a server tag appends the origin
//     line and records the id in that network's transit table; the first
//     tag matching a network tag queues the id in that network's outbound
//     table. One action per save.
//
// The two table locks are taken sequentially, never nested. Dispatch runs
// after both are released and is not transactionally guarded; concurrent
// saves to the same network can interleave on its tables.
//
// # Error Handling
//
// Get of an unknown id returns ErrNotFound. Unknown tags and unconfigured
// networks are empty results or disabled features, never errors. Store
// failures propagate wrapped; there is no retry or rollback — a crash
// between the message write and the tag reconcile leaves the index behind
// until the next save of that message.
package msgbase
