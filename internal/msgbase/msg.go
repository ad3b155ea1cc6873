// ABOUTME: Msg record type and its CBOR wire encoding
// ABOUTME: Holds envelope fields, tags, and thread links

package msgbase

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/lanternbbs/lantern/internal/session"
)

// Msg is a message record held in the message base.
//
// A Msg starts transient: ID is nil and Saved is zero until the first
// MessageBase.Save assigns an id and persists the record. After that the
// record only changes through further saves (dispatch appending the origin
// line, threading filling in Children).
//
// Tags classify the message and double as network routing keys. The slice
// is an insertion-ordered set: Tag deduplicates, and dispatch scans the
// slice front to back, so first-match routing is deterministic.
type Msg struct {
	ID        *int64    `cbor:"id"`
	Created   time.Time `cbor:"created"`
	Saved     time.Time `cbor:"saved"`
	Author    string    `cbor:"author"`
	Recipient string    `cbor:"recipient"`
	Subject   string    `cbor:"subject"`
	Body      string    `cbor:"body"`
	Tags      []string  `cbor:"tags"`
	Parent    *int64    `cbor:"parent"`
	Children  []int64   `cbor:"children"`
}

// New creates a transient message authored by the session's handle.
// A nil session leaves the author empty.
func New(sess session.Session, recipient, subject, body string) *Msg {
	author := ""
	if sess != nil {
		author = sess.Handle()
	}
	return &Msg{
		Created:   time.Now().UTC(),
		Author:    author,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
	}
}

// Tag adds the given tags, skipping any already present.
func (m *Msg) Tag(tags ...string) {
	for _, tag := range tags {
		if !m.HasTag(tag) {
			m.Tags = append(m.Tags, tag)
		}
	}
}

// Untag removes the given tag if present.
func (m *Msg) Untag(tag string) {
	for i, t := range m.Tags {
		if t == tag {
			m.Tags = append(m.Tags[:i], m.Tags[i+1:]...)
			return
		}
	}
}

// HasTag reports whether the message carries the given tag.
func (m *Msg) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// addChild records a reply's id, keeping Children duplicate-free.
func (m *Msg) addChild(id int64) {
	for _, c := range m.Children {
		if c == id {
			return
		}
	}
	m.Children = append(m.Children, id)
}

func (m *Msg) encode() ([]byte, error) {
	data, err := cbor.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding message: %w", err)
	}
	return data, nil
}

func decodeMsg(data []byte) (*Msg, error) {
	var m Msg
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding message: %w", err)
	}
	return &m, nil
}
