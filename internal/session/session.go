// ABOUTME: Current-author lookup seam between the login layer and the message base
// ABOUTME: Provides the Session interface and a static implementation

package session

// Session supplies the identity of the user a message is authored as.
// The terminal front end provides the real implementation; the message base
// only ever asks for the handle.
type Session interface {
	Handle() string
}

// Static is a fixed-handle session, used by the CLI and in tests.
type Static struct {
	handle string
}

// NewStatic returns a session with a fixed handle.
func NewStatic(handle string) *Static {
	return &Static{handle: handle}
}

// Handle returns the session's handle.
func (s *Static) Handle() string {
	return s.handle
}
