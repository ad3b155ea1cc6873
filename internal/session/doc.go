// Package session defines the seam through which the message base learns
// the current author's handle. Identity management itself (login, handles,
// permissions) lives in the terminal front end, not here.
package session
