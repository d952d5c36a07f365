// Package session persists the editor bridge's reload-surviving state: a
// small flag/port record written to a host-provided key/value store,
// outliving the in-memory reset an editor performs on domain reload.
package session

import "time"

// Record is the flat set of flags and the one integer the lifecycle
// controller must recover across a reload. Every field round-trips through
// the host's key/value store; no nested structure is required.
type Record struct {
	// Running is true while the bridge server's listener is bound.
	Running bool `json:"running"`

	// Port is the last bound listener port, kept so a reload can attempt to
	// rebind the same one.
	Port int `json:"port"`

	// InReload is true from the moment before_reload begins until
	// after_reload completes successfully.
	InReload bool `json:"in_reload"`

	// AfterReload is true once after_reload has fired, cleared once
	// recovery finishes (successfully or not).
	AfterReload bool `json:"after_reload"`

	// Reconnecting is true while the bridge is attempting to rebind its
	// port following a reload.
	Reconnecting bool `json:"reconnecting"`

	// ShowReconnectingUI asks the host to surface a "reconnecting" banner to
	// the user while recovery is in progress.
	ShowReconnectingUI bool `json:"show_reconnecting_ui"`

	// ShowPostReloadUI asks the host to surface a one-shot "reloaded"
	// notice once recovery completes.
	ShowPostReloadUI bool `json:"show_post_reload_ui"`

	// UpdatedAt is stamped on every Save, for diagnostics only; nothing
	// reads it back as an input to recovery logic.
	UpdatedAt time.Time `json:"updated_at"`
}

// Empty returns the record a bridge that has never run would have.
func Empty() Record {
	return Record{}
}

// Clear resets every flag and the port to their zero values, leaving
// UpdatedAt for the caller's Save to stamp.
func (r *Record) Clear() {
	*r = Record{}
}

// BeginReload stamps the record for the start of a before_reload/
// after_reload cycle, remembering the port the bridge was bound to.
func (r *Record) BeginReload(port int) {
	r.InReload = true
	r.AfterReload = true
	r.Reconnecting = true
	r.ShowReconnectingUI = true
	r.Port = port
}

// CompleteReload clears the transitional flags once the bridge has
// successfully rebound its port, leaving Running true and Port set.
func (r *Record) CompleteReload() {
	r.InReload = false
	r.AfterReload = false
	r.Reconnecting = false
	r.ShowReconnectingUI = false
	r.ShowPostReloadUI = true
}
