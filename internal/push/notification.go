// Package push implements the editor-to-front-end lifecycle event channel:
// a newline-delimited JSON stream on a loopback TCP endpoint separate from
// the request/response bridge, and the editor-side client that dials it.
package push

import (
	"encoding/json"
	"time"
)

// Type enumerates the kinds of lifecycle event the editor can push to the
// front-end.
type Type string

const (
	ConnectionEstablished Type = "CONNECTION_ESTABLISHED"
	DomainReload          Type = "DOMAIN_RELOAD"
	DomainReloadRecovered Type = "DOMAIN_RELOAD_RECOVERED"
	UserDisconnect        Type = "USER_DISCONNECT"
	UnityShutdown         Type = "UNITY_SHUTDOWN"
	ToolsChanged          Type = "TOOLS_CHANGED"
)

// DisconnectReason classifies why a push-channel socket was torn down.
type DisconnectReason string

const (
	ReasonUserDisconnect DisconnectReason = "USER_DISCONNECT"
	ReasonUnityShutdown  DisconnectReason = "UNITY_SHUTDOWN"
	ReasonDomainReload   DisconnectReason = "DOMAIN_RELOAD"
)

// ClientInfo carries advisory, non-authoritative identification fields
// that may ride along on a ConnectionEstablished payload. Nothing in the
// core protocol depends on these; they exist for diagnostics.
type ClientInfo struct {
	EditorVersion string `json:"editorVersion,omitempty"`
	ProjectPath   string `json:"projectPath,omitempty"`
	SessionID     string `json:"sessionId,omitempty"`
}

// Payload is the optional body of a Notification. Fields are populated
// according to Type; absent fields are simply omitted by encoding/json.
type Payload struct {
	ClientInfo *ClientInfo `json:"clientInfo,omitempty"`
	ToolNames  []string    `json:"toolNames,omitempty"`
	Reason     string      `json:"reason,omitempty"`
}

// Notification is one line of the push channel's wire format.
type Notification struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   *Payload  `json:"payload,omitempty"`
}

// Encode serializes n as one newline-terminated JSON line.
func (n Notification) Encode() ([]byte, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// New builds a Notification stamped with the current time.
func New(t Type, payload *Payload) Notification {
	return Notification{Type: t, Timestamp: time.Now(), Payload: payload}
}
