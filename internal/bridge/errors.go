package bridge

import (
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
)

// ErrAddressInUse is returned by Start when the requested port is already
// bound. The lifecycle controller decides whether to wait-and-retry or pick
// another port.
var ErrAddressInUse = errors.New("bridge: address already in use")

// ErrCorruptFrame names an unrecoverable framing error. The connection
// handler does not return it: on a reassembler error it logs, counts a
// framing error and closes that connection, never the process.
var ErrCorruptFrame = errors.New("bridge: corrupt frame state")

// isNormalDisconnect reports whether err represents an ordinary peer
// disconnect rather than an anomalous I/O failure: EOF, a closed listener
// or connection, or one of the platform-specific reset/abort errors a TCP
// stack produces when a peer goes away uncleanly. Only the anomalous cases
// are worth surfacing to an on_error observer.
func isNormalDisconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNABORTED) || errors.Is(err, syscall.ENOTCONN) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, needle := range []string{
		"connection reset",
		"broken pipe",
		"use of closed network connection",
		"connection aborted",
		"operation aborted",
		"forcibly closed",
		"socket is not connected",
		"the specified network name is no longer available",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// isAddressInUse reports whether err indicates the requested listener
// address was already bound by another process or socket.
func isAddressInUse(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.EADDRINUSE) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "address already in use")
}
