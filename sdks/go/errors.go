package bridgeclient

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrNotConnected is returned by Call/Notify when no connection to the
	// bridge is currently established.
	ErrNotConnected = errors.New("bridgeclient: not connected")

	// ErrAlreadyConnected is returned by Dial when called twice without an
	// intervening Close.
	ErrAlreadyConnected = errors.New("bridgeclient: already connected")

	// ErrRequestTimeout is returned when a Call does not receive a
	// response before its context is done.
	ErrRequestTimeout = errors.New("bridgeclient: request timed out")

	// ErrFrameTooLarge is the read loop's error for a frame header whose
	// Content-Length is missing, malformed or above the maximum message
	// size. The read loop logs it and closes the connection; pending
	// Calls then return ErrNotConnected, not this error.
	ErrFrameTooLarge = errors.New("bridgeclient: frame exceeds maximum message size")
)

// RPCError is a JSON-RPC error object returned by the bridge in place of
// a result.
type RPCError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return fmt.Sprintf("bridgeclient: rpc error %d: %s", e.Code, e.Message)
}
