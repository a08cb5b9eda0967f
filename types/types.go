// Package types holds the wire-level and state-machine types shared
// between the cache facade and the bus transport, mirroring the role
// the teacher repo's types package plays for its InvalidationEvent.
package types

import "fmt"

// State is the finite state of the Connection Supervisor (spec §3).
type State int32

const (
	// StateConnected is the initial state after a successful attach.
	StateConnected State = iota
	// StateReconnecting is entered on transport error/close and left
	// on successful reattach.
	StateReconnecting
	// StateClosing is entered when Close is called and left only for
	// StateClosed.
	StateClosing
	// StateClosed is the terminal state once teardown completes.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ReconnectEvent is the payload passed to the reconnecting/reconnected
// observers (spec §6.3).
type ReconnectEvent struct {
	Err           error
	Attempt       int
	RetryInterval int64 // milliseconds
}

// CacheIDHeader is the AMQP message header carrying the originator's
// cache id (spec §6.2).
const CacheIDHeader = "x-cache-id"

// ExchangePrefix namespaces every exchange this module declares
// (spec §3: "<exchange> = rabbit-lru-cache-<name>").
const ExchangePrefix = "rabbit-lru-cache-"
