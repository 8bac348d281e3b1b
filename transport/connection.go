package transport

import "time"

// State is the derived liveness of a packet source. UDP is connectionless,
// so a "connection" is pure bookkeeping transitioned by elapsed time since
// the last packet.
type State uint8

const (
	// StateConnected means a packet arrived within the stale window.
	StateConnected State = iota
	// StateStale means the source has been quiet past the stale window but
	// not long enough to count as gone.
	StateStale
	// StateDisconnected means the source has been quiet past the disconnect
	// window; the record is eligible for eviction.
	StateDisconnected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateConnected:
		return "CONNECTED"
	case StateStale:
		return "STALE"
	case StateDisconnected:
		return "DISCONNECTED"
	}
	return "UNKNOWN"
}

// Default liveness windows.
const (
	// DefaultStaleAfter is the quiet time after which a source turns stale.
	DefaultStaleAfter = 2 * time.Second
	// DefaultDisconnectAfter is the quiet time after which a source counts
	// as disconnected.
	DefaultDisconnectAfter = 10 * time.Second
	// DefaultEvictAfter is the quiet time after which a disconnected record
	// is dropped from the connection table.
	DefaultEvictAfter = 60 * time.Second
)

// Connection is the per-source record kept by the server.
type Connection struct {
	// Addr is the source address in host:port form.
	Addr string
	// FirstSeen is the arrival time of the source's first packet.
	FirstSeen time.Time
	// LastSeen is the arrival time of the source's most recent packet.
	LastSeen time.Time
	// Packets counts datagrams received from the source.
	Packets uint64
	// Bytes counts payload bytes received from the source.
	Bytes uint64
}

// stateAt derives the liveness state from the quiet time at now.
func (c *Connection) stateAt(now time.Time, staleAfter, disconnectAfter time.Duration) State {
	quiet := now.Sub(c.LastSeen)
	switch {
	case quiet > disconnectAfter:
		return StateDisconnected
	case quiet >= staleAfter:
		return StateStale
	default:
		return StateConnected
	}
}

// ConnectionInfo is a point-in-time snapshot of a connection record with its
// derived liveness state.
type ConnectionInfo struct {
	Connection
	State State
}
