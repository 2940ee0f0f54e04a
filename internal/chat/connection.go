package chat

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/spillit/spillit/internal/auth"
)

const sendBufferSize = 64

const (
	stateOpen int32 = iota
	stateClosing
	stateClosed
)

// Connection binds one live duplex transport to the identity that opened
// it. The identity is read-only for the connection's lifetime. Lifecycle is
// open → closing → closed; the open → closing transition is one-way and
// taken exactly once, which is what makes disconnect cleanup idempotent.
type Connection struct {
	Id       string
	Identity auth.Identity

	// Deadline is the session expiry; zero means the session never expires.
	Deadline time.Time

	// Send carries outbound events to the connection's writer. Fan-out never
	// blocks on it: a full buffer marks the connection stale.
	Send chan Event

	done      chan struct{}
	transport io.Closer
	state     atomic.Int32
}

// NewConnection wraps an accepted transport. transport may be nil when no
// underlying closer exists (tests drive the send channel directly).
func NewConnection(id string, identity auth.Identity, deadline time.Time, transport io.Closer) *Connection {
	return &Connection{
		Id:        id,
		Identity:  identity,
		Deadline:  deadline,
		Send:      make(chan Event, sendBufferSize),
		done:      make(chan struct{}),
		transport: transport,
	}
}

// BeginClose performs the open → closing transition. It returns true for
// exactly one caller; later close signals observe false and must not run
// cleanup again.
func (c *Connection) BeginClose() bool {
	return c.state.CompareAndSwap(stateOpen, stateClosing)
}

// FinishClose marks cleanup complete and releases the writer.
func (c *Connection) FinishClose() {
	if c.state.CompareAndSwap(stateClosing, stateClosed) {
		close(c.done)
	}
}

func (c *Connection) IsOpen() bool {
	return c.state.Load() == stateOpen
}

// Done is closed once the connection has fully closed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Expired reports whether the session backing this connection has lapsed.
func (c *Connection) Expired(now time.Time) bool {
	return !c.Deadline.IsZero() && now.After(c.Deadline)
}

// CloseTransport shuts the underlying transport. The read loop observes the
// failure and routes the connection through the disconnect path.
func (c *Connection) CloseTransport() {
	if c.transport != nil {
		c.transport.Close()
	}
}

type contextKey string

const connectionKey contextKey = "connection"

func WithConnection(ctx context.Context, conn *Connection) context.Context {
	return context.WithValue(ctx, connectionKey, conn)
}

func ConnectionFromContext(ctx context.Context) (*Connection, bool) {
	conn, ok := ctx.Value(connectionKey).(*Connection)

	return conn, ok
}
