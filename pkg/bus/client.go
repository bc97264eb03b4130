package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/voxloop/listener/internal/logging"
)

// DefaultWaitForResponseTimeout matches spec.md §5's "bus.wait_for_response
// (10s default)".
const DefaultWaitForResponseTimeout = 10 * time.Second

// Sentinel errors surfaced by Client implementations, composed with
// fmt.Errorf("...: %w", err) at the call site.
var (
	// ErrTimeout is returned by WaitForResponse when no matching
	// response arrived before the deadline.
	ErrTimeout = errors.New("bus: timed out waiting for response")
	// ErrDisconnected is returned by EmitMessage (and logged by Emit) when
	// called while no connection is currently established.
	ErrDisconnected = errors.New("bus: not connected")
)

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 30 * time.Second
)

// Client is what the rest of the listener (C4's Emitter, C7's Facade)
// talks to instead of a concrete WebSocket connection.
type Client interface {
	Connect(ctx context.Context) error
	On(msgType string, handler func(Message))
	Emit(msgType string, data map[string]interface{})
	EmitMessage(msg Message) error
	WaitForResponse(ctx context.Context, request Message, responseType string, timeout time.Duration) (Message, error)
	Close() error
}

type handlerEntry struct {
	id int64
	fn func(Message)
}

// WSClient is a Client backed by a coder/websocket connection, with
// reconnect-with-backoff on a dropped connection, generalizing the
// teacher's lazy-dial-and-invalidate-on-error pattern
// (LokutorTTS.getConn / the conn = nil on write/read failure idiom)
// into an explicit persistent reconnect loop, since this client both
// pushes events and must keep receiving unsolicited ones.
type WSClient struct {
	url string
	log logging.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	handlersMu sync.RWMutex
	handlers   map[string][]handlerEntry
	nextID     int64
}

// NewWSClient builds a WSClient targeting the given ws(s):// URL.
func NewWSClient(url string, log logging.Logger) *WSClient {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &WSClient{
		url:      url,
		log:      log,
		handlers: make(map[string][]handlerEntry),
	}
}

// Connect dials the bus and starts the background read/dispatch loop.
// The loop keeps running past transient disconnects until ctx is done
// or Close is called.
func (c *WSClient) Connect(ctx context.Context) error {
	if err := c.dial(ctx); err != nil {
		return err
	}
	go c.readLoop(ctx)
	return nil
}

func (c *WSClient) dial(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("bus: dial: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

func (c *WSClient) readLoop(ctx context.Context) {
	backoff := initialBackoff
	for {
		c.mu.Lock()
		conn, closed := c.conn, c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		if conn == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if err := c.dial(ctx); err != nil {
				c.log.Warn("bus: reconnect failed", "err", err)
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				continue
			}
			backoff = initialBackoff
			continue
		}

		var msg Message
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			c.log.Warn("bus: read failed, reconnecting", "err", err)
			c.invalidate(conn)
			continue
		}
		c.dispatch(msg)
	}
}

func (c *WSClient) invalidate(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	conn.Close(websocket.StatusAbnormalClosure, "connection lost")
}

func (c *WSClient) dispatch(msg Message) {
	c.handlersMu.RLock()
	entries := append([]handlerEntry(nil), c.handlers[msg.Type]...)
	c.handlersMu.RUnlock()
	for _, e := range entries {
		e.fn(msg)
	}
}

// On registers a permanent handler for every message of the given type.
func (c *WSClient) On(msgType string, handler func(Message)) {
	c.subscribe(msgType, handler)
}

// subscribe registers handler and returns a function that removes it.
func (c *WSClient) subscribe(msgType string, handler func(Message)) func() {
	id := atomic.AddInt64(&c.nextID, 1)
	c.handlersMu.Lock()
	c.handlers[msgType] = append(c.handlers[msgType], handlerEntry{id: id, fn: handler})
	c.handlersMu.Unlock()
	return func() {
		c.handlersMu.Lock()
		defer c.handlersMu.Unlock()
		list := c.handlers[msgType]
		for i, e := range list {
			if e.id == id {
				c.handlers[msgType] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Emit sends a message of the given type with no context.
func (c *WSClient) Emit(msgType string, data map[string]interface{}) {
	if err := c.EmitMessage(Message{Type: msgType, Data: data}); err != nil {
		c.log.Warn("bus: emit failed", "type", msgType, "err", err)
	}
}

// EmitMessage sends msg as-is.
func (c *WSClient) EmitMessage(msg Message) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrDisconnected
	}
	if err := wsjson.Write(context.Background(), conn, msg); err != nil {
		c.invalidate(conn)
		return fmt.Errorf("bus: emit: %w", err)
	}
	return nil
}

// WaitForResponse sends request and blocks for the first message of
// responseType, ctx cancellation, or timeout (DefaultWaitForResponseTimeout
// if timeout <= 0).
func (c *WSClient) WaitForResponse(ctx context.Context, request Message, responseType string, timeout time.Duration) (Message, error) {
	if timeout <= 0 {
		timeout = DefaultWaitForResponseTimeout
	}
	ch := make(chan Message, 1)
	unsubscribe := c.subscribe(responseType, func(m Message) {
		select {
		case ch <- m:
		default:
		}
	})
	defer unsubscribe()

	if err := c.EmitMessage(request); err != nil {
		return Message{}, err
	}

	select {
	case m := <-ch:
		return m, nil
	case <-time.After(timeout):
		return Message{}, fmt.Errorf("%w: %q", ErrTimeout, responseType)
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Close shuts down the connection and stops the read loop.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn != nil {
		err := c.conn.Close(websocket.StatusNormalClosure, "")
		c.conn = nil
		return err
	}
	return nil
}
