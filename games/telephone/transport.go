/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package telephone

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	sendBuffer     = 16
	frameBuffer    = 64
	maxMessageSize = 16 << 20 // reveal_all carries every drawing of the round
)

var dialer = websocket.Dialer{
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
}

// RoomURL maps a server base URL and room id onto the room's websocket
// endpoint, e.g. https://host -> wss://host/ws/<room>.
func RoomURL(server, roomID string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(server))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server url %q has no host", server)
	}

	base := strings.TrimSuffix(u.Path, "/")
	u.Path = base + "/ws/" + roomID
	u.RawPath = base + "/ws/" + url.PathEscape(roomID)
	u.RawQuery = ""
	u.Fragment = ""

	return u.String(), nil
}

// Conn is one persistent connection to a room.
type Conn struct {
	ws  *websocket.Conn
	log zerolog.Logger

	send   chan ClientMessage
	frames chan []byte
	quit   chan struct{}

	open      atomic.Bool
	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

// Dial opens the room's websocket and starts its read and write pumps.
func Dial(ctx context.Context, server, roomID string, log zerolog.Logger) (*Conn, error) {
	target, err := RoomURL(server, roomID)
	if err != nil {
		return nil, err
	}

	ws, resp, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %s)", target, err, resp.Status)
		}
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	log.Debug().Str("url", target).Msg("connected")

	return newConn(ws, log), nil
}

func newConn(ws *websocket.Conn, log zerolog.Logger) *Conn {
	ws.SetReadLimit(maxMessageSize)

	c := &Conn{
		ws:     ws,
		log:    log,
		send:   make(chan ClientMessage, sendBuffer),
		frames: make(chan []byte, frameBuffer),
		quit:   make(chan struct{}),
	}
	c.open.Store(true)

	go c.writePump()
	go c.readPump()

	return c
}

func (c *Conn) Open() bool {
	return c.open.Load()
}

// Send queues msg for the write pump. It never blocks: when the
// connection is closed or the queue is full the message is dropped.
func (c *Conn) Send(msg ClientMessage) bool {
	if !c.open.Load() {
		return false
	}
	select {
	case c.send <- msg:
		return true
	case <-c.quit:
		return false
	default:
		return false
	}
}

// Frames delivers inbound text frames in arrival order and is closed when
// the connection ends.
func (c *Conn) Frames() <-chan []byte {
	return c.frames
}

// Err reports why the connection ended.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close sends a normal close frame and tears the connection down.
func (c *Conn) Close() error {
	if c.open.Load() {
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
	}
	c.fail(ErrConnClosed)
	return nil
}

func (c *Conn) fail(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()

	c.closeOnce.Do(func() {
		c.open.Store(false)
		close(c.quit)
		_ = c.ws.Close()
	})
}

func (c *Conn) readPump() {
	defer close(c.frames)

	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = ErrConnClosed
			}
			c.fail(err)
			return
		}
		if kind != websocket.TextMessage {
			c.log.Debug().Int("kind", kind).Msg("ignoring non-text frame")
			continue
		}

		select {
		case c.frames <- data:
		case <-c.quit:
			return
		}
	}
}

func (c *Conn) writePump() {
	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(msg); err != nil {
				c.log.Warn().Err(err).Str("type", msg.Type).Msg("write failed")
				c.fail(fmt.Errorf("write: %w", err))
				return
			}
		case <-c.quit:
			return
		}
	}
}
