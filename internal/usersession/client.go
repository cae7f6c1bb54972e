// Package usersession is the secondary directory: a privileged user-mode
// session reached through a WebSocket bridge process. It can see entities the
// bot account cannot, so the resolver only consults it for staff callers.
//
// Protocol (JSON text frames):
//
//	bot → bridge:  {"id": "<uuid>", "type": "resolve", "ref": "@alice"}
//	bridge → bot:  {"id": "<uuid>", "ok": true, "entity": {...}}
//	bridge → bot:  {"id": "<uuid>", "ok": false, "error": "not found"}
package usersession

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dayuer/guardbot-go/internal/bus"
)

var (
	// ErrNotConfigured means no bridge URL was set; lookups always miss.
	ErrNotConfigured = errors.New("usersession: not configured")
	// ErrNotFound means the bridge answered but knows no such entity.
	ErrNotFound = errors.New("usersession: entity not found")
	errConnLost = errors.New("usersession: connection lost")
)

// Config configures the bridge connection.
type Config struct {
	URL         string // ws://host:port/path
	Token       string
	DialTimeout time.Duration
}

type request struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Ref  string `json:"ref"`
}

type entity struct {
	ID        int64  `json:"id"`
	Kind      string `json:"kind"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Title     string `json:"title,omitempty"`
	Username  string `json:"username,omitempty"`
	Bot       bool   `json:"bot,omitempty"`
}

type response struct {
	ID     string  `json:"id"`
	OK     bool    `json:"ok"`
	Error  string  `json:"error,omitempty"`
	Entity *entity `json:"entity,omitempty"`
	err    error
}

// Client multiplexes lookups over one lazily dialed connection.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan response

	// gorilla/websocket does NOT support concurrent writes.
	writeMu sync.Mutex
}

// NewClient creates a client. An empty URL yields a client that reports ErrNotConfigured.
func NewClient(cfg Config) *Client {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	return &Client{
		cfg:     cfg,
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.DialTimeout},
		pending: make(map[string]chan response),
	}
}

// Configured reports whether a bridge URL is set.
func (c *Client) Configured() bool { return c.cfg.URL != "" }

// Lookup resolves ref ("123" or "@handle") through the bridge.
func (c *Client) Lookup(ctx context.Context, ref string) (bus.Identity, error) {
	if !c.Configured() {
		return bus.Identity{}, ErrNotConfigured
	}
	conn, err := c.connect(ctx)
	if err != nil {
		return bus.Identity{}, err
	}

	id := uuid.NewString()
	ch := make(chan response, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(ctx, conn, request{ID: id, Type: "resolve", Ref: ref}); err != nil {
		c.drop(conn, err)
		return bus.Identity{}, fmt.Errorf("usersession: send: %w", err)
	}

	select {
	case <-ctx.Done():
		return bus.Identity{}, ctx.Err()
	case resp := <-ch:
		if resp.err != nil {
			return bus.Identity{}, resp.err
		}
		if !resp.OK || resp.Entity == nil {
			if resp.Error != "" && resp.Error != "not found" {
				return bus.Identity{}, fmt.Errorf("%w: %s", ErrNotFound, resp.Error)
			}
			return bus.Identity{}, ErrNotFound
		}
		return resp.Entity.identity(), nil
	}
}

// Close closes the bridge connection, failing pending lookups.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	c.drop(conn, errConnLost)
	return nil
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	c.mu.Lock()
	if c.conn != nil {
		conn := c.conn
		c.mu.Unlock()
		return conn, nil
	}
	c.mu.Unlock()

	// Dial without mu held; a concurrent dial may win the install below.
	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return nil, fmt.Errorf("usersession: dial: %w", err)
	}

	c.mu.Lock()
	if c.conn != nil {
		existing := c.conn
		c.mu.Unlock()
		conn.Close()
		return existing, nil
	}
	c.conn = conn
	c.mu.Unlock()

	log.Printf("[UserSession] 🔗 Connected to %s", c.cfg.URL)
	go c.readLoop(conn)
	return conn, nil
}

func (c *Client) write(ctx context.Context, conn *websocket.Conn, req request) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
	} else {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	}
	return conn.WriteJSON(req)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var resp response
		if err := conn.ReadJSON(&resp); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[UserSession] ⚠️ Read error: %v", err)
			}
			c.drop(conn, errConnLost)
			return
		}
		c.mu.Lock()
		ch := c.pending[resp.ID]
		c.mu.Unlock()
		if ch != nil {
			select {
			case ch <- resp:
			default:
			}
		}
	}
}

// drop closes conn if it is still current and fails every pending lookup.
func (c *Client) drop(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	waiting := make([]chan response, 0, len(c.pending))
	for _, ch := range c.pending {
		waiting = append(waiting, ch)
	}
	c.mu.Unlock()

	conn.Close()
	for _, ch := range waiting {
		select {
		case ch <- response{err: cause}:
		default:
		}
	}
	log.Printf("[UserSession] 🔌 Disconnected: %v", cause)
}

func (e *entity) identity() bus.Identity {
	kind := bus.IdentityUser
	if e.Kind == string(bus.IdentityChannel) || e.Kind == "chat" {
		kind = bus.IdentityChannel
	}
	return bus.Identity{
		ID:        e.ID,
		Kind:      kind,
		FirstName: e.FirstName,
		LastName:  e.LastName,
		Title:     e.Title,
		Handle:    e.Username,
		IsBot:     e.Bot,
	}
}
