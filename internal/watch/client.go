// Package watch follows a game's live updates from a server's WebSocket
// endpoint, reconnecting with backoff when the connection drops.
package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Reconnection parameters
	initialReconnectDelay  = 1 * time.Second
	maxReconnectDelay      = 5 * time.Minute
	reconnectBackoffFactor = 2

	dialTimeout = 30 * time.Second
	pongTimeout = 90 * time.Second
)

var ErrGameNotFound = errors.New("game not found on server")

// Update is one message pushed by the server.
type Update struct {
	GameID string          `json:"gameId"`
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data"`
}

// Handler is called for each update, in arrival order.
type Handler func(update Update) error

// Client follows a single game.
type Client struct {
	url            string
	gameID         string
	handler        Handler
	logger         zerolog.Logger
	dialer         *websocket.Dialer
	reconnectDelay time.Duration

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
}

// Option configures the client
type Option func(*Client)

// WithLogger sets a custom logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDialer replaces the default WebSocket dialer.
func WithDialer(dialer *websocket.Dialer) Option {
	return func(c *Client) {
		c.dialer = dialer
	}
}

// WithInitialReconnectDelay sets the initial reconnect delay
func WithInitialReconnectDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.reconnectDelay = delay
	}
}

// NewClient builds a client for gameID on the server at serverURL
// (http, https, ws or wss).
func NewClient(serverURL, gameID string, handler Handler, opts ...Option) (*Client, error) {
	wsURL, err := websocketURL(serverURL, gameID)
	if err != nil {
		return nil, err
	}

	client := &Client{
		url:            wsURL,
		gameID:         gameID,
		handler:        handler,
		logger:         zerolog.Nop(),
		dialer:         websocket.DefaultDialer,
		reconnectDelay: initialReconnectDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func websocketURL(serverURL, gameID string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"gameId": {gameID}}.Encode()
	return u.String(), nil
}

// IsConnected returns whether the client is connected
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Run follows the game until ctx is cancelled or the server reports the game
// does not exist. Dropped connections are retried with exponential backoff.
func (c *Client) Run(ctx context.Context) error {
	for {
		err := c.connect(ctx)
		if err == nil {
			err = c.listen(ctx)
		}
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrGameNotFound) {
			return err
		}

		c.logger.Error().Err(err).Str("gameID", c.gameID).Msg("Watch connection lost")
		if !c.waitReconnect(ctx) {
			return nil
		}
	}
}

func (c *Client) connect(ctx context.Context) error {
	c.logger.Info().Str("url", c.url).Msg("Connecting to game")

	headers := http.Header{}
	headers.Set("User-Agent", "ATChess3D/1.0")

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, resp, err := c.dialer.DialContext(dialCtx, c.url, headers)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrGameNotFound, c.gameID)
		}
		return fmt.Errorf("websocket dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.reconnectDelay = initialReconnectDelay
	c.mu.Unlock()

	c.logger.Info().Str("gameID", c.gameID).Msg("Connected to game")

	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	return nil
}

func (c *Client) listen(ctx context.Context) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		stop()
		c.disconnect()
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("websocket read error: %w", err)
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var update Update
		if err := json.Unmarshal(data, &update); err != nil {
			c.logger.Error().Err(err).Msg("Error decoding update")
			continue
		}
		if update.Type == "pong" {
			continue
		}

		if err := c.handler(update); err != nil {
			c.logger.Error().Err(err).Str("type", update.Type).Msg("Update handler error")
		}
	}
}

func (c *Client) disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
}

// waitReconnect sleeps for the current backoff and doubles it. It returns
// false if ctx ends first.
func (c *Client) waitReconnect(ctx context.Context) bool {
	c.mu.Lock()
	delay := c.reconnectDelay
	c.reconnectDelay *= reconnectBackoffFactor
	if c.reconnectDelay > maxReconnectDelay {
		c.reconnectDelay = maxReconnectDelay
	}
	c.mu.Unlock()

	c.logger.Info().Dur("delay", delay).Msg("Reconnecting")

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
