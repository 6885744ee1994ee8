package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/park285/bonk-chess-server/internal/obslog"
	"github.com/park285/bonk-chess-server/pkg/bonkdto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	sendQueueSize = 64
	writeTimeout  = 10 * time.Second
	pingTimeout   = 3 * time.Second
	readLimit     = 16 << 10
)

type client struct {
	id       string
	username string
	guest    bool

	conn *websocket.Conn
	send chan bonkdto.Outgoing

	mu       sync.Mutex
	closed   bool
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newClient(id, username string, guest bool, conn *websocket.Conn) *client {
	return &client{
		id:       id,
		username: username,
		guest:    guest,
		conn:     conn,
		send:     make(chan bonkdto.Outgoing, sendQueueSize),
		stopCh:   make(chan struct{}),
	}
}

// enqueue reports false when the queue is full. Messages to a stopped client
// are dropped silently.
func (c *client) enqueue(msg bonkdto.Outgoing) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.stopCh)
	})
}

func (c *client) isStopping() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

// readLoop decodes frames until the socket fails or the client is stopped.
func (c *client) readLoop(ctx context.Context, handle func(context.Context, *client, bonkdto.Envelope)) {
	for {
		var env bonkdto.Envelope
		if err := wsjson.Read(ctx, c.conn, &env); err != nil {
			if !c.isStopping() {
				status := websocket.CloseStatus(err)
				if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
					obslog.L().Debug("ws_closed", zap.String("conn_id", c.id), zap.Int("status", int(status)))
				} else {
					obslog.L().Info("ws_read_failed", zap.String("conn_id", c.id), zap.Error(err))
				}
			}
			return
		}
		handle(ctx, c, env)
	}
}

// writeLoop drains the send queue and pings the peer. Two consecutive ping
// failures close the connection.
func (c *client) writeLoop(ctx context.Context, pingInterval time.Duration) {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	pingFailures := 0
	for {
		select {
		case <-c.stopCh:
			c.flush(ctx)
			return
		case <-ctx.Done():
			return
		case msg := <-c.send:
			if err := c.write(ctx, msg); err != nil {
				obslog.L().Info("ws_write_failed", zap.String("conn_id", c.id), zap.Error(err))
				c.stop()
				return
			}
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				pingFailures++
				if pingFailures >= 2 {
					obslog.L().Info("ws_ping_failed", zap.String("conn_id", c.id), zap.Error(err))
					c.stop()
					return
				}
				continue
			}
			pingFailures = 0
		}
	}
}

// flush writes whatever is still queued, e.g. a final error, before closing.
func (c *client) flush(ctx context.Context) {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(ctx, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *client) write(ctx context.Context, msg bonkdto.Outgoing) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(wctx, c.conn, msg)
}
