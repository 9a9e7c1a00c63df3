package realtime

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/kashsbd/awlam-backend/internal/logger"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBufferSize = 64
)

// Client is one websocket connection subscribed to a namespace.
type Client struct {
	conn *websocket.Conn
	hub  *Hub
	sub  Subscriber
	send chan []byte

	ctx    context.Context
	cancel context.CancelFunc
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		conn:   conn,
		hub:    hub,
		send:   make(chan []byte, sendBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Send queues a frame without blocking. Frames for a closed or saturated
// client are dropped.
func (c *Client) Send(data []byte) bool {
	select {
	case <-c.ctx.Done():
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Serve subscribes the client and blocks until the connection ends.
func (c *Client) Serve(namespace, userID string) {
	c.sub = c.hub.Subscribe(namespace, userID, c)
	defer c.close()

	go c.writePump()
	c.readPump()
}

func (c *Client) close() {
	c.hub.Unsubscribe(c.sub)
	c.cancel()
}

// readPump drains inbound frames so control frames are processed. Clients
// are not expected to send data.
func (c *Client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, _, err := c.conn.Read(c.ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Log.Debug("subscriber disconnected", zap.String("user_id", c.sub.UserID))
			} else if c.ctx.Err() == nil {
				logger.Log.Warn("websocket read failed", zap.String("user_id", c.sub.UserID), zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.cancel()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.conn.Close(websocket.StatusNormalClosure, "closing")
			return

		case data := <-c.send:
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Log.Warn("websocket write failed", zap.String("user_id", c.sub.UserID), zap.Error(err))
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				logger.Log.Debug("websocket ping failed", zap.String("user_id", c.sub.UserID), zap.Error(err))
				return
			}
		}
	}
}
