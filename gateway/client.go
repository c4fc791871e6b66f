package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"chat-core/domain"
	"chat-core/domain/event"
	"chat-core/sink"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
)

// Client is one websocket connection: a read pump feeding the dispatch
// table and a write pump draining the connection's sink. Both pumps exit
// when the connection dies; the read pump owns the unregister.
type Client struct {
	id   domain.ConnID
	conn *websocket.Conn
	sink *sink.ConnSink
	gw   *Gateway
	log  *slog.Logger
}

func newClient(id domain.ConnID, conn *websocket.Conn, s *sink.ConnSink, gw *Gateway) *Client {
	return &Client{
		id:   id,
		conn: conn,
		sink: s,
		gw:   gw,
		log:  gw.log.With("conn", id),
	}
}

// ack pushes an error_ack through the client's own sink so delivery shares
// the write pump with every other event.
func (c *Client) ack(ctx context.Context, eventName string, err error) {
	if consumeErr := c.sink.Consume(ctx, event.ErrorAck{Event: eventName, Reason: err.Error()}); consumeErr != nil {
		c.log.Debug("Error ack dropped", "event", eventName)
	}
}

func (c *Client) readPump(ctx context.Context, cancel context.CancelFunc) {
	defer func() {
		cancel()
		c.gw.chats.Disconnect(c.id)
		c.sink.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.gw.maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("Unexpected close", "error", err)
			}
			return
		}

		var envelope Envelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			c.log.Debug("Malformed frame", "error", err)
			continue
		}

		handler, ok := c.gw.dispatch[envelope.Event]
		if !ok {
			c.log.Debug("Unknown event", "event", envelope.Event)
			continue
		}

		if err := handler(ctx, c, envelope.Data); err != nil {
			c.log.Debug("Event failed", "event", envelope.Event, "error", err)
			c.ack(ctx, envelope.Event, err)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case e, ok := <-c.sink.Events:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			frame, err := encodeEvent(e)
			if err != nil {
				c.log.Warn("Event encoding failed", "event", e.EventName(), "error", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
