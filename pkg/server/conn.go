package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lernhub/boardsync/pkg/protocol"
)

// conn is one live WebSocket participant. It satisfies room.Peer:
// broadcasts are queued on the send channel and written by a single
// writer goroutine, so fan-out under the room lock never blocks on
// the network.
type conn struct {
	id      string
	roomID  string
	variant protocol.Variant

	ws     *websocket.Conn
	srv    *Server
	logger *slog.Logger

	send chan []byte
	done chan struct{}

	closeOnce sync.Once
	leaveOnce sync.Once
}

func newConn(srv *Server, ws *websocket.Conn, roomID, sessionID string, variant protocol.Variant) *conn {
	return &conn{
		id:      sessionID,
		roomID:  roomID,
		variant: variant,
		ws:      ws,
		srv:     srv,
		logger:  srv.logger.With("room", roomID, "session", sessionID),
		send:    make(chan []byte, srv.config.SendQueueSize),
		done:    make(chan struct{}),
	}
}

func (c *conn) Variant() protocol.Variant { return c.variant }

// Send queues a message for the writer goroutine. It never blocks: a
// full queue means the client cannot keep up, so the message is
// dropped and the connection torn down.
func (c *conn) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.logger.Warn("send queue full, closing connection")
		c.close()
		return ErrSendBufferFull
	}
}

// close stops both pumps. Safe to call from any goroutine, any number
// of times.
func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// leave detaches the session from its room exactly once, regardless
// of whether the read loop, the write pump, or a failed Send got
// there first. Passing the conn itself means a close that arrives
// after the session ID was reclaimed by a new connection cannot evict
// the replacement.
func (c *conn) leave() {
	c.leaveOnce.Do(func() {
		c.srv.manager.Leave(c.id, c)
	})
}

// writePump drains the send queue onto the socket and emits keepalive
// pings. It owns all writes to the underlying connection.
func (c *conn) writePump() {
	ticker := time.NewTicker(c.srv.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.srv.config.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("write failed", "error", err)
				c.close()
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.srv.config.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}

		case <-c.done:
			// Flush whatever is already queued before closing; the
			// user-left broadcast for this session is not in our own
			// queue, so draining is best effort.
			for {
				select {
				case data := <-c.send:
					c.ws.SetWriteDeadline(time.Now().Add(c.srv.config.WriteTimeout))
					if c.ws.WriteMessage(websocket.TextMessage, data) != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// readLoop reads client messages until the socket dies, then detaches
// the session. This method blocks and is run on the upgrade handler's
// goroutine.
func (c *conn) readLoop() {
	defer func() {
		c.leave()
		c.close()
	}()

	c.ws.SetReadLimit(c.srv.config.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.srv.config.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.srv.config.ReadTimeout))
		return nil
	})

	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.logger.Error("read error", "error", err)
			}
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(c.srv.config.ReadTimeout))
		c.dispatch(msg)
	}
}

// dispatch handles one inbound message. Malformed or unknown messages
// are logged and skipped; the connection stays up.
func (c *conn) dispatch(msg []byte) {
	in, err := protocol.ParseInbound(msg)
	if err != nil {
		c.logger.Warn("message dropped", "error", err)
		return
	}

	switch in.Type {
	case protocol.TypeDocumentUpdate, protocol.TypePush:
		applied, err := c.srv.manager.ApplyAndBroadcast(c.roomID, c.id, in.Diff)
		if err != nil {
			// The manager already logged the rejection; the diff is
			// simply not acknowledged.
			return
		}
		if c.variant == protocol.VariantPush {
			c.Send(protocol.EncodePushResult(applied.Clock))
		}

	case protocol.TypePing:
		c.Send(protocol.EncodePong(time.Now()))

	default:
		c.logger.Debug("ignoring message", "type", in.Type)
	}
}
