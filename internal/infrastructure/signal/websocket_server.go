package signal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"pairwave/internal/core/domain"
	"pairwave/internal/core/ports"
	"pairwave/pkg/optimize"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// sendBufPool recycles the scratch buffers used to encode outgoing events,
// since every pairing relays a steady stream of signaling and chat frames.
var sendBufPool = optimize.NewBytePool(512)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // configured at the reverse proxy layer in production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// wireEvent is the newline-delimited JSON envelope as it appears on the
// wire, before the session coordinator decodes Payload into its concrete
// per-EventType struct.
type wireEvent struct {
	Type    domain.EventType `json:"type"`
	Payload json.RawMessage  `json:"payload,omitempty"`
}

// Gateway upgrades HTTP connections to WebSocket and runs the per-session
// read loop, dispatching every decoded event to the SessionCoordinator. It
// mirrors the ping/pong liveness and message/error-channel structure used
// throughout this codebase's transport layer.
type Gateway struct {
	coordinator ports.SessionCoordinator

	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration

	logger *zap.SugaredLogger
}

// NewGateway creates a WebSocket gateway dispatching to the given coordinator.
func NewGateway(coordinator ports.SessionCoordinator, pingInterval, readTimeout, writeTimeout time.Duration, logger *zap.SugaredLogger) *Gateway {
	return &Gateway{
		coordinator:  coordinator,
		pingInterval: pingInterval,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// Upgrade is the gin handler for the /ws route. AuthMiddleware has already
// resolved and stashed the bearer token on the context.
func (g *Gateway) Upgrade(c *gin.Context) {
	token, _ := c.Get("token")
	tokenStr, _ := token.(string)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sender := &connSender{conn: conn, writeTimeout: g.writeTimeout}

	session, err := g.coordinator.HandleConnect(c.Request.Context(), sender, tokenStr)
	if err != nil {
		g.logger.Warnw("websocket auth rejected", "error", err)
		return
	}

	g.logger.Infow("session connected", "session", session.ID, "user", session.UserID, "tier", session.Tier)
	g.serve(sender, session.ID)
}

func (g *Gateway) serve(sender *connSender, sessionID domain.SessionID) {
	conn := sender.conn
	conn.SetReadDeadline(time.Now().Add(g.readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(g.readTimeout))
		return nil
	})

	pingTicker := time.NewTicker(g.pingInterval)
	defer pingTicker.Stop()

	messageChan := make(chan wireEvent, 16)
	errorChan := make(chan error, 1)

	go func() {
		for {
			var msg wireEvent
			if err := conn.ReadJSON(&msg); err != nil {
				errorChan <- err
				return
			}
			conn.SetReadDeadline(time.Now().Add(g.readTimeout))
			messageChan <- msg
		}
	}()

	ctx := context.Background()

loop:
	for {
		select {
		case msg := <-messageChan:
			event, err := decodeEvent(msg)
			if err != nil {
				g.logger.Debugw("dropping malformed event", "session", sessionID, "error", err)
				continue
			}
			if err := g.coordinator.HandleEvent(ctx, sessionID, event); err != nil {
				g.logger.Debugw("event handling error", "session", sessionID, "type", event.Type, "error", err)
			}

		case <-pingTicker.C:
			if err := sender.ping(); err != nil {
				g.logger.Infow("ping failed, closing session", "session", sessionID, "error", err)
				break loop
			}

		case err := <-errorChan:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				g.logger.Infow("read error", "session", sessionID, "error", err)
			}
			break loop
		}
	}

	if err := g.coordinator.HandleDisconnect(ctx, sessionID); err != nil {
		g.logger.Warnw("disconnect cleanup error", "session", sessionID, "error", err)
	}
	g.logger.Infow("session disconnected", "session", sessionID)
}

// HealthCheck is the gin handler for the /health route.
func (g *Gateway) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

// connSender adapts a gorilla websocket connection to domain.Sender.
// gorilla/websocket allows at most one concurrent writer per connection;
// writeMu is the single point every writer — RelayService and
// SearchDriverService delivering events from their own goroutines, and
// Gateway.serve's own ping ticker — funnels through to honor that.
type connSender struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
}

func (s *connSender) Send(event domain.Event) error {
	scratch := sendBufPool.Get()
	buf := bytes.NewBuffer(scratch[:0])
	defer sendBufPool.Put(buf.Bytes())

	if err := json.NewEncoder(buf).Encode(event); err != nil {
		return err
	}

	return s.writeMessage(websocket.TextMessage, buf.Bytes())
}

// ping sends a WebSocket ping frame, serialized against Send the same way.
func (s *connSender) ping() error {
	return s.writeMessage(websocket.PingMessage, nil)
}

func (s *connSender) writeMessage(messageType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	return s.conn.WriteMessage(messageType, data)
}

func (s *connSender) Close() error {
	return s.conn.Close()
}
