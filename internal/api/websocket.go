package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/irhvac-core/internal/hvac"
	"github.com/nerrad567/irhvac-core/internal/observer"
)

// PoolWebSocket names the WebSocket observer pool in metrics and logs.
const PoolWebSocket = "websocket"

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Same-origin UI on a captive network; credentials are checked by basic auth.
		return true
	},
}

// wsConn adapts a WebSocket to observer.Conn: each queued state message
// becomes one text frame.
type wsConn struct {
	conn      *websocket.Conn
	writeWait time.Duration
}

func (c *wsConn) Write(p []byte) (int, error) {
	//nolint:errcheck // Best-effort deadline; write error caught below
	c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *wsConn) Close() error {
	//nolint:errcheck // Best-effort close frame
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(c.writeWait))
	return c.conn.Close()
}

// handleWebSocket upgrades the connection and attaches it to the observer
// pool. The client receives every device's state, then a message per
// material change. Anything the client sends is ignored.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	pingInterval := time.Duration(s.wsCfg.PingInterval) * time.Second
	pongWait := time.Duration(s.wsCfg.PongTimeout) * time.Second
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	if pongWait <= 0 {
		pongWait = 10 * time.Second
	}
	adapter := &wsConn{conn: conn, writeWait: pongWait}

	var (
		sess      *observer.Session
		attachErr error
	)
	err = s.engine.Do(r.Context(), func(p *hvac.Processor) {
		sess, attachErr = s.observers.Attach(adapter, p.Snapshot())
	})
	if err == nil {
		err = attachErr
	}
	if err != nil {
		if errors.Is(err, observer.ErrPoolFull) && s.metrics != nil {
			s.metrics.ObserverRefused(PoolWebSocket)
		}
		s.logger.Info("websocket observer refused", "remote", r.RemoteAddr, "error", err)
		//nolint:errcheck // Best-effort close frame
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "observer slots full"),
			time.Now().Add(pongWait))
		conn.Close() //nolint:errcheck // refused connection
		return
	}
	defer s.observers.Detach(sess)

	s.logger.Info("websocket observer connected", "remote", r.RemoteAddr, "slot", sess.Slot, "session_id", sess.ID)

	go pingLoop(sess, conn, pingInterval, pongWait)

	if s.wsCfg.MaxMessageSize > 0 {
		conn.SetReadLimit(int64(s.wsCfg.MaxMessageSize))
	}
	//nolint:errcheck // Best-effort deadline on connection setup
	conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", "slot", sess.Slot, "error", err)
			} else {
				s.logger.Debug("websocket observer disconnected", "slot", sess.Slot, "error", err)
			}
			return
		}
		// Any client frame counts as liveness.
		//nolint:errcheck // Best-effort deadline reset
		conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	}
}

// pingLoop sends protocol pings until the session ends. WriteControl is
// safe to call alongside the session's writer goroutine.
func pingLoop(sess *observer.Session, conn *websocket.Conn, interval, wait time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-sess.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wait)); err != nil {
				sess.Close()
				return
			}
		}
	}
}
