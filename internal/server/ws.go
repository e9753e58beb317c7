package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/puttworks/putt-server-go/internal/auth"
	"github.com/puttworks/putt-server-go/internal/round"
	"github.com/puttworks/putt-server-go/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// clientFrame is one inbound message from a playing client.
type clientFrame struct {
	Type      string  `json:"type"`
	X         float64 `json:"x,omitempty"`
	Z         float64 `json:"z,omitempty"`
	Power     float64 `json:"power,omitempty"`
	Mode      string  `json:"mode,omitempty"`
	Immediate bool    `json:"immediate,omitempty"`
}

// Gateway upgrades authenticated HTTP requests to game WebSocket sessions
// and bridges them to the player's live round.
type Gateway struct {
	sessions *session.Manager
	rounds   *round.Manager
	issuer   *auth.TokenIssuer
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewGateway builds the WebSocket gateway. allowedOrigins of ["*"] disables
// the origin check.
func NewGateway(sessions *session.Manager, rounds *round.Manager, issuer *auth.TokenIssuer, allowedOrigins []string, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}
	return &Gateway{
		sessions: sessions,
		rounds:   rounds,
		issuer:   issuer,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// ServeHTTP authenticates the request, attaches it to the player's live
// round, and takes over the connection.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := g.issuer.Verify(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	rnd, ok := g.rounds.RoundByPlayer(claims.PlayerID)
	if !ok {
		http.Error(w, "no active round; create one first", http.StatusConflict)
		return
	}

	sess, ok := g.sessions.ByPlayer(claims.PlayerID)
	if !ok {
		sess = g.sessions.Create(claims.PlayerID, claims.Name)
	}
	g.sessions.AttachRound(sess.ID, rnd.ID)

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn:   conn,
		round:  rnd,
		msgs:   rnd.Subscribe(),
		logger: g.logger.With(zap.String("player_id", claims.PlayerID), zap.String("round_id", rnd.ID)),
	}
	g.logger.Info("websocket client connected",
		zap.String("player_id", claims.PlayerID),
		zap.String("round_id", rnd.ID),
	)

	go c.writePump()
	c.readPump()
}

// client is one upgraded connection bound to a round.
type client struct {
	conn   *websocket.Conn
	round  *round.Round
	msgs   chan round.Message
	logger *zap.Logger
}

func (c *client) readPump() {
	defer func() {
		c.round.Unsubscribe(c.msgs)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		var frame clientFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			c.logger.Debug("bad client frame", zap.Error(err))
			continue
		}
		c.dispatch(frame)
	}
}

func (c *client) dispatch(frame clientFrame) {
	switch frame.Type {
	case "aim":
		c.round.Aim(frame.X, frame.Z)
	case "strike":
		c.round.Strike(frame.Power)
	case "continue":
		c.round.Continue()
	case "camera":
		c.round.SetCameraMode(frame.Mode, frame.Immediate)
	case "pause":
		c.round.Pause()
	case "resume":
		c.round.Resume()
	case "ping":
		// Keepalive only; the lease renewal happened on read.
	default:
		c.logger.Debug("unknown frame type", zap.String("type", frame.Type))
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.msgs:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Round is gone; tell the client and hang up.
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "round closed"))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
