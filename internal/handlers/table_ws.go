// internal/handlers/table_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/tilewire/mahjong/internal/middleware"
	"github.com/tilewire/mahjong/internal/protocol"
	"github.com/tilewire/mahjong/internal/table"
)

const (
	wsSubprotocol = "mahjong"

	// outBufferSize bounds the per-connection send queue. Game logic
	// enqueues non-blockingly; a client too slow to drain its queue loses
	// messages rather than stalling the table.
	outBufferSize = 64

	writeTimeout = 3 * time.Second
)

// wsConn adapts a websocket to table.Conn: Send enqueues, a single writer
// pump drains, so per-connection message order is preserved and game logic
// never blocks on network I/O.
type wsConn struct {
	c   *websocket.Conn
	log *logrus.Logger
	out chan protocol.ServerMessage
}

func newWSConn(c *websocket.Conn, log *logrus.Logger) *wsConn {
	return &wsConn{c: c, log: log, out: make(chan protocol.ServerMessage, outBufferSize)}
}

// Send implements table.Conn. It must never block.
func (w *wsConn) Send(msg protocol.ServerMessage) {
	select {
	case w.out <- msg:
	default:
		w.log.WithField("type", msg.Type).Warn("outbound queue full, dropping message")
	}
}

// writePump serializes all writes to the websocket.
func (w *wsConn) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-w.out:
			data, err := json.Marshal(msg)
			if err != nil {
				w.log.WithError(err).Error("marshal outbound message")
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = w.c.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				w.log.WithError(err).Debug("websocket write failed")
				return
			}
		}
	}
}

// TableWSHandler upgrades to websocket and runs the connection's read loop.
// One endpoint serves the whole table lifecycle: creation, joining,
// Charleston, and play.
func (s *Server) TableWSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{wsSubprotocol},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			s.Log.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler exit")

		if c.Subprotocol() != wsSubprotocol {
			c.Close(websocket.StatusPolicyViolation, "client must use the 'mahjong' subprotocol")
			return
		}

		middleware.LogWebSocketConnect(s.Log, r.RemoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		wc := newWSConn(c, s.Log)
		go wc.writePump(ctx)

		sess, readErr := s.readMessages(ctx, c, wc)
		if sess != nil {
			s.Manager.HandleDisconnect(sess, wc)
		}
		middleware.LogWebSocketDisconnect(s.Log, r.RemoteAddr, r.URL.Path, readErr)
		c.Close(websocket.StatusNormalClosure, "bye")
	}
}

// readMessages processes inbound messages until the connection drops,
// returning the session the connection ended up bound to, if any, and the
// read error that ended the loop. Malformed payloads are logged and
// answered with an error message, never allowed to take the connection or
// the table down.
func (s *Server) readMessages(ctx context.Context, c *websocket.Conn, wc *wsConn) (*table.PlayerSession, error) {
	var sess *table.PlayerSession

	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			return sess, err
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg protocol.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.Log.WithError(err).Warn("malformed inbound message")
			wc.Send(protocol.NewError(protocol.CodeInvalidMessage, "malformed payload"))
			continue
		}
		if !msg.Valid() {
			s.Log.WithFields(logrus.Fields{"type": msg.Type}).Warn("inbound message missing trace id or timestamp")
			wc.Send(protocol.NewError(protocol.CodeInvalidMessage, "missing type, traceId, or timestamp"))
			continue
		}

		switch msg.Type {
		case protocol.TypePing:
			pong := protocol.New(protocol.TypePong, nil)
			pong.TraceID = msg.TraceID
			wc.Send(pong)

		case protocol.TypeCreateTable:
			if sess != nil {
				wc.Send(protocol.NewError(protocol.CodeInvalidMessage, "already seated at a table"))
				continue
			}
			created, err := s.Manager.CreateTable(wc, msg.DisplayName, msg.ClientSeed)
			if err != nil {
				s.Log.WithError(err).Error("create table")
				wc.Send(protocol.NewError(protocol.CodeInternal, "failed to create table"))
				continue
			}
			sess = created

		case protocol.TypeJoinTable:
			if sess != nil {
				wc.Send(protocol.NewError(protocol.CodeInvalidMessage, "already seated at a table"))
				continue
			}
			joined, ok := s.Manager.JoinTable(wc, msg.InviteCode, msg.DisplayName, msg.ClientSeed, msg.SessionToken)
			if ok {
				sess = joined
			}

		case protocol.TypeLeaveTable:
			if sess == nil {
				wc.Send(protocol.NewError(protocol.CodeNotSeated, "not seated at a table"))
				continue
			}
			s.Manager.LeaveTable(sess)
			sess = nil

		default:
			if sess == nil {
				wc.Send(protocol.NewError(protocol.CodeNotSeated, "join a table first"))
				continue
			}
			s.routeGameplay(sess, msg, wc)
		}
	}
}

// routeGameplay dispatches in-table messages for a seated session.
func (s *Server) routeGameplay(sess *table.PlayerSession, msg protocol.ClientMessage, wc *wsConn) {
	switch msg.Type {
	case protocol.TypeCharlestonSelect:
		s.Manager.CharlestonSelect(sess, msg.Tiles, msg.BlindKeep)
	case protocol.TypeCharlestonReady:
		s.Manager.CharlestonReady(sess)
	case protocol.TypeCharlestonVote:
		if msg.Vote == nil {
			wc.Send(protocol.NewError(protocol.CodeInvalidMessage, "vote requires a yes/no"))
			return
		}
		s.Manager.CharlestonVote(sess, *msg.Vote)
	case protocol.TypeCourtesySelect:
		target := -1
		if msg.TargetSeat != nil {
			target = *msg.TargetSeat
		}
		s.Manager.CourtesySelect(sess, target, msg.Tiles)
	case protocol.TypeDrawTile:
		s.Manager.DrawTile(sess)
	case protocol.TypeDiscardTile:
		s.Manager.DiscardTile(sess, msg.Tile)
	case protocol.TypeClaimTile:
		s.Manager.ClaimTile(sess, msg.Tile)
	case protocol.TypeDeclareWin:
		s.Manager.DeclareWin(sess, msg.Pattern)
	default:
		s.Log.WithField("type", msg.Type).Warn("unknown message type")
		wc.Send(protocol.NewError(protocol.CodeInvalidMessage, "unknown message type"))
	}
}
