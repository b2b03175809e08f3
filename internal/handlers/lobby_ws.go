// internal/handlers/lobby_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/songquiz/internal/codes"
	"github.com/jason-s-yu/songquiz/internal/lobby"
	"github.com/jason-s-yu/songquiz/internal/middleware"
	"github.com/jason-s-yu/songquiz/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	Subprotocol = "songquiz"

	outBuffer    = 64
	pingInterval = 30 * time.Second
	writeTimeout = 5 * time.Second
	readLimit    = 16 << 10

	// per socket flood control, independent of the per-participant guess limit
	messageRate  = 20
	messageBurst = 40
)

// inbound is a client frame. ID is set when the client wants an ack.
type inbound struct {
	Event string          `json:"event"`
	ID    *int64          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string      `json:"event"`
	ID    *int64      `json:"id,omitempty"`
	Data  interface{} `json:"data"`
}

// wsConn is one socket's outbound side. It implements models.Endpoint.
type wsConn struct {
	outChan chan outbound
	log     *logrus.Entry

	mu     sync.Mutex
	closed bool
}

func newWSConn(logger *logrus.Entry) *wsConn {
	return &wsConn{outChan: make(chan outbound, outBuffer), log: logger}
}

// Send queues an event without blocking. A client that cannot keep up loses events.
func (c *wsConn) Send(event string, payload interface{}) {
	c.push(outbound{Event: event, Data: payload})
}

func (c *wsConn) ack(id *int64, data interface{}) {
	if id == nil {
		return
	}
	c.push(outbound{Event: "ack", ID: id, Data: data})
}

func (c *wsConn) push(msg outbound) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.outChan <- msg:
	default:
		c.log.Warnf("outbound buffer full, dropping %s", msg.Event)
	}
}

func (c *wsConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.outChan)
	}
}

// LobbyWSHandler upgrades to the songquiz WebSocket protocol and serves one client.
// The identity comes from the auth_token cookie or the token query parameter;
// without one the socket can only query lobbies.
func (s *Server) LobbyWSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: s.OriginPatterns,
		})
		if err != nil {
			s.Log.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "client must speak the songquiz subprotocol")
			return
		}
		c.SetReadLimit(readLimit)

		user, code, reason := s.authenticate(r)
		if code != 0 {
			c.Close(code, reason)
			return
		}

		middleware.LogWebSocketConnect(s.Log, remoteAddr, r.URL.Path)
		entry := s.Log.WithField("remote", remoteAddr)
		if user != nil {
			entry = entry.WithField("user", user.Username)
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := newWSConn(entry)
		client := lobby.NewClient(s.Store, user, conn)

		go writePump(ctx, c, conn, entry)
		err = readPump(ctx, c, client, conn, entry)

		client.Disconnect()
		conn.close()
		middleware.LogWebSocketDisconnect(s.Log, remoteAddr, r.URL.Path, err)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// authenticate resolves the caller. A missing token yields no user; a bad one a close code.
func (s *Server) authenticate(r *http.Request) (*models.User, websocket.StatusCode, string) {
	token := tokenFromRequest(r)
	if token == "" {
		return nil, 0, ""
	}
	id, err := s.Issuer.AuthenticateJWT(token)
	if err != nil {
		s.Log.Debugf("rejecting token: %v", err)
		return nil, InvalidAuthTokenError, "invalid auth token"
	}
	u, err := s.LoadUser(r.Context(), id)
	if err != nil {
		s.Log.Warnf("loading user %s: %v", id, err)
		return nil, UnknownUserError, "unknown user"
	}
	return u, 0, ""
}

// readPump decodes frames and dispatches them until the socket closes.
func readPump(ctx context.Context, c *websocket.Conn, client *lobby.Client, conn *wsConn, logger *logrus.Entry) error {
	limiter := rate.NewLimiter(rate.Limit(messageRate), messageBurst)

	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			logger.Debugf("ignoring non-text frame")
			continue
		}

		var in inbound
		if err := json.Unmarshal(msg, &in); err != nil || in.Event == "" {
			logger.Debugf("invalid frame: %v", err)
			conn.ack(in.ID, errorReply(codes.DataNotValid))
			continue
		}
		if !limiter.Allow() {
			conn.ack(in.ID, errorReply(codes.DoNotSpam))
			continue
		}

		dispatch(ctx, client, conn, in, logger)
	}
}

// writePump serializes queued events onto the socket and keeps it alive with pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *wsConn, logger *logrus.Entry) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.outChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("failed to marshal %s: %v", msg.Event, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Debugf("write failed: %v", err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Debugf("ping failed: %v", err)
				return
			}
		}
	}
}

// reply shapes the ack payload.
type reply map[string]interface{}

func successReply() reply {
	return reply{"success": true}
}

func errorReply(code codes.Code) reply {
	return reply{"error": string(code)}
}

// replyFor maps err onto an ack, logging errors that are not outcome codes.
func replyFor(err error, logger *logrus.Entry) reply {
	if err == nil {
		return successReply()
	}
	code := codes.Of(err)
	if code == codes.Unknown {
		logger.Errorf("unexpected error: %v", err)
	}
	return errorReply(code)
}

// statusReply reports a request that went through with a notice attached,
// like readiness lost to a rule change.
func statusReply(code codes.Code) reply {
	return reply{"success": true, "status": string(code)}
}
