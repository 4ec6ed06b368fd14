// Purpose: Owns server.go, the HTTP/WebSocket transport around Broker:
// upgrading connections, classifying the first frame as a handshake or an
// ordinary client request (spec §4.1 "Role"), running each session's read
// loop, and pinging the extension connection every 20s (spec §4.1
// "Keepalive"). Pong replies are read and discarded; no deadline is set on
// them, so a silent peer is only noticed when a read or write fails.
package broker

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hugopalma17/human-browser/internal/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server wraps a Broker with an http.Handler for the WebSocket endpoint and
// an optional JSON /health endpoint.
type Server struct {
	broker *Broker
	log    *zap.SugaredLogger
}

// NewServer builds a Server around an existing Broker.
func NewServer(b *Broker, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{broker: b, log: log}
}

// ServeHTTP upgrades the connection and runs its session loop until the
// socket closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("[broker] upgrade failed", "error", err)
		return
	}
	s.serveConn(conn)
}

// HandleHealth reports Broker.Stats as JSON (spec's supplemented /health
// endpoint, mirroring the teacher's cmd/dev-console/health.go pattern).
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.broker.Stats())
}

func (s *Server) serveConn(conn *websocket.Conn) {
	sess := newSession(conn)
	defer sess.close()

	first, ok := s.nextEnvelope(conn)
	if !ok {
		return
	}

	if first.Classify() == protocol.KindHandshake {
		s.serveExtension(sess, first)
		return
	}
	s.serveClient(sess, first)
}

// nextEnvelope reads frames until one decodes as JSON or the connection
// itself fails. Malformed JSON on any session is ignored without closing
// the socket (spec §4.1; spec §7 classifies parse-error as "dropped
// silently for robustness") — only a genuine read/connection error ends
// the session (ok=false).
func (s *Server) nextEnvelope(conn *websocket.Conn) (protocol.Envelope, bool) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return protocol.Envelope{}, false
		}
		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.log.Debugw("[broker] dropping malformed frame", "error", err)
			continue
		}
		return env, true
	}
}

func (s *Server) serveExtension(sess *session, handshake protocol.Envelope) {
	handle := s.broker.HandleHandshake(sess, handshake.Version)
	s.log.Infow("[broker] extension connected", "extensionId", handshake.ExtensionID, "version", handshake.Version)

	stop := make(chan struct{})
	done := make(chan struct{})
	go s.keepalive(sess, stop, done)
	defer func() {
		close(stop)
		<-done
		handle.HandleDisconnect()
		s.log.Infow("[broker] extension disconnected")
	}()

	for {
		env, ok := s.nextEnvelope(sess.conn)
		if !ok {
			return
		}
		if env.Type == protocol.TypePong {
			continue
		}
		handle.HandleFrame(env)
	}
}

func (s *Server) keepalive(sess *session, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := sess.writeJSON(protocol.Envelope{Type: protocol.TypePing}); err != nil {
				return
			}
		}
	}
}

func (s *Server) serveClient(sess *session, first protocol.Envelope) {
	s.broker.RegisterClient(sess)
	s.log.Infow("[broker] client connected", "sessionId", sess.id)
	defer func() {
		s.broker.UnregisterClient(sess)
		s.log.Infow("[broker] client disconnected", "sessionId", sess.id)
	}()

	ctx := context.Background()
	env := first
	for {
		if env.Classify() == protocol.KindRequest {
			s.broker.HandleRequest(ctx, sess, env)
		}
		next, ok := s.nextEnvelope(sess.conn)
		if !ok {
			return
		}
		env = next
	}
}
