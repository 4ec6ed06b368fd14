// Purpose: Owns session.go, the per-connection wrapper shared by the
// extension session and client sessions (spec §4.1 "Role"): a session id and
// a write lock. Connections are classified in server.go's serveConn, and a
// stale extension session is superseded in broker.go's HandleHandshake.
package broker

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/google/uuid"
)

// session wraps one WebSocket connection, either the extension or a client.
type session struct {
	id   string
	conn *websocket.Conn
	// writeMu serializes writes to conn; gorilla/websocket connections do
	// not support concurrent writers.
	writeMu sync.Mutex
}

func newSession(conn *websocket.Conn) *session {
	return &session{id: uuid.NewString(), conn: conn}
}

func (s *session) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *session) close() {
	_ = s.conn.Close()
}
