// Purpose: Owns client.go, the one-shot WebSocket client used by every
// cobra subcommand: it dials the broker as an ordinary client session,
// sends a single request envelope, and waits for the matching response.
package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hugopalma17/human-browser/internal/protocol"
)

// client holds one client-session connection to the broker.
type client struct {
	conn *websocket.Conn
}

func dial(addr string) (*client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial broker at %s: %w", addr, err)
	}
	return &client{conn: conn}, nil
}

func (c *client) close() {
	_ = c.conn.Close()
}

// call sends action/params against the given tab and blocks for the
// matching response or timeout. tabId rides the envelope's own field, not
// params, matching the wire contract (spec §3).
func (c *client) call(action string, tabID int, params any, timeout time.Duration) (json.RawMessage, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	req := protocol.Envelope{ID: uuid.NewString(), TabID: tabID, Action: action, Params: raw}
	if err := c.conn.WriteJSON(req); err != nil {
		return nil, err
	}

	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		var resp protocol.Envelope
		if err := c.conn.ReadJSON(&resp); err != nil {
			return nil, fmt.Errorf("waiting for response: %w", err)
		}
		if resp.Classify() != protocol.KindResponse || resp.ID != req.ID {
			continue
		}
		if resp.Error != "" {
			return nil, fmt.Errorf("%s", resp.Error)
		}
		return resp.Result, nil
	}
}

// events returns a channel of broadcast events; the caller reads it until
// it closes or the connection drops (used by the listen subcommand).
func (c *client) events() <-chan protocol.Envelope {
	out := make(chan protocol.Envelope)
	go func() {
		defer close(out)
		for {
			var env protocol.Envelope
			if err := c.conn.ReadJSON(&env); err != nil {
				return
			}
			if env.Classify() == protocol.KindEvent {
				out <- env
			}
		}
	}()
	return out
}
