package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/leofalp/agentspace/core/session"
	"github.com/leofalp/agentspace/providers/observability"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Client command types.
const (
	CommandSubmit = "submit"
	CommandSelect = "select"
	CommandMode   = "mode"
	CommandInput  = "input"
)

type clientMessage struct {
	Type      string   `json:"type"`
	Text      string   `json:"text"`
	Providers []string `json:"providers"`
	Mode      string   `json:"mode"`
}

type serverMessage struct {
	Type    string            `json:"type"`
	State   *session.Snapshot `json:"state,omitempty"`
	Message string            `json:"message,omitempty"`
}

// wsConn serialises writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeJSON(message serverMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(message)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (server *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := server.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already replied
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := &wsConn{conn: conn}
	updates, unsubscribe := server.session.Subscribe()
	defer unsubscribe()

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		server.readCommands(ctx, client)
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-readDone:
			return
		case <-ticker.C:
			if err := client.ping(); err != nil {
				return
			}
		case snapshot, open := <-updates:
			if !open {
				return
			}
			if err := client.writeJSON(serverMessage{Type: "snapshot", State: &snapshot}); err != nil {
				return
			}
		}
	}
}

func (server *Server) readCommands(ctx context.Context, client *wsConn) {
	conn := client.conn
	conn.SetReadLimit(maxBodySize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if server.observer != nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				server.observer.Warn(ctx, "Websocket read failed", observability.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var message clientMessage
		if err := json.Unmarshal(data, &message); err != nil {
			_ = client.writeJSON(serverMessage{Type: "error", Message: "invalid json"})
			continue
		}
		if err := server.dispatch(message); err != nil {
			_ = client.writeJSON(serverMessage{Type: "error", Message: err.Error()})
		}
	}
}

// dispatch applies one client command. State changes reach the client
// through the snapshot subscription, only errors are answered directly.
func (server *Server) dispatch(message clientMessage) error {
	switch message.Type {
	case CommandSubmit:
		return server.submit(message.Text)
	case CommandSelect:
		return server.session.SetSelectedModels(message.Providers)
	case CommandMode:
		return server.setMode(message.Mode)
	case CommandInput:
		server.session.SetInput(message.Text)
		return nil
	default:
		return fmt.Errorf("unknown message type %q", message.Type)
	}
}
