package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/machine-analytics/backend/internal/analytics"
	"github.com/machine-analytics/backend/internal/storage"
)

// WebSocket message types for the dashboard protocol
const (
	// Client -> Server messages
	MsgTypeDashboardQuery = "dashboard:query"
	MsgTypePing           = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeDashboard = "dashboard"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// WSMessage is the envelope of every WebSocket frame
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// DashboardQueryPayload selects which machines the dashboard shows
type DashboardQueryPayload struct {
	Status string `json:"status"`
	Query  string `json:"q"`
}

// WSErrorResponse is the payload of an error frame
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// StreamSettings tune the dashboard stream
type StreamSettings struct {
	// MaxMessageSize limits inbound frames in bytes
	MaxMessageSize int64
	// Refresh re-sends the last queried dashboard on this interval; 0 disables it
	Refresh time.Duration
}

// WebSocketHandler serves the live dashboard over WebSocket
type WebSocketHandler struct {
	store    storage.Reader
	engine   *analytics.Engine
	log      *slog.Logger
	settings StreamSettings
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new dashboard stream handler
func NewWebSocketHandler(store storage.Reader, engine *analytics.Engine, log *slog.Logger, settings StreamSettings) *WebSocketHandler {
	return &WebSocketHandler{
		store:    store,
		engine:   engine,
		log:      log.With("component", "ws"),
		settings: settings,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Origins are enforced by the CORS middleware
				return true
			},
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
		},
	}
}

// wsClient is one connected dashboard viewer.
type wsClient struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	queryMu sync.Mutex
	query   *DashboardQueryPayload
}

func (cl *wsClient) send(msg WSMessage) error {
	cl.writeMu.Lock()
	defer cl.writeMu.Unlock()
	return cl.ws.WriteJSON(msg)
}

func (cl *wsClient) setQuery(q DashboardQueryPayload) {
	cl.queryMu.Lock()
	cl.query = &q
	cl.queryMu.Unlock()
}

func (cl *wsClient) lastQuery() (DashboardQueryPayload, bool) {
	cl.queryMu.Lock()
	defer cl.queryMu.Unlock()
	if cl.query == nil {
		return DashboardQueryPayload{}, false
	}
	return *cl.query, true
}

// HandleDashboardStream upgrades HTTP connection to WebSocket and serves dashboard queries
func (wsh *WebSocketHandler) HandleDashboardStream(c echo.Context) error {
	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	if wsh.settings.MaxMessageSize > 0 {
		ws.SetReadLimit(wsh.settings.MaxMessageSize)
	}

	client := &wsClient{ws: ws}
	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	wsh.log.Info("client connected", "remote", c.RealIP())
	wsh.sendMessage(client, WSMessage{Type: MsgTypeConnected, Timestamp: time.Now().UnixMilli()})

	if wsh.settings.Refresh > 0 {
		go wsh.refreshLoop(ctx, client)
	}

	// Main message loop
	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsh.log.Warn("connection error", "error", err)
			}
			break
		}

		switch msg.Type {
		case MsgTypePing:
			wsh.sendMessage(client, WSMessage{Type: MsgTypePong, ID: msg.ID, Timestamp: time.Now().UnixMilli()})
		case MsgTypeDashboardQuery:
			wsh.handleDashboardQuery(ctx, client, msg)
		default:
			wsh.sendError(client, msg.ID, "Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}

	wsh.log.Info("client disconnected", "remote", c.RealIP())
	return nil
}

// handleDashboardQuery validates a query, remembers it for refreshes and answers it.
func (wsh *WebSocketHandler) handleDashboardQuery(ctx context.Context, client *wsClient, msg WSMessage) {
	var payload DashboardQueryPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			wsh.sendError(client, msg.ID, "Invalid query payload: "+err.Error(), "INVALID_PAYLOAD")
			return
		}
	}
	if _, err := analytics.ParseStatusFilter(payload.Status); err != nil {
		wsh.sendError(client, msg.ID, err.Error(), "INVALID_INPUT")
		return
	}

	client.setQuery(payload)
	wsh.pushDashboard(ctx, client, msg.ID, payload)
}

func (wsh *WebSocketHandler) refreshLoop(ctx context.Context, client *wsClient) {
	ticker := time.NewTicker(wsh.settings.Refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if q, ok := client.lastQuery(); ok {
				wsh.pushDashboard(ctx, client, "", q)
			}
		}
	}
}

func (wsh *WebSocketHandler) pushDashboard(ctx context.Context, client *wsClient, id string, q DashboardQueryPayload) {
	status, err := analytics.ParseStatusFilter(q.Status)
	if err != nil {
		wsh.sendError(client, id, err.Error(), "INVALID_INPUT")
		return
	}

	machines, err := wsh.store.ListMachines(ctx)
	if err != nil {
		wsh.sendError(client, id, "failed to fetch machines", "INTERNAL_ERROR")
		return
	}

	wsh.sendMessage(client, WSMessage{
		Type:      MsgTypeDashboard,
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
		Payload:   mustJSON(wsh.engine.Dashboard(machines, status, q.Query)),
	})
}

// Helper methods

func (wsh *WebSocketHandler) sendMessage(client *wsClient, msg WSMessage) {
	if err := client.send(msg); err != nil {
		wsh.log.Debug("failed to send message", "type", msg.Type, "error", err)
	}
}

func (wsh *WebSocketHandler) sendError(client *wsClient, id, message, code string) {
	wsh.sendMessage(client, WSMessage{
		Type:      MsgTypeError,
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSErrorResponse{
			Message: message,
			Code:    code,
		}),
	})
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}

var _ DashboardStreamHandler = (*WebSocketHandler)(nil)
