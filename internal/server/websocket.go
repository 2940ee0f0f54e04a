package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spillit/spillit/internal/auth"
	"github.com/spillit/spillit/internal/chat"
	"github.com/spillit/spillit/internal/handler"
	"github.com/spillit/spillit/internal/ierr"
	"go.uber.org/zap"
)

const (
	maxMessageSize = 4096
	writeWait      = 10 * time.Second
)

type WebSocketServer struct {
	logger   *zap.Logger
	upgrader *websocket.Upgrader

	resolver   auth.Resolver
	registry   *chat.Registry
	reconciler *chat.Reconciler
	router     *Router
}

func NewWebSocketServer(
	logger *zap.Logger,
	upgrader *websocket.Upgrader,
	resolver auth.Resolver,
	registry *chat.Registry,
	reconciler *chat.Reconciler,
	router *Router,
) *WebSocketServer {
	return &WebSocketServer{
		logger:     logger,
		upgrader:   upgrader,
		resolver:   resolver,
		registry:   registry,
		reconciler: reconciler,
		router:     router,
	}
}

func (s *WebSocketServer) Register(router *mux.Router) {
	router.HandleFunc("/websocket", s.handle)
}

func (s *WebSocketServer) handle(w http.ResponseWriter, r *http.Request) {
	// Identity is resolved before the upgrade; anonymous connections never
	// reach the realtime layer.
	resolution, err := s.resolver.Resolve(sessionToken(r))
	if err != nil {
		s.logger.Info("rejecting unauthenticated websocket handshake", zap.Error(err))
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	wsConn.SetReadLimit(maxMessageSize)

	connection := chat.NewConnection(gonanoid.Must(), resolution.Identity, resolution.ExpiresAt, wsConn)

	if err := s.registry.Register(connection); err != nil {
		s.logger.Error("failed to register connection", zap.Error(err))
		wsConn.Close()
		return
	}

	s.logger.Info("websocket connection established",
		zap.String("connectionId", connection.Id),
		zap.String("userId", connection.Identity.Id))

	writer := newConnectionWriter(wsConn)

	go s.writePump(connection, writer)

	s.readLoop(r, connection, wsConn, writer)

	s.reconciler.Disconnect(connection)
}

func (s *WebSocketServer) readLoop(r *http.Request, connection *chat.Connection, wsConn *websocket.Conn, writer *connectionWriter) {
	for {
		var request handler.Request
		if err := wsConn.ReadJSON(&request); err != nil {
			s.logger.Debug("websocket read ended",
				zap.String("connectionId", connection.Id),
				zap.Error(err))
			return
		}

		// An event arriving after session expiry is treated exactly like a
		// transport drop.
		if connection.Expired(time.Now()) {
			s.logger.Info("session expired, dropping connection",
				zap.String("connectionId", connection.Id),
				zap.String("userId", connection.Identity.Id))
			return
		}

		ctx := chat.WithConnection(r.Context(), connection)

		response := s.router.RouteRequest(ctx, request)
		if response == nil {
			continue
		}

		if err := writer.WriteJSON(response); err != nil {
			s.logger.Debug("websocket reply failed",
				zap.String("connectionId", connection.Id),
				zap.Error(err))
			return
		}

		// A consistency fault means the connection can no longer be trusted
		// to serve requests; stop reading so it lands in the reconciler.
		if response.IsFailure() && response.Error.Code == ierr.ErrorCodeUnknownConnection {
			s.logger.Error("dropping connection after consistency fault",
				zap.String("connectionId", connection.Id))
			return
		}
	}
}

func (s *WebSocketServer) writePump(connection *chat.Connection, writer *connectionWriter) {
	for {
		select {
		case event := <-connection.Send:
			notification, err := marshalNotification(event)
			if err != nil {
				s.logger.Error("failed to marshal notification",
					zap.String("method", event.Method),
					zap.Error(err))
				continue
			}

			if err := writer.WriteJSON(notification); err != nil {
				connection.CloseTransport()
				return
			}
		case <-connection.Done():
			return
		}
	}
}

// connectionWriter serializes writes from the pump and from request replies
// onto the single websocket writer the transport permits.
type connectionWriter struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func newConnectionWriter(conn *websocket.Conn) *connectionWriter {
	return &connectionWriter{
		conn: conn,
	}
}

func (w *connectionWriter) WriteJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.conn.SetWriteDeadline(time.Now().Add(writeWait))

	return w.conn.WriteJSON(v)
}

func marshalNotification(event chat.Event) (handler.Request, error) {
	raw, err := json.Marshal(event.Params)
	if err != nil {
		return handler.Request{}, err
	}

	params := json.RawMessage(raw)

	return handler.NewNotification(event.Method, &params), nil
}

func sessionToken(r *http.Request) string {
	authorization := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authorization, "Bearer "); ok {
		return token
	}

	return r.URL.Query().Get("token")
}
