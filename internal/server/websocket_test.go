package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/spillit/spillit/internal/auth"
	"github.com/spillit/spillit/internal/chat"
	"github.com/spillit/spillit/internal/handler"
	"github.com/spillit/spillit/internal/ierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type envelope struct {
	RequestId int              `json:"requestId,omitempty"`
	Result    *json.RawMessage `json:"result,omitempty"`
	Error     *ierr.Error      `json:"error,omitempty"`
	Method    string           `json:"method,omitempty"`
	Params    *json.RawMessage `json:"params,omitempty"`
}

func (e envelope) isReply(id int) bool {
	return e.RequestId == id
}

func (e envelope) isNotification(method string) bool {
	return e.Method == method
}

func newTestServer(t *testing.T) (*httptest.Server, *auth.SessionManager) {
	t.Helper()

	logger, _ := zap.NewDevelopment()
	sessions := auth.NewSessionManager("test-secret", time.Hour)

	registry := chat.NewRegistry(logger)
	rooms := chat.NewRooms(logger)
	broadcaster := chat.NewBroadcaster(logger, rooms)
	presence := chat.NewPresence(broadcaster)
	reconciler := chat.NewReconciler(logger, registry, rooms, presence)

	roomNameValidator := handler.NewRoomNameValidator()
	router := NewRouter(
		logger,
		handler.NewHeartbeatHandler(),
		handler.NewJoinRoomHandler(roomNameValidator, rooms, presence),
		handler.NewLeaveRoomHandler(roomNameValidator, rooms, presence),
		handler.NewChatMessageHandler(roomNameValidator, registry, rooms, broadcaster, reconciler),
	)

	wsServer := NewWebSocketServer(logger, &websocket.Upgrader{}, sessions, registry, reconciler, router)

	mainRouter := mux.NewRouter()
	wsServer.Register(mainRouter)

	server := httptest.NewServer(mainRouter)
	t.Cleanup(server.Close)

	return server, sessions
}

func dial(t *testing.T, server *httptest.Server, sessions *auth.SessionManager, userId string, displayName string) *websocket.Conn {
	t.Helper()

	token, err := sessions.Issue(auth.Identity{Id: userId, DisplayName: displayName})
	require.NoError(t, err)

	u, _ := url.Parse(server.URL)
	u.Scheme = "ws"
	u.Path = "/websocket"
	u.RawQuery = "token=" + token

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

// collect reads exactly n envelopes. Replies and server-push notifications
// may interleave, so callers classify instead of assuming order.
func collect(t *testing.T, conn *websocket.Conn, n int) []envelope {
	t.Helper()

	envelopes := make([]envelope, 0, n)
	for len(envelopes) < n {
		var e envelope
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		require.NoError(t, conn.ReadJSON(&e))
		envelopes = append(envelopes, e)
	}

	return envelopes
}

func find(t *testing.T, envelopes []envelope, match func(envelope) bool) envelope {
	t.Helper()

	for _, e := range envelopes {
		if match(e) {
			return e
		}
	}

	t.Fatalf("no matching envelope in %+v", envelopes)
	return envelope{}
}

func decode[T any](t *testing.T, raw *json.RawMessage) T {
	t.Helper()

	var v T
	require.NotNil(t, raw)
	require.NoError(t, json.Unmarshal(*raw, &v))

	return v
}

func send(t *testing.T, conn *websocket.Conn, id int, method string, params string) {
	t.Helper()

	raw := json.RawMessage(`{"id":` + jsonInt(id) + `,"method":"` + method + `","params":` + params + `}`)
	require.NoError(t, conn.WriteJSON(raw))
}

func jsonInt(v int) string {
	raw, _ := json.Marshal(v)
	return string(raw)
}

func TestWebSocketServer_LobbyScenario(t *testing.T) {
	server, sessions := newTestServer(t)

	u1 := dial(t, server, sessions, "u1", "U1")

	// U1 joins; being already a member at announce time, it sees its own
	// roster update and join notification alongside the reply.
	send(t, u1, 1, "joinRoom", `{"room":"lobby"}`)
	envelopes := collect(t, u1, 3)

	reply := find(t, envelopes, func(e envelope) bool { return e.isReply(1) })
	joinResponse := decode[handler.JoinRoomResponse](t, reply.Result)
	assert.Equal(t, []string{"U1"}, joinResponse.Users)

	roster := find(t, envelopes, func(e envelope) bool { return e.isNotification(chat.MethodUserList) })
	assert.Equal(t, []string{"U1"}, decode[chat.RosterSnapshot](t, roster.Params).Users)

	u2 := dial(t, server, sessions, "u2", "U2")

	send(t, u2, 1, "joinRoom", `{"room":"lobby"}`)
	u2Envelopes := collect(t, u2, 3)

	u2Reply := find(t, u2Envelopes, func(e envelope) bool { return e.isReply(1) })
	assert.Equal(t, []string{"U1", "U2"}, decode[handler.JoinRoomResponse](t, u2Reply.Result).Users)

	// U1 observes U2's join: updated roster, then the system notification.
	u1Envelopes := collect(t, u1, 2)
	u1Roster := find(t, u1Envelopes, func(e envelope) bool { return e.isNotification(chat.MethodUserList) })
	assert.Equal(t, []string{"U1", "U2"}, decode[chat.RosterSnapshot](t, u1Roster.Params).Users)

	announcement := find(t, u1Envelopes, func(e envelope) bool { return e.isNotification(chat.MethodMessage) })
	payload := decode[chat.MessagePayload](t, announcement.Params)
	assert.Equal(t, chat.SystemUsername, payload.Username)
	assert.Equal(t, "U2 has joined the room.", payload.Message)

	// U1 sends "hi"; both members receive it attributed to U1.
	send(t, u1, 2, "chatMessage", `{"room":"lobby","message":"hi"}`)

	u1Envelopes = collect(t, u1, 2)
	find(t, u1Envelopes, func(e envelope) bool { return e.isReply(2) })
	u1Message := find(t, u1Envelopes, func(e envelope) bool { return e.isNotification(chat.MethodMessage) })
	u1Payload := decode[chat.MessagePayload](t, u1Message.Params)
	assert.Equal(t, "U1", u1Payload.Username)
	assert.Equal(t, "hi", u1Payload.Message)

	u2Message := collect(t, u2, 1)[0]
	assert.True(t, u2Message.isNotification(chat.MethodMessage))
	u2Payload := decode[chat.MessagePayload](t, u2Message.Params)
	assert.Equal(t, "U1", u2Payload.Username)
	assert.Equal(t, "hi", u2Payload.Message)

	// U1 drops abruptly; U2 sees the roster shrink and the leave message.
	u1.Close()

	departureEnvelopes := collect(t, u2, 2)
	departureRoster := find(t, departureEnvelopes, func(e envelope) bool { return e.isNotification(chat.MethodUserList) })
	assert.Equal(t, []string{"U2"}, decode[chat.RosterSnapshot](t, departureRoster.Params).Users)

	departure := find(t, departureEnvelopes, func(e envelope) bool { return e.isNotification(chat.MethodMessage) })
	departurePayload := decode[chat.MessagePayload](t, departure.Params)
	assert.Equal(t, chat.SystemUsername, departurePayload.Username)
	assert.Equal(t, "U1 has left the room.", departurePayload.Message)
}

func TestWebSocketServer_SessionExpiry(t *testing.T) {
	server, sessions := newTestServer(t)

	u1 := dial(t, server, sessions, "u1", "U1")
	send(t, u1, 1, "joinRoom", `{"room":"lobby"}`)
	collect(t, u1, 3)

	// U2 connects with a session about to lapse.
	shortSessions := auth.NewSessionManager("test-secret", 500*time.Millisecond)
	token, err := shortSessions.Issue(auth.Identity{Id: "u2", DisplayName: "U2"})
	require.NoError(t, err)

	u, _ := url.Parse(server.URL)
	u.Scheme = "ws"
	u.Path = "/websocket"
	u.RawQuery = "token=" + token

	u2, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { u2.Close() })

	send(t, u2, 1, "joinRoom", `{"room":"lobby"}`)
	collect(t, u2, 3)
	collect(t, u1, 2)

	time.Sleep(700 * time.Millisecond)

	// The first event past the deadline is handled like a transport drop:
	// no reply, the connection is torn down.
	send(t, u2, 2, "heartbeat", `{}`)

	u2.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, readErr := u2.ReadMessage()
	assert.Error(t, readErr)

	// Remaining members see the roster shrink and the leave announcement.
	envelopes := collect(t, u1, 2)
	roster := find(t, envelopes, func(e envelope) bool { return e.isNotification(chat.MethodUserList) })
	assert.Equal(t, []string{"U1"}, decode[chat.RosterSnapshot](t, roster.Params).Users)

	departure := find(t, envelopes, func(e envelope) bool { return e.isNotification(chat.MethodMessage) })
	payload := decode[chat.MessagePayload](t, departure.Params)
	assert.Equal(t, chat.SystemUsername, payload.Username)
	assert.Equal(t, "U2 has left the room.", payload.Message)
}

func TestWebSocketServer_Errors(t *testing.T) {
	server, sessions := newTestServer(t)

	t.Run("handshake without a token is rejected", func(t *testing.T) {
		u, _ := url.Parse(server.URL)
		u.Scheme = "ws"
		u.Path = "/websocket"

		_, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)

		assert.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("chat message to a room never joined", func(t *testing.T) {
		conn := dial(t, server, sessions, "u3", "U3")

		send(t, conn, 1, "chatMessage", `{"room":"private","message":"hi"}`)

		reply := collect(t, conn, 1)[0]
		require.NotNil(t, reply.Error)
		assert.Equal(t, ierr.ErrorCodeNotAMember, reply.Error.Code)
	})

	t.Run("unknown method", func(t *testing.T) {
		conn := dial(t, server, sessions, "u4", "U4")

		send(t, conn, 1, "teleport", `{}`)

		reply := collect(t, conn, 1)[0]
		require.NotNil(t, reply.Error)
		assert.Equal(t, ierr.ErrorCodeNotFound, reply.Error.Code)
	})

	t.Run("heartbeat", func(t *testing.T) {
		conn := dial(t, server, sessions, "u5", "U5")

		raw := json.RawMessage(`{"id":1,"method":"heartbeat"}`)
		require.NoError(t, conn.WriteJSON(raw))

		reply := collect(t, conn, 1)[0]
		assert.Nil(t, reply.Error)
		assert.NotZero(t, decode[handler.HeartbeatResponse](t, reply.Result).Timestamp)
	})
}
