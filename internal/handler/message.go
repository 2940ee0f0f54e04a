package handler

import (
	"context"
	"errors"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spillit/spillit/internal/chat"
	"github.com/spillit/spillit/internal/ierr"
)

type ChatMessageRequest struct {
	Room    string `json:"room"`
	Message string `json:"message"`
}

type ChatMessageResponse struct {
	Id        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatMessageHandler struct {
	roomNameValidator *RoomNameValidator
	registry          *chat.Registry
	rooms             *chat.Rooms
	broadcaster       *chat.Broadcaster
	reconciler        *chat.Reconciler
}

func NewChatMessageHandler(
	roomNameValidator *RoomNameValidator,
	registry *chat.Registry,
	rooms *chat.Rooms,
	broadcaster *chat.Broadcaster,
	reconciler *chat.Reconciler,
) *ChatMessageHandler {
	return &ChatMessageHandler{
		roomNameValidator,
		registry,
		rooms,
		broadcaster,
		reconciler,
	}
}

// Handle broadcasts a chat message to the room. Senders must have joined:
// an identity with no live connection in the room gets NotAMember and
// nothing is delivered.
func (h *ChatMessageHandler) Handle(ctx context.Context, req ChatMessageRequest) (ChatMessageResponse, error) {
	err := h.roomNameValidator.Validate(req.Room)
	if err != nil {
		return ChatMessageResponse{}, err
	}

	connection, ok := chat.ConnectionFromContext(ctx)
	if !ok {
		return ChatMessageResponse{}, errors.New("connection not found in context")
	}

	registered, ok := h.registry.Get(connection.Id)
	if !ok {
		// Internal consistency fault: a connection serving requests must be
		// in the registry. Abort the operation and force the connection
		// through the disconnect path.
		h.reconciler.Disconnect(connection)

		return ChatMessageResponse{}, ierr.New(ierr.ErrorCodeUnknownConnection,
			errors.New("connection not registered: "+connection.Id))
	}

	if !h.rooms.Member(req.Room, registered.Identity.Id) {
		return ChatMessageResponse{}, ierr.New(ierr.ErrorCodeNotAMember,
			errors.New("sender has not joined room "+req.Room))
	}

	message := chat.ChatMessage{
		Id:         gonanoid.Must(),
		Room:       req.Room,
		Sender:     registered.Identity,
		Text:       req.Message,
		CreateTime: time.Now(),
	}

	h.broadcaster.Broadcast(req.Room, chat.NewChatMessageEvent(message))

	return ChatMessageResponse{
		Id:        message.Id,
		Timestamp: message.CreateTime,
	}, nil
}
