package handler

import (
	"context"
	"errors"
	"time"

	"github.com/spillit/spillit/internal/chat"
)

type JoinRoomRequest struct {
	Room string `json:"room"`
}

type JoinRoomResponse struct {
	Room      string    `json:"room"`
	Users     []string  `json:"users"`
	Timestamp time.Time `json:"timestamp"`
}

type JoinRoomHandler struct {
	roomNameValidator *RoomNameValidator
	rooms             *chat.Rooms
	presence          *chat.Presence
}

func NewJoinRoomHandler(
	roomNameValidator *RoomNameValidator,
	rooms *chat.Rooms,
	presence *chat.Presence,
) *JoinRoomHandler {
	return &JoinRoomHandler{
		roomNameValidator,
		rooms,
		presence,
	}
}

func (h *JoinRoomHandler) Handle(ctx context.Context, req JoinRoomRequest) (JoinRoomResponse, error) {
	err := h.roomNameValidator.Validate(req.Room)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	connection, ok := chat.ConnectionFromContext(ctx)
	if !ok {
		return JoinRoomResponse{}, errors.New("connection not found in context")
	}

	roster, changed := h.rooms.Join(req.Room, connection)

	// Re-joining on the same connection, or joining via a second connection
	// of an identity already present, changes nothing visible: no
	// announcement.
	if changed {
		h.presence.AnnounceJoin(roster, connection.Identity.DisplayName)
	}

	return JoinRoomResponse{
		Room:      roster.Room,
		Users:     roster.Users,
		Timestamp: time.Now(),
	}, nil
}
