package handler

import (
	"context"
	"errors"

	"github.com/spillit/spillit/internal/chat"
)

type LeaveRoomRequest struct {
	Room string `json:"room"`
}

type LeaveRoomResponse struct {
	Success bool `json:"success"`
}

type LeaveRoomHandler struct {
	roomNameValidator *RoomNameValidator
	rooms             *chat.Rooms
	presence          *chat.Presence
}

func NewLeaveRoomHandler(
	roomNameValidator *RoomNameValidator,
	rooms *chat.Rooms,
	presence *chat.Presence,
) *LeaveRoomHandler {
	return &LeaveRoomHandler{
		roomNameValidator,
		rooms,
		presence,
	}
}

// Handle removes the connection from the room. Leaving a room the
// connection never joined succeeds silently; cleanup must stay safe to
// invoke redundantly.
func (h *LeaveRoomHandler) Handle(ctx context.Context, req LeaveRoomRequest) (LeaveRoomResponse, error) {
	err := h.roomNameValidator.Validate(req.Room)
	if err != nil {
		return LeaveRoomResponse{}, err
	}

	connection, ok := chat.ConnectionFromContext(ctx)
	if !ok {
		return LeaveRoomResponse{}, errors.New("connection not found in context")
	}

	roster, changed := h.rooms.Leave(req.Room, connection)
	if changed {
		h.presence.AnnounceLeave(roster, connection.Identity.DisplayName)
	}

	return LeaveRoomResponse{
		Success: true,
	}, nil
}
