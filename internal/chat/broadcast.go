package chat

import "go.uber.org/zap"

// Broadcaster fans an event out to every connection currently in a room.
// Delivery is fire-and-forget per connection: a stale or saturated
// connection never blocks the others and never fails the caller. Its
// transport is closed instead, and the disconnect path evicts it once the
// closure is observed.
type Broadcaster struct {
	logger *zap.Logger
	rooms  *Rooms
}

func NewBroadcaster(logger *zap.Logger, rooms *Rooms) *Broadcaster {
	return &Broadcaster{
		logger: logger,
		rooms:  rooms,
	}
}

func (b *Broadcaster) Broadcast(roomName string, event Event) {
	for _, conn := range b.rooms.Connections(roomName) {
		if !conn.IsOpen() {
			continue
		}

		select {
		case conn.Send <- event:
		default:
			b.logger.Warn("send buffer full, closing connection",
				zap.String("connectionId", conn.Id),
				zap.String("room", roomName))

			conn.CloseTransport()
		}
	}
}
