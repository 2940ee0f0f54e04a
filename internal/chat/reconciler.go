package chat

import "go.uber.org/zap"

// Reconciler tears a connection down exactly once, no matter how many close
// signals the transport delivers. It walks only the rooms the connection
// had actually joined, evicts the membership, then announces the leaves
// that changed a roster.
type Reconciler struct {
	logger   *zap.Logger
	registry *Registry
	rooms    *Rooms
	presence *Presence
}

func NewReconciler(
	logger *zap.Logger,
	registry *Registry,
	rooms *Rooms,
	presence *Presence,
) *Reconciler {
	return &Reconciler{
		logger:   logger,
		registry: registry,
		rooms:    rooms,
		presence: presence,
	}
}

func (r *Reconciler) Disconnect(conn *Connection) {
	if !conn.BeginClose() {
		return
	}

	departures := r.rooms.LeaveAll(conn)

	if _, err := r.registry.Unregister(conn.Id); err != nil {
		r.logger.Error("unregister failed during disconnect",
			zap.String("connectionId", conn.Id),
			zap.Error(err))
	}

	for _, departure := range departures {
		if departure.Changed {
			r.presence.AnnounceLeave(departure.Roster, conn.Identity.DisplayName)
		}
	}

	conn.FinishClose()
	conn.CloseTransport()

	r.logger.Info("connection closed",
		zap.String("connectionId", conn.Id),
		zap.String("userId", conn.Identity.Id),
		zap.Int("roomsLeft", len(departures)))
}
