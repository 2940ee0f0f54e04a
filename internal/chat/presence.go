package chat

// Presence turns a membership change into what the room sees: the updated
// roster, then a system notification. The roster passed in must be the one
// computed by the change that triggered the announcement; Presence never
// recomputes it, so it can never announce a stale snapshot.
type Presence struct {
	broadcaster *Broadcaster
}

func NewPresence(broadcaster *Broadcaster) *Presence {
	return &Presence{
		broadcaster: broadcaster,
	}
}

func (p *Presence) AnnounceJoin(roster RosterSnapshot, displayName string) {
	p.announce(roster, displayName+" has joined the room.")
}

func (p *Presence) AnnounceLeave(roster RosterSnapshot, displayName string) {
	p.announce(roster, displayName+" has left the room.")
}

func (p *Presence) announce(roster RosterSnapshot, text string) {
	p.broadcaster.Broadcast(roster.Room, NewRosterEvent(roster))
	p.broadcaster.Broadcast(roster.Room, NewSystemMessageEvent(roster.Room, text))
}
