package chat

import (
	"sync"

	"github.com/samber/lo"
	"github.com/spillit/spillit/internal/auth"
	"go.uber.org/zap"
)

// Rooms is the room membership table: the only shared mutable structure of
// the realtime core. Every mutation computes the post-change roster inside
// the same critical section, so a roster handed back to a caller is always
// the one produced by that caller's own change.
//
// Rooms come into existence on first join and vanish when their last member
// leaves; there is no registration step.
type Rooms struct {
	logger *zap.Logger

	mu           sync.Mutex
	rooms        map[string]*room
	byConnection map[string]map[string]struct{}
}

type room struct {
	members map[string]*member
	order   []string
}

// member groups every live connection an identity holds in one room. The
// roster lists identities, not connections.
type member struct {
	identity    auth.Identity
	connections map[string]*Connection
}

// Departure is one room's outcome of tearing down a connection. Changed is
// true when the identity dropped off the roster and a leave announcement is
// due.
type Departure struct {
	Room    string
	Roster  RosterSnapshot
	Changed bool
}

func NewRooms(logger *zap.Logger) *Rooms {
	return &Rooms{
		logger:       logger,
		rooms:        make(map[string]*room),
		byConnection: make(map[string]map[string]struct{}),
	}
}

// Join adds the connection under (room, identity). It is idempotent at
// connection granularity. The returned flag is true only when the identity
// was not previously present in the room, i.e. when a join announcement is
// due; an extra connection for an already-present identity registers
// silently.
func (t *Rooms) Join(roomName string, conn *Connection) (RosterSnapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rm, ok := t.rooms[roomName]
	if !ok {
		rm = &room{members: make(map[string]*member)}
		t.rooms[roomName] = rm

		t.logger.Debug("room created", zap.String("room", roomName))
	}

	identityId := conn.Identity.Id

	m, present := rm.members[identityId]
	if !present {
		m = &member{
			identity:    conn.Identity,
			connections: make(map[string]*Connection),
		}
		rm.members[identityId] = m
		rm.order = append(rm.order, identityId)
	}

	if _, joined := m.connections[conn.Id]; joined {
		return t.rosterLocked(roomName, rm), false
	}

	m.connections[conn.Id] = conn

	if _, ok := t.byConnection[conn.Id]; !ok {
		t.byConnection[conn.Id] = make(map[string]struct{})
	}
	t.byConnection[conn.Id][roomName] = struct{}{}

	return t.rosterLocked(roomName, rm), !present
}

// Leave removes the connection from (room, identity). Leaving a room the
// connection never joined is a no-op. The returned flag is true only when
// this was the identity's last connection in the room.
func (t *Rooms) Leave(roomName string, conn *Connection) (RosterSnapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.leaveLocked(roomName, conn)
}

// LeaveAll removes the connection from every room it had joined. Used by
// the disconnect reconciler; the walk is bounded by the connection's own
// membership, not by the number of rooms.
func (t *Rooms) LeaveAll(conn *Connection) []Departure {
	t.mu.Lock()
	defer t.mu.Unlock()

	joined := t.byConnection[conn.Id]

	departures := make([]Departure, 0, len(joined))
	for roomName := range joined {
		roster, changed := t.leaveLocked(roomName, conn)
		departures = append(departures, Departure{
			Room:    roomName,
			Roster:  roster,
			Changed: changed,
		})
	}

	return departures
}

// Member reports whether the identity has at least one live connection
// joined to the room.
func (t *Rooms) Member(roomName string, identityId string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	rm, ok := t.rooms[roomName]
	if !ok {
		return false
	}

	_, present := rm.members[identityId]

	return present
}

// Connections snapshots every live connection currently in the room.
func (t *Rooms) Connections(roomName string) []*Connection {
	t.mu.Lock()
	defer t.mu.Unlock()

	rm, ok := t.rooms[roomName]
	if !ok {
		return nil
	}

	var connections []*Connection
	for _, id := range rm.order {
		for _, conn := range rm.members[id].connections {
			connections = append(connections, conn)
		}
	}

	return connections
}

// Roster computes the current roster without mutating anything.
func (t *Rooms) Roster(roomName string) RosterSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	rm, ok := t.rooms[roomName]
	if !ok {
		return RosterSnapshot{Room: roomName, Users: []string{}}
	}

	return t.rosterLocked(roomName, rm)
}

func (t *Rooms) leaveLocked(roomName string, conn *Connection) (RosterSnapshot, bool) {
	rm, ok := t.rooms[roomName]
	if !ok {
		return RosterSnapshot{Room: roomName, Users: []string{}}, false
	}

	identityId := conn.Identity.Id

	m, present := rm.members[identityId]
	if !present {
		return t.rosterLocked(roomName, rm), false
	}

	if _, joined := m.connections[conn.Id]; !joined {
		return t.rosterLocked(roomName, rm), false
	}

	delete(m.connections, conn.Id)

	if joinedRooms, ok := t.byConnection[conn.Id]; ok {
		delete(joinedRooms, roomName)
		if len(joinedRooms) == 0 {
			delete(t.byConnection, conn.Id)
		}
	}

	changed := false
	if len(m.connections) == 0 {
		delete(rm.members, identityId)
		rm.order = lo.Without(rm.order, identityId)
		changed = true
	}

	if len(rm.members) == 0 {
		delete(t.rooms, roomName)

		t.logger.Debug("room emptied", zap.String("room", roomName))

		return RosterSnapshot{Room: roomName, Users: []string{}}, changed
	}

	return t.rosterLocked(roomName, rm), changed
}

func (t *Rooms) rosterLocked(roomName string, rm *room) RosterSnapshot {
	users := lo.Map(rm.order, func(identityId string, _ int) string {
		return rm.members[identityId].identity.DisplayName
	})

	return RosterSnapshot{
		Room:  roomName,
		Users: users,
	}
}
