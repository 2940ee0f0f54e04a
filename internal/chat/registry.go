package chat

import (
	"errors"
	"sync"

	"github.com/spillit/spillit/internal/auth"
	"github.com/spillit/spillit/internal/ierr"
	"go.uber.org/zap"
)

// Registry binds every live connection to the identity that opened it.
// Anonymous connections are never admitted; the handshake layer rejects
// them before a Connection exists.
type Registry struct {
	logger *zap.Logger

	mu          sync.RWMutex
	connections map[string]*Connection
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		logger:      logger,
		connections: make(map[string]*Connection),
	}
}

func (r *Registry) Register(conn *Connection) error {
	if conn.Identity.IsZero() {
		return ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("connection has no resolved identity"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connections[conn.Id]; ok {
		return ierr.New(ierr.ErrorCodeAlreadyExists, errors.New("connection already registered"))
	}

	r.connections[conn.Id] = conn

	r.logger.Info("connection registered",
		zap.String("connectionId", conn.Id),
		zap.String("userId", conn.Identity.Id))

	return nil
}

// Unregister removes the binding and returns the identity it held. An
// unknown connection id is an internal consistency fault.
func (r *Registry) Unregister(connectionId string) (auth.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[connectionId]
	if !ok {
		return auth.Identity{}, ierr.New(ierr.ErrorCodeUnknownConnection,
			errors.New("connection not registered: "+connectionId))
	}

	delete(r.connections, connectionId)

	return conn.Identity, nil
}

func (r *Registry) Get(connectionId string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.connections[connectionId]

	return conn, ok
}
