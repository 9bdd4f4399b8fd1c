package socketio_types

import (
	"sync"

	"github.com/zishang520/socket.io/v2/socket"
)

// SocketServer is a struct that contains the socket.io server and a map of
// socket subscriptions. It is used to handle socket.io connections.
type SocketServer struct {
	Sio_server *socket.Server
	// Map to track socket id -> subscribed session id
	Subscriptions map[string]string
	mutex         sync.RWMutex
}

func NewSocketServer() *SocketServer {
	return &SocketServer{
		Subscriptions: make(map[string]string),
	}
}

// Add methods to manage subscriptions
func (s *SocketServer) AddSubscription(socketID string, sessionID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.Subscriptions[socketID] = sessionID
}

func (s *SocketServer) RemoveSubscription(socketID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.Subscriptions, socketID)
}

func (s *SocketServer) GetSubscription(socketID string) (string, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	sessionID, exists := s.Subscriptions[socketID]
	return sessionID, exists
}
