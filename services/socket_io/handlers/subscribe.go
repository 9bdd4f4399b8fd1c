package handlers

import (
	"Soundcheck/services/broadcast"
	socketio_types "Soundcheck/services/socket_io/types"
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/zishang520/socket.io/v2/socket"
)

// sessionConn is the slice of the socket the subscribe flow touches. Tests
// substitute it to pin the ordering of room join vs catch-up read.
type sessionConn interface {
	Join(room string)
	Leave(room string)
	Emit(event string, data interface{})
}

// liveSocket adapts *socket.Socket to sessionConn.
type liveSocket struct {
	s *socket.Socket
}

func (l liveSocket) Join(room string)                    { l.s.Join(socket.Room(room)) }
func (l liveSocket) Leave(room string)                   { l.s.Leave(socket.Room(room)) }
func (l liveSocket) Emit(event string, data interface{}) { l.s.Emit(event, data) }

// subscribe enters the session room first and reads the catch-up snapshot
// second. The order matters: once the socket is in the room, every commit
// published from here on reaches it live, and the snapshot covers everything
// before; a commit landing between the two steps is delivered twice at
// worst, never dropped. The client suppresses the overlap by Seq.
func subscribe(broadcaster *broadcast.Broadcaster, conn sessionConn,
	sio *socketio_types.SocketServer, socketID, sessionID string, lastSeq int) error {
	conn.Join(sessionID)
	sio.AddSubscription(socketID, sessionID)

	snapshot, err := broadcaster.Snapshot(context.Background(), sessionID)
	if err != nil {
		conn.Leave(sessionID)
		sio.RemoveSubscription(socketID)
		return err
	}

	// Replay only when the client is actually behind.
	if snapshot.Seq > int64(lastSeq) {
		conn.Emit("session_update", snapshot)
	}
	return nil
}

// HandleSubscribe joins the socket to the session room and replays the
// current snapshot so a reconnecting client catches up without missing any
// commit in between.
func HandleSubscribe(broadcaster *broadcast.Broadcaster, client *socket.Socket,
	sio *socketio_types.SocketServer) func(args ...interface{}) {
	return func(args ...interface{}) {
		payload, ok := eventPayload(args)
		if !ok {
			log.Printf("[SUBSCRIBE-ERROR] Missing payload, socket: %s", client.Id())
			client.Emit("error", gin.H{"error": "Missing subscribe payload"})
			return
		}

		sessionID := stringField(payload, "session_id")
		if sessionID == "" {
			client.Emit("error", gin.H{"error": "Missing session_id"})
			return
		}
		lastSeq := intField(payload, "last_seq")

		err := subscribe(broadcaster, liveSocket{client}, sio, string(client.Id()), sessionID, lastSeq)
		if err != nil {
			log.Printf("[SUBSCRIBE-ERROR] Snapshot for session %s: %v", sessionID, err)
			client.Emit("error", gin.H{"error": "Session not found"})
			return
		}
		log.Printf("[SUBSCRIBE] Socket %s subscribed to session %s (last_seq=%d)",
			client.Id(), sessionID, lastSeq)
	}
}

// HandleDisconnecting drops the socket's room subscription bookkeeping.
func HandleDisconnecting(client *socket.Socket,
	sio *socketio_types.SocketServer) func(args ...interface{}) {
	return func(args ...interface{}) {
		if sessionID, ok := sio.GetSubscription(string(client.Id())); ok {
			log.Printf("[DISCONNECT] Socket %s left session %s", client.Id(), sessionID)
		}
		sio.RemoveSubscription(string(client.Id()))
	}
}

func eventPayload(args []interface{}) (map[string]interface{}, bool) {
	if len(args) < 1 {
		return nil, false
	}
	payload, ok := args[0].(map[string]interface{})
	return payload, ok
}

func stringField(payload map[string]interface{}, key string) string {
	value, _ := payload[key].(string)
	return value
}

func intField(payload map[string]interface{}, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
