package handlers

import (
	"Soundcheck/services/game"
	"Soundcheck/services/roster"
	socketio_types "Soundcheck/services/socket_io/types"
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/zishang520/socket.io/v2/socket"
)

// HandleJoinSession registers a player on the roster and subscribes the
// socket to the session room. The credential in the reply goes only to the
// joining socket, never to the room.
func HandleJoinSession(rosterManager *roster.Manager, client *socket.Socket,
	sio *socketio_types.SocketServer) func(args ...interface{}) {
	return func(args ...interface{}) {
		payload, ok := eventPayload(args)
		if !ok {
			client.Emit("error", gin.H{"error": "Missing join payload"})
			return
		}

		sessionID := stringField(payload, "session_id")
		name := stringField(payload, "name")
		if sessionID == "" || name == "" {
			client.Emit("error", gin.H{"error": "Missing session_id or name"})
			return
		}
		retryID := stringField(payload, "player_id")

		// Enter the room before the join commits, so no commit published in
		// between can be emitted past a socket that is not in the room yet.
		client.Join(socket.Room(sessionID))
		sio.AddSubscription(string(client.Id()), sessionID)

		player, snapshot, err := rosterManager.Join(context.Background(), sessionID, name, retryID)
		if err != nil {
			client.Leave(socket.Room(sessionID))
			sio.RemoveSubscription(string(client.Id()))
			log.Printf("[JOIN-ERROR] Session %s: %v", sessionID, err)
			client.Emit("error", gin.H{"error": game.Kind(err)})
			return
		}
		log.Printf("[JOIN] Player #%d joined session %s", player.PlayerNumber, sessionID)

		client.Emit("session_joined", gin.H{
			"player_id":     player.ID,
			"name":          player.Name,
			"player_number": player.PlayerNumber,
			"snapshot":      snapshot,
		})
	}
}
