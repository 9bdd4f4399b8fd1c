package socket_io

import (
	"Soundcheck/services/broadcast"
	"Soundcheck/services/redis"
	"Soundcheck/services/roster"
	"Soundcheck/services/scoring"
	"Soundcheck/services/socket_io/handlers"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	socketio_types "Soundcheck/services/socket_io/types"

	redis_models "Soundcheck/models/redis"

	"github.com/gin-gonic/gin"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io/v2/socket"
)

type MySocketServer socketio_types.SocketServer

// Start mounts the socket.io endpoint on the gin router and begins relaying
// committed snapshots from the Redis channel to the per-session rooms.
func (sio *MySocketServer) Start(router *gin.Engine, broadcaster *broadcast.Broadcaster,
	rosterManager *roster.Manager, engine *scoring.Engine, redisClient *redis.RedisClient) {
	c := socket.DefaultServerOptions()
	c.SetServeClient(true)
	// NOTE: higher ping interval and timeout to 1) reduce network load and 2) support slower networks
	c.SetPingInterval(5 * time.Second)
	c.SetPingTimeout(3 * time.Second)
	c.SetMaxHttpBufferSize(1000000)
	c.SetConnectTimeout(10 * time.Second)
	c.SetTransports(types.NewSet("polling", "websocket"))
	c.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	sio.Subscriptions = make(map[string]string)

	sio.Sio_server = socket.NewServer(nil, nil)
	sio.Sio_server.On("connection", func(clients ...interface{}) {
		client := clients[0].(*socket.Socket)

		log.Printf("[SOCKET] New connection: %s", client.Id())

		// Subscribe to a session room with snapshot catch-up
		client.On("subscribe", handlers.HandleSubscribe(broadcaster, client, (*socketio_types.SocketServer)(sio)))

		// Join a session roster and subscribe in one step
		client.On("join_session", handlers.HandleJoinSession(rosterManager, client, (*socketio_types.SocketServer)(sio)))

		// Submit an answer for the current question
		client.On("submit_answer", handlers.HandleSubmitAnswer(engine, client))

		// NOTE: will remove sio subscription from map
		client.On("disconnecting", handlers.HandleDisconnecting(client, (*socketio_types.SocketServer)(sio)))
	})

	// Relay: every snapshot published on the shared channel reaches the local
	// sockets of its session, whichever process committed it.
	go func() {
		err := redisClient.SubscribeSnapshots(context.Background(), func(snapshot *redis_models.SessionSnapshot) {
			sio.Sio_server.To(socket.Room(snapshot.SessionID)).Emit("session_update", snapshot)
		})
		if err != nil {
			log.Printf("[RELAY-ERROR] Snapshot subscription ended: %v", err)
		}
	}()

	router.POST("/socket.io/*f", gin.WrapH(sio.Sio_server.ServeHandler(c)))
	router.GET("/socket.io/*f", gin.WrapH(sio.Sio_server.ServeHandler(c)))

	SignalC := make(chan os.Signal, 1)

	signal.Notify(SignalC, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		for s := range SignalC {
			switch s {
			case syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				sio.Sio_server.Close(nil)
				os.Exit(0)
			}
		}
	}()

	fmt.Println("Socket server started")
}
