package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/babelroom/babelroom/internal/api/handlers"
)

type Deps struct {
	Room  *handlers.RoomHandler
	Synth *handlers.SynthHandler
	WS    *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/rooms", d.Room.Create)
	r.GET("/rooms/lookup", d.Room.GetByCode)
	r.GET("/rooms/:room_id", d.Room.Get)

	r.POST("/synthesize", d.Synth.Synthesize)

	// WebSocket session protocol
	r.GET("/ws/session", d.WS.Session)
}
