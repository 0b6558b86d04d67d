package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restaurant-sync/broker"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Deployment-nya LAN restoran; origin dibatasi lewat CORS di REST.
		return true
	},
}

// WSHandler -> endpoint push channel; satu koneksi per tab.
func WSHandler(hub *broker.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		hub.HandleConn(ws)
	}
}
