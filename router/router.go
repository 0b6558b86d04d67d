package router

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-sync/broker"
	"github.com/yeremiapane/restaurant-sync/controllers"
	"github.com/yeremiapane/restaurant-sync/middlewares"
	"gorm.io/gorm"
)

func SetupRouter(db *gorm.DB, hub *broker.Hub) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())

	// Inisialisasi controller
	sessionCtrl := controllers.NewSessionController(db, hub)
	productCtrl := controllers.NewProductController(db)
	orderCtrl := controllers.NewOrderController(db, hub)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Push channel: satu koneksi websocket per tab.
	r.GET("/ws", controllers.WSHandler(hub))

	// -- CUSTOMER (cookie sesi meja) --
	r.POST("/auth/login-table/:table_number", sessionCtrl.LoginTable)
	r.GET("/auth/me", sessionCtrl.Me)
	r.GET("/api/products", productCtrl.GetAllProducts)
	r.GET("/api/orders/history/:session_id", orderCtrl.History)

	// -- STAFF / DAPUR --
	private := r.Group("/api/private")
	private.Use(middlewares.AuthMiddleware(), middlewares.StaffOnly())
	{
		private.POST("/sessions", sessionCtrl.OpenSession)
		private.PUT("/sessions/:session_id/close", sessionCtrl.CloseSession)
		private.GET("/kitchen/orders", orderCtrl.KitchenOrders)
		private.PUT("/kitchen/orders/:order_id/delivered", orderCtrl.SetDelivered)
		private.POST("/assignments", orderCtrl.CreateAssignment)
	}

	return r
}
