package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-sync/broker"
	"github.com/yeremiapane/restaurant-sync/models"
	"github.com/yeremiapane/restaurant-sync/protocol"
	"github.com/yeremiapane/restaurant-sync/utils"
	"gorm.io/gorm"
)

type OrderController struct {
	DB  *gorm.DB
	Hub *broker.Hub
}

func NewOrderController(db *gorm.DB, hub *broker.Hub) *OrderController {
	return &OrderController{DB: db, Hub: hub}
}

// History -> storico ordini satu sesi, urut waktu kirim.
func (oc *OrderController) History(c *gin.Context) {
	sessionID := c.Param("session_id")

	var orders []models.Order
	err := oc.DB.Preload("Product").Preload("Table").
		Where("session_id = ?", sessionID).
		Order("submitted_at ASC").
		Find(&orders).Error
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order history", orders)
}

// KitchenOrders -> daftar comanda untuk tampilan dapur. Kedua filter
// diterapkan di sini (server-side) lewat query param, karena status
// assigned/delivered bergantung konfigurasi yang tidak di-mirror client.
func (oc *OrderController) KitchenOrders(c *gin.Context) {
	onlyAssigned := c.Query("only_assigned") == "true"
	hideDelivered := c.Query("hide_delivered") == "true"

	query := oc.DB.Preload("Product").Preload("Product.Category").Preload("Table").
		Joins("JOIN table_sessions ON table_sessions.id = orders.session_id").
		Where("table_sessions.status = ?", models.SessionActive)

	if hideDelivered {
		query = query.Where("orders.delivered = ?", false)
	}
	if onlyAssigned {
		userID := c.GetUint("user_id")
		query = query.Joins("JOIN assignments ON assignments.product_id = orders.product_id").
			Where("assignments.user_id = ?", userID)
	}

	var orders []models.Order
	if err := query.Order("orders.submitted_at ASC").Find(&orders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Active kitchen orders", orders)
}

// SetDelivered -> toggle flag consegnato satu baris, lalu kabari semua
// tampilan dapur lewat topic dapur.
func (oc *OrderController) SetDelivered(c *gin.Context) {
	orderID := c.Param("order_id")
	var body struct {
		Delivered *bool `json:"delivered" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var order models.Order
	if err := oc.DB.First(&order, orderID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	order.Delivered = *body.Delivered
	if err := oc.DB.Save(&order).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	oc.Hub.Broadcast(protocol.TopicKitchen, protocol.Envelope{
		EventType: protocol.EventDeliveryChanged,
		SessionID: order.SessionID,
	})

	utils.InfoLogger.Printf("Order line %d delivered=%t", order.ID, order.Delivered)
	utils.RespondJSON(c, http.StatusOK, "Delivery flag updated", order)
}

// CreateAssignment -> tautkan produk ke viewer dapur (dipakai filter
// only_assigned).
func (oc *OrderController) CreateAssignment(c *gin.Context) {
	var req struct {
		UserID    uint `json:"user_id" binding:"required"`
		ProductID uint `json:"product_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	assignment := models.Assignment{UserID: req.UserID, ProductID: req.ProductID}
	if err := oc.DB.Create(&assignment).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Assignment created", assignment)
}
