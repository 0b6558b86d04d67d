package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-sync/broker"
	"github.com/yeremiapane/restaurant-sync/middlewares"
	"github.com/yeremiapane/restaurant-sync/models"
	"github.com/yeremiapane/restaurant-sync/protocol"
	"github.com/yeremiapane/restaurant-sync/utils"
	"gorm.io/gorm"
)

type SessionController struct {
	DB  *gorm.DB
	Hub *broker.Hub
}

func NewSessionController(db *gorm.DB, hub *broker.Hub) *SessionController {
	return &SessionController{DB: db, Hub: hub}
}

func sessionInfo(session models.TableSession) models.SessionInfo {
	return models.SessionInfo{
		SessionID:   session.ID,
		TableID:     session.TableID,
		TableNumber: session.Table.TableNumber,
		MenuMode:    session.MenuMode,
		Status:      session.Status,
		IsAyce:      session.IsAyce(),
	}
}

// LoginTable -> pelanggan menempel ke sesi aktif sebuah meja. 404 kalau meja
// tidak ada, 409 kalau sesi belum dibuka staff (bukan error, cukup menunggu).
func (sc *SessionController) LoginTable(c *gin.Context) {
	tableNumber, err := strconv.Atoi(c.Param("table_number"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid table number"))
		return
	}

	var table models.Table
	if err := sc.DB.Where("table_number = ?", tableNumber).First(&table).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("table not found"))
		return
	}

	var session models.TableSession
	err = sc.DB.Preload("Table").
		Where("table_id = ? AND status = ?", table.ID, models.SessionActive).
		First(&session).Error
	if err != nil {
		utils.RespondError(c, http.StatusConflict, errors.New("session not opened yet"))
		return
	}

	token, err := utils.GenerateSessionToken(session.ID, table.ID, table.TableNumber, "customer")
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	c.SetCookie(middlewares.SessionCookieName, token, 24*3600, "/", "", false, true)

	utils.InfoLogger.Printf("Customer joined table %d (session %d)", table.TableNumber, session.ID)
	utils.RespondJSON(c, http.StatusOK, "Joined table session", sessionInfo(session))
}

// Me -> sesi yang melekat di cookie saat ini; 401 kalau tidak ada/tutup.
func (sc *SessionController) Me(c *gin.Context) {
	cookie, err := c.Cookie(middlewares.SessionCookieName)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("no session"))
		return
	}
	claims, err := utils.ParseToken(cookie)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}

	var session models.TableSession
	if err := sc.DB.Preload("Table").First(&session, claims.SessionID).Error; err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("session not found"))
		return
	}
	if session.Status != models.SessionActive {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("session closed"))
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Current session", sessionInfo(session))
}

// OpenSession -> staff membuka sesi untuk satu meja. Satu sesi ACTIVE per
// meja: percobaan kedua dijawab 409 dan client harus resync, bukan retry.
func (sc *SessionController) OpenSession(c *gin.Context) {
	var req struct {
		TableNumber         int    `json:"table_number" binding:"required"`
		ParticipantCount    int    `json:"participant_count" binding:"required"`
		MenuMode            string `json:"menu_mode"`
		CooldownMinutes     int    `json:"cooldown_minutes"`
		MaxCoursesPerPerson int    `json:"max_courses_per_person"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var table models.Table
	if err := sc.DB.Where("table_number = ?", req.TableNumber).First(&table).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("table not found"))
		return
	}

	var existing models.TableSession
	err := sc.DB.Where("table_id = ? AND status = ?", table.ID, models.SessionActive).
		First(&existing).Error
	if err == nil {
		utils.RespondError(c, http.StatusConflict, errors.New("table already has an active session"))
		return
	}

	mode := req.MenuMode
	if mode == "" {
		mode = models.MenuAYCE
	}
	session := models.TableSession{
		TableID:             table.ID,
		Status:              models.SessionActive,
		MenuMode:            mode,
		ParticipantCount:    req.ParticipantCount,
		StartedAt:           time.Now(),
		CooldownMinutes:     req.CooldownMinutes,
		MaxCoursesPerPerson: req.MaxCoursesPerPerson,
	}
	if err := sc.DB.Create(&session).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	session.Table = table

	// Viewer CRUD generik memuat ulang daftar meja/sesi.
	sc.Hub.Broadcast(protocol.TopicBroadcast, protocol.Envelope{EventType: protocol.EventRefresh})

	utils.InfoLogger.Printf("Session %d opened on table %d (%d participants, %s)",
		session.ID, table.TableNumber, req.ParticipantCount, mode)
	utils.RespondJSON(c, http.StatusCreated, "Session opened", sessionInfo(session))
}

// CloseSession -> staff menutup sesi; client meja menerima REFRESH dan akan
// melihat sesinya hilang saat reload.
func (sc *SessionController) CloseSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	var session models.TableSession
	if err := sc.DB.Preload("Table").First(&session, sessionID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	session.Status = models.SessionClosed
	if err := sc.DB.Save(&session).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	sc.Hub.Broadcast(protocol.TopicTable(session.TableID), protocol.Envelope{EventType: protocol.EventRefresh})
	sc.Hub.Broadcast(protocol.TopicBroadcast, protocol.Envelope{EventType: protocol.EventRefresh})

	utils.InfoLogger.Printf("Session %d closed on table %d", session.ID, session.Table.TableNumber)
	utils.RespondJSON(c, http.StatusOK, "Session closed", sessionInfo(session))
}
