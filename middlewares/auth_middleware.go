package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-sync/utils"
)

// SessionCookieName -> cookie sesi meja yang di-set saat login-table.
const SessionCookieName = "table_session"

// AuthMiddleware menerima bearer token staff ATAU cookie sesi meja; klaim
// ditaruh di context untuk controller di belakangnya.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""

		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}
		if tokenString == "" {
			if cookie, err := c.Cookie(SessionCookieName); err == nil {
				tokenString = cookie
			}
		}
		if tokenString == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("missing credentials"))
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil || claims == nil {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid or expired token"))
			c.Abort()
			return
		}

		c.Set("session_id", claims.SessionID)
		c.Set("table_id", claims.TableID)
		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// StaffOnly membatasi endpoint private dapur/admin untuk role staff.
func StaffOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		if role != "chef" && role != "staff" && role != "admin" {
			utils.RespondError(c, http.StatusForbidden, errors.New("staff role required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
