package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	SessionHeader = "X-Session-ID"
	ctxSessionID  = "sessionID"
)

// Session resolves the browsing session from the cookie or the X-Session-ID
// header, issuing a new one when neither carries a valid id. The id is
// echoed back in both.
func Session(cookieName string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := ""
		if v, err := c.Cookie(cookieName); err == nil && validSessionID(v) {
			id = v
		} else if v := c.GetHeader(SessionHeader); validSessionID(v) {
			id = v
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(ctxSessionID, id)
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookieName, id, int(ttl.Seconds()), "/", "", false, true)
		c.Header(SessionHeader, id)
		c.Next()
	}
}

func validSessionID(v string) bool {
	_, err := uuid.Parse(v)
	return err == nil
}

func GetSessionID(c *gin.Context) string {
	return c.GetString(ctxSessionID)
}
