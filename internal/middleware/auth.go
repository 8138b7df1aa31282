package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/repository"
)

const (
	ctxUserID    = "userID"
	ctxUserRole  = "userRole"
	ctxTokenID   = "tokenID"
	ctxTokenExp  = "tokenExp"
	bearerPrefix = "Bearer "
)

// AuthMiddleware accepts HS256 bearer tokens that have not been revoked.
// A nil denylist skips the revocation check.
func AuthMiddleware(secret string, denylist repository.TokenDenylist) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		token, err := jwt.Parse(header[len(bearerPrefix):], func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			return
		}

		sub, _ := claims["sub"].(string)
		userID, err := uuid.Parse(sub)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
			return
		}

		jti, _ := claims["jti"].(string)
		if jti != "" && denylist != nil {
			revoked, err := denylist.IsRevoked(c.Request.Context(), jti)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
				return
			}
			if revoked {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
				return
			}
		}

		role, _ := claims["role"].(string)
		c.Set(ctxUserID, userID)
		c.Set(ctxUserRole, model.Role(role))
		c.Set(ctxTokenID, jti)
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			c.Set(ctxTokenExp, exp.Time)
		}
		c.Next()
	}
}

// RequireRole lets the request through only for the listed roles.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetUserRole(c)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

func GetUserID(c *gin.Context) uuid.UUID {
	id, _ := c.Get(ctxUserID)
	uid, _ := id.(uuid.UUID)
	return uid
}

func GetUserRole(c *gin.Context) model.Role {
	role, _ := c.Get(ctxUserRole)
	r, _ := role.(model.Role)
	return r
}

// GetProfile builds the caller's profile from token claims.
func GetProfile(c *gin.Context) model.Profile {
	return model.Profile{ID: GetUserID(c), Role: GetUserRole(c)}
}

func GetTokenID(c *gin.Context) string {
	return c.GetString(ctxTokenID)
}

func GetTokenExpiry(c *gin.Context) time.Time {
	return c.GetTime(ctxTokenExp)
}
