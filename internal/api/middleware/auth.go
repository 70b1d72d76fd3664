package middleware

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/justpow98/j3d-backend/internal/db"
)

const (
	userKey    = "user"
	ownerIDKey = "owner_id"
)

type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"user_id"`
}

type AuthMiddleware struct {
	secret        []byte
	tokenDuration time.Duration
}

func NewAuthMiddleware(secret string, tokenDuration time.Duration) *AuthMiddleware {
	return &AuthMiddleware{
		secret:        []byte(secret),
		tokenDuration: tokenDuration,
	}
}

func (a *AuthMiddleware) GenerateToken(userID int64) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenDuration)),
			Issuer:    "j3d-backend",
		},
		UserID: userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *AuthMiddleware) validateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

func tokenFromRequest(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// RequireAuth validates the bearer token, loads the tenant, and threads the
// owner id into the request context. Every protected data access goes
// through this owner id.
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "status": http.StatusUnauthorized})
			return
		}

		claims, err := a.validateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token", "status": http.StatusUnauthorized})
			return
		}

		user, err := db.Users.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found", "status": http.StatusUnauthorized})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "status": http.StatusInternalServerError})
			return
		}

		c.Set(userKey, user)
		c.Set(ownerIDKey, user.ID)
		c.Next()
	}
}

// OwnerID returns the tenant id stamped by RequireAuth.
func OwnerID(c *gin.Context) int64 {
	return c.GetInt64(ownerIDKey)
}

// CurrentUser returns the authenticated user stamped by RequireAuth.
func CurrentUser(c *gin.Context) *db.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*db.User); ok {
			return u
		}
	}
	return nil
}
