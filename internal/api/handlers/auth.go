package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justpow98/j3d-backend/internal/api/middleware"
	"github.com/justpow98/j3d-backend/internal/config"
	"github.com/justpow98/j3d-backend/internal/db"
	"github.com/justpow98/j3d-backend/internal/etsy"
	"github.com/justpow98/j3d-backend/internal/utils"
)

type AuthHandler struct {
	oauth   *etsy.OAuth
	auth    *middleware.AuthMiddleware
	cipher  *utils.Cipher
	etsyCfg config.EtsyConfig
}

func NewAuthHandler(oauth *etsy.OAuth, auth *middleware.AuthMiddleware, cipher *utils.Cipher, etsyCfg config.EtsyConfig) *AuthHandler {
	return &AuthHandler{
		oauth:   oauth,
		auth:    auth,
		cipher:  cipher,
		etsyCfg: etsyCfg,
	}
}

type CallbackRequest struct {
	Code         string `json:"code" binding:"required"`
	CodeVerifier string `json:"code_verifier" binding:"required"`
}

func (h *AuthHandler) LoginURL(c *gin.Context) {
	auth, err := h.oauth.AuthorizationURL()
	if err != nil {
		log.Printf("[auth] failed to build authorization url: %v", err)
		abortError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	c.JSON(http.StatusOK, auth)
}

func (h *AuthHandler) Callback(c *gin.Context) {
	var req CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "missing authorization code or code_verifier")
		return
	}

	ctx := c.Request.Context()

	token, err := h.oauth.ExchangeCode(ctx, req.Code, req.CodeVerifier)
	if err != nil {
		log.Printf("[auth] token exchange failed: %v", err)
		abortError(c, http.StatusBadGateway, "failed to exchange authorization code")
		return
	}

	client := etsy.NewClient(h.etsyCfg, token.AccessToken)
	etsyUserID, shopID, err := client.GetMe(ctx)
	if err != nil {
		log.Printf("[auth] user lookup failed: %v", err)
		abortError(c, http.StatusBadGateway, "failed to fetch user info")
		return
	}

	encAccess, err := h.cipher.Encrypt(token.AccessToken)
	if err != nil {
		abortError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	encRefresh := ""
	if token.RefreshToken != "" {
		if encRefresh, err = h.cipher.Encrypt(token.RefreshToken); err != nil {
			abortError(c, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	expiresAt := token.ExpiresAt(timeNow())

	user, err := db.Users.GetUserByEtsyID(ctx, etsyUserID)
	switch {
	case err == nil:
		if shopID == "" {
			shopID = user.ShopID
		}
		if err := db.Users.UpdateTokens(ctx, user.ID, encAccess, encRefresh, &expiresAt, shopID); err != nil {
			abortError(c, http.StatusInternalServerError, "internal server error")
			return
		}
		user.ShopID = shopID
	case errors.Is(err, sql.ErrNoRows):
		user = &db.User{
			EtsyUserID:     etsyUserID,
			Username:       "etsy_user_" + etsyUserID,
			ShopID:         shopID,
			AccessToken:    encAccess,
			RefreshToken:   encRefresh,
			TokenExpiresAt: &expiresAt,
		}
		if err := db.Users.CreateUser(ctx, user); err != nil {
			abortError(c, http.StatusInternalServerError, "internal server error")
			return
		}
	default:
		abortError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	sessionToken, err := h.auth.GenerateToken(user.ID)
	if err != nil {
		abortError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   sessionToken,
		"user": gin.H{
			"id":           user.ID,
			"etsy_user_id": user.EtsyUserID,
			"username":     user.Username,
			"shop_id":      user.ShopID,
		},
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	// Sessions are stateless; the client discards the token.
	c.JSON(http.StatusOK, gin.H{"message": "successfully logged out"})
}

func (h *AuthHandler) CurrentUser(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

func (h *AuthHandler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.GET("/auth/login", h.LoginURL)
	public.POST("/auth/callback", h.Callback)
	protected.POST("/auth/logout", h.Logout)
	protected.GET("/auth/user", h.CurrentUser)
}
