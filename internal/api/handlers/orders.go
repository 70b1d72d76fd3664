package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/justpow98/j3d-backend/internal/api/middleware"
	"github.com/justpow98/j3d-backend/internal/config"
	"github.com/justpow98/j3d-backend/internal/db"
	"github.com/justpow98/j3d-backend/internal/etsy"
	"github.com/justpow98/j3d-backend/internal/utils"
)

type OrderHandler struct {
	oauth   *etsy.OAuth
	cipher  *utils.Cipher
	etsyCfg config.EtsyConfig
}

func NewOrderHandler(oauth *etsy.OAuth, cipher *utils.Cipher, etsyCfg config.EtsyConfig) *OrderHandler {
	return &OrderHandler{
		oauth:   oauth,
		cipher:  cipher,
		etsyCfg: etsyCfg,
	}
}

type ListOrdersQuery struct {
	Status string `form:"status"`
	pageQuery
}

type OrderResponse struct {
	*db.Order
	Items []*db.OrderItem `json:"items"`
}

type UpdateOrderRequest struct {
	ProductionStatus string `json:"production_status" binding:"required"`
}

type AddNoteRequest struct {
	Body string `json:"body" binding:"required"`
}

type AddCommunicationRequest struct {
	Channel string `json:"channel" binding:"required"`
	Subject string `json:"subject"`
	Body    string `json:"body" binding:"required"`
}

// SyncOrders refreshes the marketplace access token when stale and pulls the
// recent receipts into local orders.
func (h *OrderHandler) SyncOrders(c *gin.Context) {
	user := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	if user.ShopID == "" {
		abortError(c, http.StatusNotFound, "no shop associated with this account")
		return
	}

	accessToken, err := h.cipher.Decrypt(user.AccessToken)
	if err != nil {
		abortError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	if user.TokenExpiresAt != nil && !user.TokenExpiresAt.After(time.Now()) {
		refreshToken, err := h.cipher.Decrypt(user.RefreshToken)
		if err != nil {
			abortError(c, http.StatusInternalServerError, "internal server error")
			return
		}

		token, err := h.oauth.RefreshToken(ctx, refreshToken)
		if err != nil {
			log.Printf("[orders] token refresh failed for user %d: %v", user.ID, err)
			abortError(c, http.StatusBadGateway, "failed to refresh marketplace token")
			return
		}
		accessToken = token.AccessToken

		encAccess, err := h.cipher.Encrypt(token.AccessToken)
		if err != nil {
			abortError(c, http.StatusInternalServerError, "internal server error")
			return
		}
		encRefresh := user.RefreshToken
		if token.RefreshToken != "" {
			if encRefresh, err = h.cipher.Encrypt(token.RefreshToken); err != nil {
				abortError(c, http.StatusInternalServerError, "internal server error")
				return
			}
		}
		expiresAt := token.ExpiresAt(time.Now())
		if err := db.Users.UpdateTokens(ctx, user.ID, encAccess, encRefresh, &expiresAt, user.ShopID); err != nil {
			abortError(c, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	client := etsy.NewClient(h.etsyCfg, accessToken)
	manager := etsy.NewSyncManager(client, h.etsyCfg.SyncMonths)

	result, err := manager.SyncOrders(ctx, user.ID, user.ShopID)
	if err != nil {
		log.Printf("[orders] sync failed for user %d: %v", user.ID, err)
		abortError(c, http.StatusBadGateway, "failed to sync orders")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	var query ListOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		abortError(c, http.StatusBadRequest, "invalid query parameters")
		return
	}
	query.clamp()

	orders, total, err := db.Orders.ListOrders(c.Request.Context(), middleware.OwnerID(c), db.OrderFilter{
		Status: query.Status,
		Limit:  query.Limit,
		Offset: query.Offset,
	})
	if err != nil {
		abortError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	if orders == nil {
		orders = []*db.Order{}
	}

	c.JSON(http.StatusOK, ListEnvelope{Data: orders, Total: total, Limit: query.Limit, Offset: query.Offset})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	order, err := db.Orders.GetOrderByID(ctx, middleware.OwnerID(c), id)
	if err != nil {
		abortDBError(c, err, "order not found")
		return
	}

	items, err := db.Orders.GetOrderItems(ctx, order.ID)
	if err != nil {
		abortError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	if items == nil {
		items = []*db.OrderItem{}
	}

	c.JSON(http.StatusOK, OrderResponse{Order: order, Items: items})
}

func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "production_status is required")
		return
	}

	ownerID := middleware.OwnerID(c)
	if err := db.Orders.UpdateProductionStatus(c.Request.Context(), ownerID, id, req.ProductionStatus); err != nil {
		abortDBError(c, err, "order not found")
		return
	}

	order, err := db.Orders.GetOrderByID(c.Request.Context(), ownerID, id)
	if err != nil {
		abortDBError(c, err, "order not found")
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) AddNote(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "body is required")
		return
	}

	note := &db.OrderNote{OrderID: id, Body: req.Body}
	if err := db.Orders.AddNote(c.Request.Context(), middleware.OwnerID(c), note); err != nil {
		abortDBError(c, err, "order not found")
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (h *OrderHandler) ListNotes(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	notes, err := db.Orders.ListNotes(c.Request.Context(), middleware.OwnerID(c), id)
	if err != nil {
		abortDBError(c, err, "order not found")
		return
	}
	if notes == nil {
		notes = []*db.OrderNote{}
	}
	c.JSON(http.StatusOK, ListEnvelope{Data: notes, Total: len(notes), Limit: len(notes), Offset: 0})
}

func (h *OrderHandler) AddCommunication(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req AddCommunicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "channel and body are required")
		return
	}

	comm := &db.OrderCommunication{OrderID: id, Channel: req.Channel, Subject: req.Subject, Body: req.Body}
	if err := db.Orders.AddCommunication(c.Request.Context(), middleware.OwnerID(c), comm); err != nil {
		abortDBError(c, err, "order not found")
		return
	}
	c.JSON(http.StatusCreated, comm)
}

func (h *OrderHandler) ListCommunications(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	comms, err := db.Orders.ListCommunications(c.Request.Context(), middleware.OwnerID(c), id)
	if err != nil {
		abortDBError(c, err, "order not found")
		return
	}
	if comms == nil {
		comms = []*db.OrderCommunication{}
	}
	c.JSON(http.StatusOK, ListEnvelope{Data: comms, Total: len(comms), Limit: len(comms), Offset: 0})
}

func (h *OrderHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/orders/sync", h.SyncOrders)
	r.GET("/orders", h.ListOrders)
	r.GET("/orders/:id", h.GetOrder)
	r.PUT("/orders/:id", h.UpdateOrder)
	r.POST("/orders/:id/notes", h.AddNote)
	r.GET("/orders/:id/notes", h.ListNotes)
	r.POST("/orders/:id/communications", h.AddCommunication)
	r.GET("/orders/:id/communications", h.ListCommunications)
}
