package subscription

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pricewatch/internal/auth"
	"pricewatch/pkg/apperr"
)

type Handler struct {
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

// RegisterRoutes expects rg to run auth.AuthMiddleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/subscriptions", h.subscribe)
	rg.GET("/subscriptions", h.list)
}

func (h *Handler) subscribe(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	n, err := h.Service.Subscribe(c.Request.Context(), claims.Email, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"subscribed": n})
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	items, err := h.Service.List(c.Request.Context(), claims.Email)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(items), "items": items})
}

func writeError(c *gin.Context, err error) {
	switch apperr.KindOf(err) {
	case apperr.InputError:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperr.NotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperr.PersistenceError:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "search failed"})
	}
}
