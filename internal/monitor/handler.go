package monitor

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pricewatch/internal/auth"
	"pricewatch/pkg/models"
)

type Handler struct {
	Monitor *Monitor
}

func NewHandler(m *Monitor) *Handler {
	return &Handler{Monitor: m}
}

// RegisterRoutes expects rg to run auth.AuthMiddleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/monitor/run", h.run)
}

// run triggers a full cycle. The caller sees the cycle summary but only
// its own alerts.
func (h *Handler) run(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	alerts, sum := h.Monitor.RunNow(c.Request.Context())
	own := []models.Alert{}
	for _, a := range alerts {
		if strings.EqualFold(a.Email, claims.Email) {
			own = append(own, a)
		}
	}

	status := http.StatusOK
	if sum.ListFailed {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"alerts": own, "summary": sum})
}
