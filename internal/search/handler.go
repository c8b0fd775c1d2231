package search

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pricewatch/pkg/apperr"
)

type Handler struct {
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.search)      // GET /search?query=macbook
	rg.GET("/search/:id", h.getByID) // GET /search/:id
}

func (h *Handler) search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("query"))
	if q == "" {
		q = strings.TrimSpace(c.Query("q"))
	}
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	out, err := h.Service.Search(c.Request.Context(), q)
	if err != nil {
		if apperr.Is(err, apperr.InputError) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) getByID(c *gin.Context) {
	out, err := h.Service.Recall(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, out)
}
