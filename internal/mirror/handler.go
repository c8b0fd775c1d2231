package mirror

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Catalog *Catalog
}

func NewHandler(c *Catalog) *Handler {
	return &Handler{Catalog: c}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/search", h.search)    // GET /search?q=macbook&page=1
	r.GET("/product", h.product)  // GET /product?url=...
	r.PUT("/product", h.setPrice) // PUT /product?url=...  {"price": "$899.00"}
}

func (h *Handler) search(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a number"})
		return
	}
	c.JSON(http.StatusOK, h.Catalog.Search(c.Query("q"), page))
}

func (h *Handler) product(c *gin.Context) {
	p, ok := h.Catalog.Price(c.Query("url"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"price": p})
}

type setPriceReq struct {
	Price string `json:"price"`
}

func (h *Handler) setPrice(c *gin.Context) {
	var req setPriceReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Price) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price required"})
		return
	}
	if !h.Catalog.SetPrice(c.Query("url"), req.Price) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"price": req.Price})
}
