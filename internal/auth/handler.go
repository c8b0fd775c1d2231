package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"pricewatch/pkg/apperr"
)

// Handler issues tokens for subscribers. An account is an email and a
// password; the email is where price drops are delivered.
type Handler struct {
	Repo   *Repo
	Tokens TokenService
}

func NewHandler(repo *Repo, tokens TokenService) *Handler {
	return &Handler{Repo: repo, Tokens: tokens}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	authed := AuthMiddleware(h.Tokens, h.Repo)

	rg.POST("/register", h.register)
	rg.POST("/login", h.login)
	rg.GET("/me", authed, h.me)
	rg.POST("/logout", authed, h.logout)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// bind reads and validates a credentials body. Only registration enforces
// the password length.
func bind(c *gin.Context, forRegister bool) (credentials, error) {
	var cr credentials
	if err := c.ShouldBindJSON(&cr); err != nil {
		return cr, apperr.Errorf(apperr.InputError, "credentials", "invalid json")
	}
	cr.Email = strings.ToLower(strings.TrimSpace(cr.Email))

	switch {
	case !strings.Contains(cr.Email, "@") || len(cr.Email) > 255:
		return cr, apperr.Errorf(apperr.InputError, "credentials", "invalid email")
	case cr.Password == "":
		return cr, apperr.Errorf(apperr.InputError, "credentials", "password required")
	case forRegister && (len(cr.Password) < 8 || len(cr.Password) > 72):
		// bcrypt ignores bytes past 72.
		return cr, apperr.Errorf(apperr.InputError, "credentials", "password must be 8-72 chars")
	}
	return cr, nil
}

func (h *Handler) register(c *gin.Context) {
	cr, err := bind(c, true)
	if err != nil {
		writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	existing, err := h.Repo.GetByEmail(ctx, cr.Email)
	if err != nil {
		writeError(c, err)
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cr.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash failed"})
		return
	}
	u := &User{ID: uuid.NewString(), Email: cr.Email, PasswordHash: string(hash)}
	if err := h.Repo.CreateUser(ctx, *u); err != nil {
		writeError(c, err)
		return
	}

	h.respondWithToken(c, http.StatusCreated, u)
}

func (h *Handler) login(c *gin.Context) {
	cr, err := bind(c, false)
	if err != nil {
		writeError(c, err)
		return
	}

	u, err := h.Repo.GetByEmail(c.Request.Context(), cr.Email)
	if err != nil {
		writeError(c, err)
		return
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(cr.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	h.respondWithToken(c, http.StatusOK, u)
}

func (h *Handler) me(c *gin.Context) {
	claims := MustGetClaims(c)
	c.JSON(http.StatusOK, gin.H{"id": claims.UserID, "email": claims.Email})
}

// logout revokes every token issued so far for the caller.
func (h *Handler) logout(c *gin.Context) {
	claims := MustGetClaims(c)
	if err := h.Repo.BumpTokenVersion(c.Request.Context(), claims.UserID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (h *Handler) respondWithToken(c *gin.Context, status int, u *User) {
	token, exp, err := h.Tokens.Sign(u)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token failed"})
		return
	}
	c.JSON(status, gin.H{
		"user":       gin.H{"id": u.ID, "email": u.Email},
		"token":      token,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}

func writeError(c *gin.Context, err error) {
	switch apperr.KindOf(err) {
	case apperr.InputError:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperr.NotFound:
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
