package handlers

import (
	"errors"
	"net/http"
	"strings"

	"kanri/backend/internal/middleware"
	"kanri/backend/internal/models"
	"kanri/backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// OwnerWarmer pre-populates a user's hot cache entries after login.
type OwnerWarmer interface {
	WarmOwner(db *gorm.DB, owner *models.User)
}

type AuthHandler struct {
	db           *gorm.DB
	authService  services.AuthService
	tokenService services.TokenService
	cookieName   string
	secureCookie bool
	warmer       OwnerWarmer
}

func NewAuthHandler(db *gorm.DB, authService services.AuthService, tokenService services.TokenService, cookieName string, secureCookie bool, warmer OwnerWarmer) *AuthHandler {
	return &AuthHandler{
		db:           db,
		authService:  authService,
		tokenService: tokenService,
		cookieName:   cookieName,
		secureCookie: secureCookie,
		warmer:       warmer,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.authService.RegisterUser(h.db, req)
	if err != nil {
		switch {
		case services.IsValidationError(err):
			respondError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrEmailTaken):
			respondError(c, http.StatusBadRequest, "email already exists")
		default:
			respondError(c, http.StatusInternalServerError, "Registration failed")
		}
		return
	}

	h.sendTokenResponse(c, http.StatusCreated, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		respondError(c, http.StatusBadRequest, "Please provide an email and password")
		return
	}

	user, err := h.authService.LoginUser(h.db, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		respondError(c, http.StatusInternalServerError, "Login failed")
		return
	}

	if h.warmer != nil {
		h.warmer.WarmOwner(h.db, user)
	}

	h.sendTokenResponse(c, http.StatusOK, user)
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	respondData(c, http.StatusOK, user)
}

// sendTokenResponse signs the credential and delivers it both in the body
// and as an HTTP-only same-site cookie, expiring together with the token.
func (h *AuthHandler) sendTokenResponse(c *gin.Context, status int, user *models.User) {
	token, err := h.tokenService.Sign(user.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, token, int(h.tokenService.TTL().Seconds()), "/", "", h.secureCookie, true)

	c.JSON(status, gin.H{
		"success": true,
		"token":   token,
	})
}
