package handlers

import (
	"fmt"
	"net/http"

	"kanri/backend/internal/middleware"
	"kanri/backend/internal/models"
	"kanri/backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type UserHandler struct {
	db          *gorm.DB
	authService services.AuthService
}

func NewUserHandler(db *gorm.DB, authService services.AuthService) *UserHandler {
	return &UserHandler{db: db, authService: authService}
}

// GetUsers lists every account. Admin only; the role check is an explicit
// call at the top of the handler rather than route middleware.
func (h *UserHandler) GetUsers(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	if !middleware.IsAuthorized(user.Role, models.RoleAdmin) {
		respondError(c, http.StatusForbidden,
			fmt.Sprintf("User role %s is not authorized to access this route", user.Role))
		return
	}

	users, err := h.authService.ListUsers(h.db)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to fetch users")
		return
	}

	respondList(c, http.StatusOK, len(users), users)
}
