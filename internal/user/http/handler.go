package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/auth"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/pkg/response"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/user"
)

type UserHandler struct {
	userService user.Service
	jwtManager  *auth.JWTManager
}

func NewUserHandler(userService user.Service, jwtManager *auth.JWTManager) *UserHandler {
	return &UserHandler{
		userService: userService,
		jwtManager:  jwtManager,
	}
}

// Register handles the account registration process.
// It validates the payload and creates a new user if the email is unique.
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()

	u, err := h.userService.Register(ctx, user.RegisterRequest{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
		Role:        user.Role(req.Role),
	})
	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailAlreadyUsed):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, user.ErrInvalidRole):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		}
		return
	}

	c.JSON(http.StatusCreated, MeResponse{User: NewUserResponse(u)})
}

// Login authenticates a user using email and password.
// On success, it returns a JWT access token and the user profile.
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()

	u, err := h.userService.Login(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		case errors.Is(err, user.ErrInactiveUser):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to login"})
		}
		return
	}

	token, err := h.jwtManager.GenerateAccessToken(u.ID, u.Email, string(u.Role))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: token,
		User:        NewUserResponse(u),
	})
}

// Me returns the profile of the authenticated user.
func (h *UserHandler) Me(c *gin.Context) {
	userID := auth.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	u, err := h.userService.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get user"})
		return
	}

	c.JSON(http.StatusOK, MeResponse{User: NewUserResponse(u)})
}

// ListLawyers returns the directory of active lawyers available for booking.
func (h *UserHandler) ListLawyers(c *gin.Context) {
	var req ListLawyersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	lawyers, total, err := h.userService.ListLawyers(c.Request.Context(), page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list lawyers"})
		return
	}

	items := make([]LawyerResponse, len(lawyers))
	for i, l := range lawyers {
		items[i] = NewLawyerResponse(l)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, page, pageSize, total))
}
