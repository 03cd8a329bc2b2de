package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Handlers provides HTTP handlers for auth operations. The password
// routes guard themselves by demanding the current password, so the
// whole group can stay outside the auth middleware and first-time
// setup works on a fresh install.
type Handlers struct {
	service *Service
}

// NewHandlers creates a new auth handlers instance.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers auth routes on an Echo group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/status", h.Status)
	g.POST("/login", h.Login)
	g.POST("/logout", h.Logout)
	g.POST("/password", h.SetPassword)
	g.DELETE("/password", h.RemovePassword)
}

// StatusResponse describes the current auth posture.
type StatusResponse struct {
	Enabled      bool `json:"enabled"`
	PasswordSet  bool `json:"passwordSet"`
	RequiresAuth bool `json:"requiresAuth"`
}

// Status reports whether logins are needed.
// GET /api/v1/auth/status
func (h *Handlers) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{
		Enabled:      h.service.Enabled(),
		PasswordSet:  h.service.IsPasswordSet(),
		RequiresAuth: h.service.RequiresAuth(),
	})
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login validates the password and issues a session token, both in the
// response body and as a cookie.
// POST /api/v1/auth/login
func (h *Handlers) Login(c echo.Context) error {
	if !h.service.Enabled() {
		return echo.NewHTTPError(http.StatusBadRequest, ErrAuthDisabled.Error())
	}

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.service.ValidatePassword(c.Request().Context(), req.Password); err != nil {
		switch {
		case errors.Is(err, ErrNoPasswordSet):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrInvalidCredentials):
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid password")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "authentication failed")
		}
	}

	token, err := h.service.GenerateToken()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate token")
	}

	c.SetCookie(h.sessionCookie(token, h.service.tokenTTL))
	return c.JSON(http.StatusOK, loginResponse{Token: token})
}

// Logout drops the session cookie. Tokens themselves simply expire.
// POST /api/v1/auth/logout
func (h *Handlers) Logout(c echo.Context) error {
	c.SetCookie(h.sessionCookie("", -time.Second))
	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// SetPassword sets or changes the password. Changing an existing
// password requires the current one.
// POST /api/v1/auth/password
func (h *Handlers) SetPassword(c echo.Context) error {
	var req passwordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	if h.service.IsPasswordSet() {
		if err := h.service.ValidatePassword(ctx, req.CurrentPassword); err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "current password is wrong")
		}
	}

	if err := h.service.SetPassword(ctx, req.NewPassword); err != nil {
		if errors.Is(err, ErrPasswordRequired) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// RemovePassword clears the password after checking the current one,
// reopening the API.
// DELETE /api/v1/auth/password
func (h *Handlers) RemovePassword(c echo.Context) error {
	var req passwordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	if !h.service.IsPasswordSet() {
		return c.NoContent(http.StatusNoContent)
	}
	if err := h.service.ValidatePassword(ctx, req.CurrentPassword); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "current password is wrong")
	}

	if err := h.service.ClearPassword(ctx); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.SetCookie(h.sessionCookie("", -time.Second))
	return c.NoContent(http.StatusNoContent)
}

func (h *Handlers) sessionCookie(value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
