package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/peoplehub/people-api/internal/middleware"
	"github.com/peoplehub/people-api/internal/models"
	"github.com/peoplehub/people-api/internal/service"
	"github.com/peoplehub/people-api/pkg/config"
	appErrors "github.com/peoplehub/people-api/pkg/errors"
	"github.com/peoplehub/people-api/pkg/response"
)

// RefreshCookieName is the cookie carrying the refresh token. The
// refresh token never appears in a JSON body.
const RefreshCookieName = "refreshToken"

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service       *service.AuthService
	secureCookies bool
	refreshMaxAge int
}

// NewAuthHandler creates a new handler. Cookies are marked Secure in
// production only.
func NewAuthHandler(svc *service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		service:       svc,
		secureCookies: cfg.Env == config.EnvProduction,
		refreshMaxAge: int(cfg.JWT.RefreshExpiration.Seconds()),
	}
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(RefreshCookieName, token, h.refreshMaxAge, "/", "", h.secureCookies, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(RefreshCookieName, "", -1, "/", "", h.secureCookies, true)
}

// Register godoc
// @Summary Register a new account
// @Description Create an account and issue an access token; the refresh token is set as an HTTP-only cookie
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Register payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid register payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, pair, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setRefreshCookie(c, pair.RefreshToken)
	response.Created(c, res)
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, pair, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setRefreshCookie(c, pair.RefreshToken)
	response.JSON(c, http.StatusOK, res, nil)
}

// Refresh godoc
// @Summary Refresh access token
// @Description Exchange the refresh-token cookie for a new token pair
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, err := c.Cookie(RefreshCookieName)
	if err != nil || token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token"))
		return
	}

	res, pair, err := h.service.Refresh(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setRefreshCookie(c, pair.RefreshToken)
	response.JSON(c, http.StatusOK, res, nil)
}

// Logout godoc
// @Summary Logout current session
// @Description Revoke the presented access token and clear the refresh cookie
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token := middleware.BearerToken(c)
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "no token provided"))
		return
	}

	if err := h.service.Logout(c.Request.Context(), token, c.ClientIP(), c.GetHeader("User-Agent")); err != nil {
		response.Error(c, err)
		return
	}

	h.clearRefreshCookie(c)
	response.JSON(c, http.StatusOK, gin.H{"message": "logout successful"}, nil)
}

// Me godoc
// @Summary Get current user
// @Description Returns the authenticated user's info
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	user, err := h.service.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, user, nil)
}
