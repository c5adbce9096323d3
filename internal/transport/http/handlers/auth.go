package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Msa-soilihi-Hamza/calanques-api/internal/transport/http/middleware"
	"github.com/Msa-soilihi-Hamza/calanques-api/internal/usecase"
)

const (
	rememberCookieName = "remember_token"
	rememberCookiePath = "/api/v1/auth"
	tokenTypeBearer    = "Bearer"
)

// AuthHandler exposes the authentication endpoints.
type AuthHandler struct {
	auth            *usecase.AuthService
	registration    *usecase.RegistrationService
	dispatcher      NotificationDispatcher
	logger          *zap.Logger
	rememberTTL     time.Duration
	verificationTTL time.Duration
	secureCookies   bool
	devMode         bool
}

// AuthHandlerOption customizes the handler at construction time.
type AuthHandlerOption func(*AuthHandler)

// WithNotificationDispatcher sets the channel used to deliver verification tokens.
func WithNotificationDispatcher(dispatcher NotificationDispatcher) AuthHandlerOption {
	return func(h *AuthHandler) {
		if dispatcher != nil {
			h.dispatcher = dispatcher
		}
	}
}

// WithRememberTokenTTL sets the lifetime of the remember-me cookie.
func WithRememberTokenTTL(ttl time.Duration) AuthHandlerOption {
	return func(h *AuthHandler) {
		if ttl > 0 {
			h.rememberTTL = ttl
		}
	}
}

// WithVerificationTTL sets the advertised verification token lifetime.
func WithVerificationTTL(ttl time.Duration) AuthHandlerOption {
	return func(h *AuthHandler) {
		if ttl > 0 {
			h.verificationTTL = ttl
		}
	}
}

// WithSecureCookies marks auth cookies as Secure. Enabled in production.
func WithSecureCookies(secure bool) AuthHandlerOption {
	return func(h *AuthHandler) {
		h.secureCookies = secure
	}
}

// WithDevMode surfaces raw verification tokens in registration responses.
// Never enable outside local development.
func WithDevMode(enabled bool) AuthHandlerOption {
	return func(h *AuthHandler) {
		h.devMode = enabled
	}
}

// NewAuthHandler constructs the auth endpoint handler.
func NewAuthHandler(
	auth *usecase.AuthService,
	registration *usecase.RegistrationService,
	log *zap.Logger,
	opts ...AuthHandlerOption,
) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}

	h := &AuthHandler{
		auth:            auth,
		registration:    registration,
		dispatcher:      noopDispatcher{},
		logger:          log,
		rememberTTL:     30 * 24 * time.Hour,
		verificationTTL: 24 * time.Hour,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// AuthRouteOptions carries the middleware applied to specific auth endpoints.
type AuthRouteOptions struct {
	AuthRequired   gin.HandlerFunc
	LoginLimits    []gin.HandlerFunc
	RegisterLimits []gin.HandlerFunc
}

// RegisterRoutes mounts the auth endpoints under /auth on the given group.
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup, opts AuthRouteOptions) {
	group := rg.Group("/auth")

	group.POST("/register", chain(opts.RegisterLimits, h.Register)...)
	group.POST("/login", chain(opts.LoginLimits, h.Login)...)
	group.POST("/remember", chain(opts.LoginLimits, h.Remember)...)
	group.POST("/refresh", h.Refresh)
	group.POST("/verify-email", h.VerifyEmail)

	if opts.AuthRequired != nil {
		group.POST("/logout", opts.AuthRequired, h.Logout)
	} else {
		group.POST("/logout", h.Logout)
	}
}

func chain(mw []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	chained := append([]gin.HandlerFunc{}, mw...)
	return append(chained, handler)
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	result, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		WriteError(c, err,
			ErrorStatus{Code: http.StatusInternalServerError, Message: "registration failed"},
			ErrorStatus{Sentinel: usecase.ErrEmailTaken, Code: http.StatusConflict, Message: "email is already registered"},
			ErrorStatus{Sentinel: usecase.ErrWeakPassword, Code: http.StatusBadRequest, Message: "password does not meet the security policy"},
			ErrorStatus{Sentinel: usecase.ErrInvalidRegistration, Code: http.StatusBadRequest, Message: "invalid registration input"},
		)
		return
	}

	h.dispatchVerification(c, result)

	resp := RegistrationResponse{User: NewUserSummary(result.User)}
	if h.devMode {
		resp.VerificationToken = result.VerificationToken
	}

	c.JSON(http.StatusCreated, resp)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	reqCtx := middleware.GetRequestContext(c)
	input := usecase.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
	}
	if reqCtx.IP != "" {
		input.IP = &reqCtx.IP
	}
	if reqCtx.UserAgent != "" {
		input.UserAgent = &reqCtx.UserAgent
	}

	result, err := h.auth.Login(c.Request.Context(), input)
	if err != nil {
		WriteError(c, err,
			ErrorStatus{Code: http.StatusInternalServerError, Message: "login failed"},
			ErrorStatus{Sentinel: usecase.ErrInvalidCredentials, Code: http.StatusUnauthorized, Message: "invalid email or password"},
			ErrorStatus{Sentinel: usecase.ErrInactiveAccount, Code: http.StatusForbidden, Message: "account is deactivated"},
			ErrorStatus{Sentinel: usecase.ErrEmailNotVerified, Code: http.StatusForbidden, Message: "email address not verified"},
		)
		return
	}

	if result.RememberToken != "" {
		h.setRememberCookie(c, result.RememberToken)
	}

	c.JSON(http.StatusOK, newTokenPairResponse(result))
}

// Remember handles POST /auth/remember: it exchanges the remember-me cookie
// for a fresh session without credentials. The cookie is rotated on success
// and cleared on any failure.
func (h *AuthHandler) Remember(c *gin.Context) {
	raw, err := c.Cookie(rememberCookieName)
	if err != nil || raw == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "no remembered session"))
		return
	}

	result, err := h.auth.AttemptRememberLogin(c.Request.Context(), raw)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "login failed"))
		return
	}

	if result == nil {
		h.clearRememberCookie(c)
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "no remembered session"))
		return
	}

	h.setRememberCookie(c, result.RememberToken)

	c.JSON(http.StatusOK, newTokenPairResponse(result))
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	result, err := h.auth.RefreshAccessToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		WriteError(c, err,
			ErrorStatus{Code: http.StatusInternalServerError, Message: "token refresh failed"},
			ErrorStatus{Sentinel: usecase.ErrUnauthorized, Code: http.StatusUnauthorized, Message: "invalid or expired refresh token"},
			ErrorStatus{Sentinel: usecase.ErrInactiveAccount, Code: http.StatusForbidden, Message: "account is deactivated"},
		)
		return
	}

	c.JSON(http.StatusOK, newTokenPairResponse(result))
}

// Logout handles POST /auth/logout. It revokes the remembered session and
// clears the cookie; access tokens expire on their own.
func (h *AuthHandler) Logout(c *gin.Context) {
	if user, ok := middleware.GetAuthenticatedUser(c); ok {
		h.auth.Logout(c.Request.Context(), user.ID)
	}

	h.clearRememberCookie(c)

	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

// VerifyEmail handles POST /auth/verify-email.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	if err := h.registration.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		WriteError(c, err,
			ErrorStatus{Code: http.StatusInternalServerError, Message: "email verification failed"},
			ErrorStatus{Sentinel: usecase.ErrInvalidVerificationToken, Code: http.StatusBadRequest, Message: "invalid or expired verification token"},
			ErrorStatus{Sentinel: usecase.ErrUserNotFound, Code: http.StatusNotFound, Message: "user not found"},
		)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "email verified"})
}

func (h *AuthHandler) dispatchVerification(c *gin.Context, result *usecase.RegistrationResult) {
	payload := VerificationNotification{
		Email:     result.User.Email,
		FirstName: result.User.FirstName,
		Expires:   time.Now().UTC().Add(h.verificationTTL),
	}
	if h.devMode {
		payload.DevToken = result.VerificationToken
	}

	if err := h.dispatcher.SendEmailVerification(c.Request.Context(), payload); err != nil {
		h.logger.Warn("dispatch verification notification",
			zap.Int64("user_id", result.User.ID),
			zap.Error(err),
		)
	}
}

func (h *AuthHandler) setRememberCookie(c *gin.Context, value string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(rememberCookieName, value, int(h.rememberTTL.Seconds()), rememberCookiePath, "", h.secureCookies, true)
}

func (h *AuthHandler) clearRememberCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(rememberCookieName, "", -1, rememberCookiePath, "", h.secureCookies, true)
}

func newTokenPairResponse(result *usecase.AuthResult) TokenPairResponse {
	return TokenPairResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    result.ExpiresIn,
		User:         NewUserSummary(result.User),
	}
}
