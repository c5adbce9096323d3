package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/Msa-soilihi-Hamza/calanques-api/internal/core/domain"
	"github.com/Msa-soilihi-Hamza/calanques-api/internal/infra/security"
	"github.com/Msa-soilihi-Hamza/calanques-api/internal/repository"
	"github.com/Msa-soilihi-Hamza/calanques-api/internal/transport/http/middleware"
	"github.com/Msa-soilihi-Hamza/calanques-api/internal/usecase"
)

// memUserRepo is an in-memory user store for endpoint tests.
type memUserRepo struct {
	users  map[int64]*domain.User
	nextID int64
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int64]*domain.User), nextID: 1}
}

func (r *memUserRepo) Create(_ context.Context, user domain.User) (*domain.User, error) {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return nil, repository.ErrDuplicate
		}
	}
	user.ID = r.nextID
	r.nextID++
	copied := user
	r.users[user.ID] = &copied
	return &user, nil
}

func (r *memUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	normalized := domain.NormalizeEmail(email)
	for _, user := range r.users {
		if user.Email == normalized {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) GetByRememberTokenHash(_ context.Context, hash string) (*domain.User, error) {
	for _, user := range r.users {
		if user.RememberTokenHash != nil && *user.RememberTokenHash == hash {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) UpdateActiveStatus(_ context.Context, id int64, active bool) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.IsActive = active
	return nil
}

func (r *memUserRepo) SetRememberToken(_ context.Context, id int64, tokenHash *string) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.RememberTokenHash = tokenHash
	return nil
}

func (r *memUserRepo) MarkEmailVerified(_ context.Context, id int64, verifiedAt time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	at := verifiedAt
	user.EmailVerifiedAt = &at
	return nil
}

func (r *memUserRepo) UpdatePassword(_ context.Context, id int64, passwordHash string, _ time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (r *memUserRepo) CountActiveAdmins(_ context.Context) (int, error) {
	count := 0
	for _, user := range r.users {
		if user.IsAdmin() && user.IsActive {
			count++
		}
	}
	return count, nil
}

// memTokenRepo is an in-memory verification token store for endpoint tests.
type memTokenRepo struct {
	tokens map[string]*domain.VerificationToken
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: make(map[string]*domain.VerificationToken)}
}

func (r *memTokenRepo) CreateVerification(_ context.Context, token domain.VerificationToken) error {
	copied := token
	r.tokens[token.ID] = &copied
	return nil
}

func (r *memTokenRepo) GetVerificationByHash(_ context.Context, hash string) (*domain.VerificationToken, error) {
	for _, token := range r.tokens {
		if token.TokenHash == hash {
			copied := *token
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memTokenRepo) ConsumeVerification(_ context.Context, id string) error {
	token, ok := r.tokens[id]
	if !ok || token.UsedAt != nil {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	token.UsedAt = &now
	return nil
}

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (plainHasher) Verify(password, encoded string) bool { return encoded == "hashed:"+password }

type authTestEnv struct {
	router *gin.Engine
	users  *memUserRepo
	tokens *memTokenRepo
}

func newAuthTestEnv(t *testing.T) *authTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	codec, err := security.NewTokenCodec(security.TokenCodecConfig{
		Secret:          "handler-test-secret",
		Issuer:          "calanques-api",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}

	log := zaptest.NewLogger(t)
	users := newMemUserRepo()
	tokens := newMemTokenRepo()
	policy := security.DefaultPasswordPolicy(0)

	authService := usecase.NewAuthService(users, codec, plainHasher{}, nil, log, false)
	registrationService := usecase.NewRegistrationService(users, tokens, plainHasher{}, policy, nil, log, 24*time.Hour)

	handler := NewAuthHandler(authService, registrationService, log,
		WithDevMode(true),
		WithRememberTokenTTL(30*24*time.Hour),
	)

	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api, AuthRouteOptions{
		AuthRequired: middleware.RequireAuth(authService),
	})

	return &authTestEnv{router: router, users: users, tokens: tokens}
}

func (env *authTestEnv) do(t *testing.T, method, path string, payload any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

func rememberCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == rememberCookieName {
			return cookie
		}
	}
	t.Fatalf("expected %s cookie in response", rememberCookieName)
	return nil
}

func TestRegisterEndpoint(t *testing.T) {
	env := newAuthTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/v1/auth/register", RegistrationRequest{
		Email:     "Visiteur@Parc-Calanques.FR",
		Password:  "Sormiou2026",
		FirstName: "Jean",
		LastName:  "Moulin",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp RegistrationResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}

	if resp.User.Email != "visiteur@parc-calanques.fr" {
		t.Fatalf("expected normalized email, got %q", resp.User.Email)
	}

	if resp.User.Role != string(domain.RoleUser) {
		t.Fatalf("expected user role, got %q", resp.User.Role)
	}

	if resp.VerificationToken == "" {
		t.Fatalf("expected dev-mode verification token in response")
	}

	// Same email with different casing conflicts.
	rr = env.do(t, http.MethodPost, "/api/v1/auth/register", RegistrationRequest{
		Email:     "visiteur@parc-calanques.fr",
		Password:  "Sormiou2026",
		FirstName: "Jean",
		LastName:  "Moulin",
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", rr.Code)
	}
}

func TestRegisterEndpointRejectsWeakPassword(t *testing.T) {
	env := newAuthTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/v1/auth/register", RegistrationRequest{
		Email:     "visiteur@parc-calanques.fr",
		Password:  "courte",
		FirstName: "Jean",
		LastName:  "Moulin",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for weak password, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestLoginEndpoint(t *testing.T) {
	env := newAuthTestEnv(t)

	env.do(t, http.MethodPost, "/api/v1/auth/register", RegistrationRequest{
		Email:     "visiteur@parc-calanques.fr",
		Password:  "Sormiou2026",
		FirstName: "Jean",
		LastName:  "Moulin",
	})

	rr := env.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{
		Email:    "visiteur@parc-calanques.fr",
		Password: "mauvais-mot-de-passe",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{
		Email:      "visiteur@parc-calanques.fr",
		Password:   "Sormiou2026",
		RememberMe: true,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var pair TokenPairResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &pair); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}

	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens in response")
	}

	if pair.TokenType != tokenTypeBearer {
		t.Fatalf("expected token type Bearer, got %q", pair.TokenType)
	}

	cookie := rememberCookie(t, rr)
	if cookie.Value == "" || !cookie.HttpOnly {
		t.Fatalf("expected non-empty http-only remember cookie")
	}
}

func TestLoginEndpointRejectsInactiveAccount(t *testing.T) {
	env := newAuthTestEnv(t)

	env.do(t, http.MethodPost, "/api/v1/auth/register", RegistrationRequest{
		Email:     "visiteur@parc-calanques.fr",
		Password:  "Sormiou2026",
		FirstName: "Jean",
		LastName:  "Moulin",
	})
	if err := env.users.UpdateActiveStatus(context.Background(), 1, false); err != nil {
		t.Fatalf("failed to deactivate user: %v", err)
	}

	rr := env.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{
		Email:    "visiteur@parc-calanques.fr",
		Password: "Sormiou2026",
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for inactive account, got %d", rr.Code)
	}
}

func TestRememberEndpointRotatesCookie(t *testing.T) {
	env := newAuthTestEnv(t)

	env.do(t, http.MethodPost, "/api/v1/auth/register", RegistrationRequest{
		Email:     "visiteur@parc-calanques.fr",
		Password:  "Sormiou2026",
		FirstName: "Jean",
		LastName:  "Moulin",
	})

	rr := env.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{
		Email:      "visiteur@parc-calanques.fr",
		Password:   "Sormiou2026",
		RememberMe: true,
	})
	first := rememberCookie(t, rr)

	rr = env.do(t, http.MethodPost, "/api/v1/auth/remember", nil, first)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on remember login, got %d: %s", rr.Code, rr.Body.String())
	}

	second := rememberCookie(t, rr)
	if second.Value == first.Value {
		t.Fatalf("expected remember cookie to rotate on use")
	}

	// The consumed token is no longer redeemable.
	rr = env.do(t, http.MethodPost, "/api/v1/auth/remember", nil, first)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on replayed remember token, got %d", rr.Code)
	}

	// The rotated token still is.
	rr = env.do(t, http.MethodPost, "/api/v1/auth/remember", nil, second)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on rotated remember token, got %d", rr.Code)
	}
}

func TestRememberEndpointWithoutCookie(t *testing.T) {
	env := newAuthTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/v1/auth/remember", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without remember cookie, got %d", rr.Code)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	env := newAuthTestEnv(t)

	env.do(t, http.MethodPost, "/api/v1/auth/register", RegistrationRequest{
		Email:     "visiteur@parc-calanques.fr",
		Password:  "Sormiou2026",
		FirstName: "Jean",
		LastName:  "Moulin",
	})

	rr := env.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{
		Email:    "visiteur@parc-calanques.fr",
		Password: "Sormiou2026",
	})

	var pair TokenPairResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &pair); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}

	rr = env.do(t, http.MethodPost, "/api/v1/auth/refresh", RefreshRequest{RefreshToken: pair.RefreshToken})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on refresh, got %d: %s", rr.Code, rr.Body.String())
	}

	// An access token is not accepted where a refresh token is expected.
	rr = env.do(t, http.MethodPost, "/api/v1/auth/refresh", RefreshRequest{RefreshToken: pair.AccessToken})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for access token on refresh, got %d", rr.Code)
	}
}

func TestLogoutEndpointClearsRememberToken(t *testing.T) {
	env := newAuthTestEnv(t)

	env.do(t, http.MethodPost, "/api/v1/auth/register", RegistrationRequest{
		Email:     "visiteur@parc-calanques.fr",
		Password:  "Sormiou2026",
		FirstName: "Jean",
		LastName:  "Moulin",
	})

	rr := env.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{
		Email:      "visiteur@parc-calanques.fr",
		Password:   "Sormiou2026",
		RememberMe: true,
	})

	var pair TokenPairResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &pair); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	cookie := rememberCookie(t, rr)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	logoutRR := httptest.NewRecorder()
	env.router.ServeHTTP(logoutRR, req)

	if logoutRR.Code != http.StatusOK {
		t.Fatalf("expected 200 on logout, got %d: %s", logoutRR.Code, logoutRR.Body.String())
	}

	// The remembered session is revoked server-side.
	rr = env.do(t, http.MethodPost, "/api/v1/auth/remember", nil, cookie)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rr.Code)
	}
}

func TestVerifyEmailEndpoint(t *testing.T) {
	env := newAuthTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/v1/auth/register", RegistrationRequest{
		Email:     "visiteur@parc-calanques.fr",
		Password:  "Sormiou2026",
		FirstName: "Jean",
		LastName:  "Moulin",
	})

	var resp RegistrationResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}

	rr = env.do(t, http.MethodPost, "/api/v1/auth/verify-email", VerifyEmailRequest{Token: resp.VerificationToken})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on verification, got %d: %s", rr.Code, rr.Body.String())
	}

	user, err := env.users.GetByID(context.Background(), resp.User.ID)
	if err != nil {
		t.Fatalf("failed to load user: %v", err)
	}
	if !user.IsEmailVerified() {
		t.Fatalf("expected account to be marked verified")
	}

	// Verification tokens are single-use.
	rr = env.do(t, http.MethodPost, "/api/v1/auth/verify-email", VerifyEmailRequest{Token: resp.VerificationToken})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on reused token, got %d", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/api/v1/auth/verify-email", VerifyEmailRequest{Token: "jeton-inconnu"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on unknown token, got %d", rr.Code)
	}
}
