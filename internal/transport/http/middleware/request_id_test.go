package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appLogger "github.com/Msa-soilihi-Hamza/calanques-api/internal/infra/logger"
)

func newRequestIDRouter(captured *string) *gin.Engine {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/ping", func(c *gin.Context) {
		*captured = requestIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return router
}

func TestRequestIDGeneratedWhenAbsent(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var fromContext string
	router := newRequestIDRouter(&fromContext)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))

	echoed := rr.Header().Get(requestIDHeader)
	if _, err := uuid.Parse(echoed); err != nil {
		t.Fatalf("expected a UUID request id, got %q", echoed)
	}
	if fromContext != echoed {
		t.Fatalf("context id %q does not match response header %q", fromContext, echoed)
	}
}

func TestRequestIDHonorsValidInboundHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var fromContext string
	router := newRequestIDRouter(&fromContext)

	inbound := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, inbound)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if got := rr.Header().Get(requestIDHeader); got != inbound {
		t.Fatalf("expected inbound id %q to be kept, got %q", inbound, got)
	}
	if fromContext != inbound {
		t.Fatalf("expected inbound id on context, got %q", fromContext)
	}
}

func TestRequestIDReplacesMalformedInboundHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var fromContext string
	router := newRequestIDRouter(&fromContext)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "not-a-uuid\nInjected: header")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	echoed := rr.Header().Get(requestIDHeader)
	if _, err := uuid.Parse(echoed); err != nil {
		t.Fatalf("expected malformed inbound id to be replaced with a UUID, got %q", echoed)
	}
}

// Keep the logger's context lookup honest about foreign context values.
func TestRequestIDFromContextIgnoresForeignValues(t *testing.T) {
	if got := requestIDFromContext(nil); got != "" {
		t.Fatalf("expected empty id for nil context, got %q", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if got := requestIDFromContext(req.Context()); got != "" {
		t.Fatalf("expected empty id for untagged context, got %q", got)
	}

	ctx := context.WithValue(context.Background(), appLogger.RequestIDKey{}, 42)
	if got := requestIDFromContext(ctx); got != "" {
		t.Fatalf("expected empty id for non-string value, got %q", got)
	}
}
