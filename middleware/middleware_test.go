package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xraph/forge"

	"github.com/xraph/aegis"
	"github.com/xraph/aegis/store/memory"
)

// forgeContext is an alias so the embedded field name does not collide
// with the Context() method below.
type forgeContext = forge.Context

// anonymousContext carries no actor and no Forge user ID.
type anonymousContext struct {
	forgeContext
	rec *httptest.ResponseRecorder
}

func (c *anonymousContext) Context() context.Context      { return context.Background() }
func (c *anonymousContext) Response() http.ResponseWriter { return c.rec }
func (c *anonymousContext) SetHeader(key, value string)   { c.rec.Header().Set(key, value) }

func TestAnnotateRequest(t *testing.T) {
	var meta aegis.RequestMeta
	h := AnnotateRequest(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		meta = aegis.RequestMetaFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:52114"
	req.Header.Set("User-Agent", "test-agent/1.0")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if meta.IPAddress != "203.0.113.7" {
		t.Fatalf("expected IP 203.0.113.7, got %q", meta.IPAddress)
	}
	if meta.UserAgent != "test-agent/1.0" {
		t.Fatalf("expected user agent test-agent/1.0, got %q", meta.UserAgent)
	}
}

func TestAnnotateRequestForwardedFor(t *testing.T) {
	var meta aegis.RequestMeta
	h := AnnotateRequest(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		meta = aegis.RequestMetaFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:80"
	req.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	// The first hop is the client; later hops are proxies.
	if meta.IPAddress != "198.51.100.4" {
		t.Fatalf("expected forwarded IP 198.51.100.4, got %q", meta.IPAddress)
	}
}

func TestRequireRejectsAnonymousBeforeEngine(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	eng, err := aegis.NewEngine(aegis.WithStore(st))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	rec := httptest.NewRecorder()
	called := false
	handler := Require(eng, "content", "read")(func(forge.Context) error {
		called = true
		return nil
	})
	if err := handler(&anonymousContext{rec: rec}); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	if called {
		t.Fatal("expected the wrapped handler not to run")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "authentication required") {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}

	// No permission check ran, so nothing reached the audit log.
	entries, err := st.ListEntries(ctx, nil)
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty audit log, got %d entries", len(entries))
	}
}
