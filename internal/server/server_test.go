package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/config"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/repository"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/service"
	"golang.org/x/crypto/bcrypt"
)

func newTestServer(t *testing.T, enableAccounts bool) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "FirstPage.html"), []byte("<h1>Bakery</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "style.css"), []byte("body{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:      "127.0.0.1",
			Port:      0,
			StaticDir: dir,
			IndexFile: "FirstPage.html",
		},
		Orders: config.OrdersConfig{
			IDPrefix:             "FL",
			DefaultPaymentMethod: "UPI",
			ListLimit:            200,
		},
		Features: config.FeatureFlags{EnableAccounts: enableAccounts},
	}

	store := repository.NewMemoryStore()
	orderService := service.NewOrderService(store.Orders(), nil, nil, cfg.Orders)
	accountService := service.NewAccountService(store.Accounts(), bcrypt.MinCost)

	return New(handlers.NewHandlers(orderService, accountService, store), cfg)
}

func serve(s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(t, true)

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		expected int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"ready", http.MethodGet, "/ready", "", http.StatusOK},
		{"live", http.MethodGet, "/live", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"list orders", http.MethodGet, "/api/orders", "", http.StatusOK},
		{"create order", http.MethodPost, "/api/orders", `{"product":"Croissant","quantity":2,"totalPrice":5.0,"customer":{"name":"A","phone":"123","address":"X"}}`, http.StatusCreated},
		{"payment unknown", http.MethodPost, "/api/orders/nope/payment", `{"status":"paid"}`, http.StatusNotFound},
		{"create account", http.MethodPost, "/create", `{"username":"u","password":"p"}`, http.StatusOK},
		{"login", http.MethodPost, "/login", `{"username":"u","password":"p"}`, http.StatusOK},
		{"unknown path", http.MethodGet, "/nothing-here", "", http.StatusNotFound},
		{"unknown post", http.MethodPost, "/nothing-here", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(s, tt.method, tt.path, tt.body, map[string]string{"Content-Type": "application/json"})
			if w.Code != tt.expected {
				t.Errorf("Expected status %d, got %d: %s", tt.expected, w.Code, w.Body.String())
			}
		})
	}
}

func TestServer_AccountsDisabled(t *testing.T) {
	s := newTestServer(t, false)

	w := serve(s, http.MethodPost, "/create", `{"username":"u","password":"p"}`, map[string]string{"Content-Type": "application/json"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestServer_Static(t *testing.T) {
	s := newTestServer(t, true)

	w := serve(s, http.MethodGet, "/", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Bakery") {
		t.Errorf("Expected landing page, got %q", w.Body.String())
	}

	w = serve(s, http.MethodGet, "/style.css", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "body{}" {
		t.Errorf("Expected stylesheet, got %q", w.Body.String())
	}
}

func TestServer_CORS(t *testing.T) {
	s := newTestServer(t, true)

	w := serve(s, http.MethodGet, "/api/orders", "", map[string]string{"Origin": "http://example.com"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected Access-Control-Allow-Origin '*', got %q", got)
	}

	w = serve(s, http.MethodOptions, "/api/orders", "", map[string]string{
		"Origin":                        "http://example.com",
		"Access-Control-Request-Method": http.MethodPost,
	})
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected preflight status 204, got %d", w.Code)
	}
}

func TestServer_RequestID(t *testing.T) {
	s := newTestServer(t, true)

	w := serve(s, http.MethodGet, "/health", "", map[string]string{RequestIDHeader: "req-123"})
	if got := w.Header().Get(RequestIDHeader); got != "req-123" {
		t.Errorf("Expected request ID 'req-123', got %q", got)
	}

	w = serve(s, http.MethodGet, "/health", "", nil)
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("Expected a generated request ID")
	}
}

func TestServer_Addr(t *testing.T) {
	s := newTestServer(t, true)

	if s.httpServer.Addr != "127.0.0.1:0" {
		t.Errorf("Expected addr '127.0.0.1:0', got %q", s.httpServer.Addr)
	}
}
