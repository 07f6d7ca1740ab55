package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Darkthan/AffichApp/internal/auth"
	"github.com/Darkthan/AffichApp/internal/handlers"
	middlewareCustom "github.com/Darkthan/AffichApp/internal/middleware"
	"github.com/Darkthan/AffichApp/internal/repositories"
	"github.com/Darkthan/AffichApp/internal/routes"
	"github.com/Darkthan/AffichApp/internal/services"
	pkghttp "github.com/Darkthan/AffichApp/pkg/http"
	pkglogger "github.com/Darkthan/AffichApp/pkg/logger"
)

// TestServer wraps httptest.Server with the full application wiring backed
// by a throwaway data directory.
type TestServer struct {
	Server   *httptest.Server
	Users    *repositories.UserRepository
	Fail2Ban *services.Fail2BanService
	logger   *slog.Logger
}

// NewTestServer builds the production router over flat-file stores rooted
// at dataDir.
func NewTestServer(dataDir string) *TestServer {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	auditLogger := pkglogger.NewAuditLogger(logger)

	userRepo := repositories.NewUserRepository(dataDir, logger)
	fail2banRepo := repositories.NewFail2BanRepository(dataDir, logger)

	tokenManager := auth.NewTokenManager("integration-test-secret", time.Hour)
	fail2banService := services.NewFail2BanService(fail2banRepo, logger, auditLogger)
	userService := services.NewUserService(userRepo, logger)
	authService := services.NewAuthService(userRepo, fail2banService, tokenManager, logger, auditLogger)

	ipConfig := &pkghttp.IPConfig{TrustedProxies: []string{}}
	authHandler := handlers.NewAuthHandler(authService, userService, ipConfig)
	userHandler := handlers.NewUserHandler(userService)
	fail2banHandler := handlers.NewFail2BanHandler(fail2banService)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: "test"}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(r, authHandler, userHandler, fail2banHandler, tokenManager, userRepo)

	return &TestServer{
		Server:   httptest.NewServer(r),
		Users:    userRepo,
		Fail2Ban: fail2banService,
		logger:   logger,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestWithAuth makes an authenticated HTTP request with a bearer token
func (ts *TestServer) RequestWithAuth(method, path, token string, body interface{}) (*http.Response, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + token,
	}
	return ts.Request(method, path, body, headers)
}

// ParseJSONResponse parses JSON response body into target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// Login performs a login as the given client IP and returns the raw
// response. The forwarded header stands in for the proxy in front of the
// app.
func (ts *TestServer) Login(email, password, clientIP string) (*http.Response, error) {
	return ts.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, map[string]string{
		"X-Forwarded-For": clientIP,
	})
}

// LoginToken logs in and returns the session token, or "" on non-200.
func (ts *TestServer) LoginToken(email, password, clientIP string) (string, error) {
	resp, err := ts.Login(email, password, clientIP)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return "", nil
	}

	var loginResp struct {
		Token string `json:"token"`
	}
	if err := ParseJSONResponse(resp, &loginResp); err != nil {
		return "", err
	}
	return loginResp.Token, nil
}
