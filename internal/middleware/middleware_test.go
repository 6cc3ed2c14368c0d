package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arzan03/natours/internal/apperror"
	"github.com/arzan03/natours/internal/config"
	"github.com/arzan03/natours/internal/models"
)

func newApp(development bool) *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: ErrorHandler(development, zap.NewNop())})
}

func doJSON(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(body) > 0 {
		require.NoError(t, json.Unmarshal(body, &out), string(body))
	}
	return resp.StatusCode, out
}

func TestErrorHandlerProduction(t *testing.T) {
	app := newApp(false)
	app.Get("/operational", func(c *fiber.Ctx) error { return apperror.NotFound("No tour found with that ID") })
	app.Get("/bug", func(c *fiber.Ctx) error { return errors.New("nil pointer somewhere") })

	status, body := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/operational", nil))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, map[string]any{"status": "fail", "message": "No tour found with that ID"}, body)

	status, body = doJSON(t, app, httptest.NewRequest(http.MethodGet, "/bug", nil))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, map[string]any{"status": "error", "message": apperror.GenericMessage}, body)
}

func TestErrorHandlerDevelopment(t *testing.T) {
	app := newApp(true)
	app.Get("/bug", func(c *fiber.Ctx) error { return errors.New("nil pointer somewhere") })

	status, body := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/bug", nil))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "nil pointer somewhere", body["message"])
	assert.Contains(t, body["stack"], "TestErrorHandlerDevelopment")
}

func TestNotFound(t *testing.T) {
	app := newApp(false)
	app.Use(NotFound)

	status, body := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Can't find /api/v1/nowhere on this server!", body["message"])
}

type stubAuth map[string]*models.User

func (s stubAuth) Authenticate(_ context.Context, token string) (*models.User, error) {
	if u, ok := s[token]; ok {
		return u, nil
	}
	return nil, apperror.Unauthorized(apperror.MsgInvalidToken)
}

func TestProtectAndRestrictTo(t *testing.T) {
	auth := stubAuth{
		"admin-token": {Name: "Admin", Role: models.RoleAdmin},
		"user-token":  {Name: "User", Role: models.RoleUser},
	}
	app := newApp(false)
	app.Get("/admin", Protect(auth), RestrictTo(models.RoleAdmin), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"name": CurrentUser(c).Name})
	})

	tests := []struct {
		name    string
		header  string
		cookie  string
		status  int
		message string
	}{
		{"no token", "", "", http.StatusUnauthorized, "You are not logged in! Please log in to get access."},
		{"not bearer", "Basic abc", "", http.StatusUnauthorized, "You are not logged in! Please log in to get access."},
		{"bad token", "Bearer nope", "", http.StatusUnauthorized, apperror.MsgInvalidToken},
		{"wrong role", "Bearer user-token", "", http.StatusForbidden, "You do not have permission to perform this action!"},
		{"admin", "Bearer admin-token", "", http.StatusOK, ""},
		{"cookie", "", "admin-token", http.StatusOK, ""},
		{"logged out cookie", "", "loggedout", http.StatusUnauthorized, "You are not logged in! Please log in to get access."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "jwt", Value: tt.cookie})
			}
			status, body := doJSON(t, app, req)
			assert.Equal(t, tt.status, status)
			if tt.message != "" {
				assert.Equal(t, tt.message, body["message"])
			} else {
				assert.Equal(t, "Admin", body["name"])
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	app := newApp(false)
	app.Use(Sanitize())
	app.Post("/echo", func(c *fiber.Ctx) error {
		var payload map[string]any
		if err := json.Unmarshal(c.Body(), &payload); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"body": payload, "query": string(c.Context().QueryArgs().QueryString())})
	})

	req := httptest.NewRequest(http.MethodPost, "/echo?price[$gt]=1&name=x", strings.NewReader(`{
		"email": {"$gt": ""},
		"name": "<script>alert(1)</script>Jonas <b>S</b>",
		"a.b": 1,
		"password": "<pass>word",
		"nested": [{"$where": "1"}, "fine"]
	}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	status, out := doJSON(t, app, req)
	require.Equal(t, http.StatusOK, status)

	body := out["body"].(map[string]any)
	assert.Equal(t, map[string]any{}, body["email"])
	assert.Equal(t, "Jonas S", body["name"])
	assert.NotContains(t, body, "a.b")
	assert.Equal(t, "<pass>word", body["password"])
	assert.Equal(t, []any{map[string]any{}, "fine"}, body["nested"])
	assert.Equal(t, "name=x", out["query"])
}

func TestBodyLimit(t *testing.T) {
	app := newApp(false)
	app.Use(BodyLimit(16))
	app.Post("/", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name": "far too long for the limit"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	status, _ := doJSON(t, app, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	status, _ = doJSON(t, app, req)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestRateLimiter(t *testing.T) {
	app := newApp(false)
	app.Use(RateLimiter(config.RateLimitConfig{Max: 2, Window: time.Hour}, nil))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })

	for i := 0; i < 2; i++ {
		status, _ := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusNoContent, status)
	}
	status, body := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "Too many requests from this IP, please try again in an hour!", body["message"])
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "natours")
	app := newApp(false)
	app.Use(m.Handler())
	app.Get("/tours/:id", func(c *fiber.Ctx) error { return apperror.NotFound("missing") })
	app.Get("/metrics", m.Endpoint())

	status, _ := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/tours/abc", nil))
	require.Equal(t, http.StatusNotFound, status)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	text, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(text), `natours_http_requests_total{method="GET",route="/tours/:id",status="404"} 1`)
}
