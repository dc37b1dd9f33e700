package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/arena-go-api/internal/config"
	"github.com/noah-isme/arena-go-api/internal/dto"
	"github.com/noah-isme/arena-go-api/internal/handler"
	"github.com/noah-isme/arena-go-api/internal/middleware"
	"github.com/noah-isme/arena-go-api/internal/router"
	"github.com/noah-isme/arena-go-api/internal/session"
)

const secret = "router-secret"

type emptyResults struct{}

func (emptyResults) Finalize(context.Context, session.Outcome) (string, error) { return "", nil }

func (emptyResults) ListByContest(context.Context, string) ([]dto.ResultResponse, error) {
	return []dto.ResultResponse{}, nil
}

func newRouterApp() *fiber.App {
	app := fiber.New()
	router.Register(app, config.Config{AppName: "Arena"}, router.Dependencies{
		ResultHandler: handler.NewResultHandler(emptyResults{}, nil, time.Second, zerolog.Nop()),
		JWTMiddleware: middleware.JWTProtected(secret),
	})
	return app
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"prn":  "PRN0001",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestRegisterPublicRoutes(t *testing.T) {
	app := newRouterApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "Arena", resp.Header.Get("X-Application"))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAdminRoutesRequireReviewerRole(t *testing.T) {
	app := newRouterApp()
	path := "/api/v1/admin/contests/c-1/results"

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", bearer(t, "student"))
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", bearer(t, "teacher"))
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}
