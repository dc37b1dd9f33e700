package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func roleApp(role interface{}) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if role != nil {
			c.Locals(localUserRole, role)
		}
		return c.Next()
	})
	app.Use(RequireRole(RoleAdmin, RoleTeacher))
	app.Get("/results", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRequireRoleAllowsReviewers(t *testing.T) {
	for _, role := range []interface{}{"admin", " Teacher ", []interface{}{"teacher"}} {
		resp, err := roleApp(role).Test(httptest.NewRequest(http.MethodGet, "/results", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
}

func TestRequireRoleRejectsParticipants(t *testing.T) {
	for _, role := range []interface{}{"student", nil} {
		resp, err := roleApp(role).Test(httptest.NewRequest(http.MethodGet, "/results", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	}
}
