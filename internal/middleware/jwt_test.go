package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func identityApp() *fiber.App {
	app := fiber.New()
	app.Use(JWTProtected("secret"))
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.SendString(ParticipantKey(c) + "|" + normalizeRole(c.Locals(localUserRole)))
	})
	return app
}

func TestJWTProtectedBindsParticipantKey(t *testing.T) {
	cases := map[string]struct {
		claims jwt.MapClaims
		want   string
	}{
		"prn":     {claims: jwt.MapClaims{"prn": "PRN001", "sub": "42", "role": "Student"}, want: "PRN001|student"},
		"subject": {claims: jwt.MapClaims{"sub": "user-7"}, want: "user-7|"},
		"numeric": {claims: jwt.MapClaims{"user_id": float64(9), "roles": []interface{}{"admin"}}, want: "9|admin"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			tc.claims["exp"] = time.Now().Add(time.Hour).Unix()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, "secret", tc.claims))

			resp, err := identityApp().Test(req)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusOK, resp.StatusCode)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			require.Equal(t, tc.want, string(body))
		})
	}
}

func TestJWTProtectedRejectsInvalidTokens(t *testing.T) {
	missing := httptest.NewRequest(http.MethodGet, "/me", nil)
	resp, err := identityApp().Test(missing)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	wrongSecret := httptest.NewRequest(http.MethodGet, "/me", nil)
	wrongSecret.Header.Set("Authorization", "Bearer "+signToken(t, "other", jwt.MapClaims{"prn": "PRN001"}))
	resp, err = identityApp().Test(wrongSecret)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	anonymous := httptest.NewRequest(http.MethodGet, "/me", nil)
	anonymous.Header.Set("Authorization", "Bearer "+signToken(t, "secret", jwt.MapClaims{"role": "admin"}))
	resp, err = identityApp().Test(anonymous)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
