package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/arena-go-api/internal/utils"
)

const (
	localParticipantKey = "participant_key"
	localUserRole       = "user_role"
)

// JWTProtected validates HMAC bearer tokens and binds the participant identity to the request.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" && c.Query("access_token") != "" {
			// websocket and event-stream clients cannot set headers
			authorization = "Bearer " + c.Query("access_token")
		}
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		key := participantKeyFromClaims(claims)
		if key == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "token carries no participant identity")
		}
		c.Locals(localParticipantKey, key)
		if role := roleFromClaims(claims); role != "" {
			c.Locals(localUserRole, role)
		}

		return c.Next()
	}
}

// ParticipantKey returns the authenticated participant key, or "" when absent.
func ParticipantKey(c *fiber.Ctx) string {
	if v, ok := c.Locals(localParticipantKey).(string); ok {
		return v
	}
	return ""
}

// participantKeyFromClaims prefers the PRN and falls back to the user identifier.
func participantKeyFromClaims(claims jwt.MapClaims) string {
	for _, key := range []string{"prn", "participant_key", "sub", "user_id", "id"} {
		if value, ok := claims[key]; ok {
			if normalized := normalizeIdentity(value); normalized != "" {
				return normalized
			}
		}
	}
	return ""
}

func normalizeIdentity(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v < 0 {
			return ""
		}
		return strconv.FormatUint(uint64(v), 10)
	case int:
		if v < 0 {
			return ""
		}
		return strconv.Itoa(v)
	default:
		return ""
	}
}

func roleFromClaims(claims jwt.MapClaims) string {
	for _, key := range []string{"role", "roles"} {
		if value, ok := claims[key]; ok {
			if role := normalizeRole(value); role != "" {
				return role
			}
		}
	}
	return ""
}

func normalizeRole(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				if role := strings.ToLower(strings.TrimSpace(str)); role != "" {
					return role
				}
			}
		}
	}
	return ""
}
