package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/gradesync-go-api/internal/utils"
)

// Claims carried in access tokens issued to grading staff. ExaminerID is
// the primary identity; older tokens only carry the numeric subject.
type Claims struct {
	ExaminerID uint   `json:"examiner_id"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// UserID resolves the authenticated user's id from the claims.
func (c *Claims) UserID() uint {
	if c.ExaminerID > 0 {
		return c.ExaminerID
	}
	if c.Subject != "" {
		if parsed, err := strconv.ParseUint(c.Subject, 10, 64); err == nil {
			return uint(parsed)
		}
	}
	return 0
}

// JWTProtected returns a middleware that validates bearer tokens and puts
// the examiner identity and role into the request locals.
func JWTProtected(secret string) fiber.Handler {
	keyfunc := func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}

	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c.Get("Authorization"))
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "missing bearer token")
		}

		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, keyfunc,
			jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(*Claims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		if userID := claims.UserID(); userID > 0 {
			c.Locals("user_id", userID)
		}
		if role := strings.ToLower(strings.TrimSpace(claims.Role)); role != "" {
			c.Locals("user_role", role)
		}

		return c.Next()
	}
}

func bearerToken(authorization string) string {
	const prefix = "bearer "
	if len(authorization) <= len(prefix) {
		return ""
	}
	if !strings.EqualFold(authorization[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(authorization[len(prefix):])
}
