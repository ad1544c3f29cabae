package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const memberIDKey = "member_id"

// JWTAuth validates an HS256 bearer token and stores its subject as the member id.
func JWTAuth(secret string) echo.MiddlewareFunc {
	keyFunc := func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			}
			scheme, raw, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(raw) == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authorization header must be Bearer {token}"})
			}

			claims := &jwt.RegisteredClaims{}
			_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, keyFunc, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil {
				log.Warn().Err(err).Str("path", c.Path()).Msg("auth: rejected token")
				msg := "invalid token"
				if errors.Is(err, jwt.ErrTokenExpired) {
					msg = "token has expired"
				}
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": msg})
			}
			if claims.Subject == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "token has no subject"})
			}

			SetMemberID(c, claims.Subject)
			return next(c)
		}
	}
}

// MemberID returns the authenticated member, or "" outside JWTAuth.
func MemberID(c echo.Context) string {
	v, _ := c.Get(memberIDKey).(string)
	return v
}

func SetMemberID(c echo.Context, memberID string) { c.Set(memberIDKey, memberID) }

// IssueToken signs an HS256 token for memberID valid for ttl.
func IssueToken(secret, memberID string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   memberID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
