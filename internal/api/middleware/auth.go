// Package middleware holds the gin middleware and response helpers shared by the API handlers.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/trailquest/trailquest/internal/models"
	"github.com/trailquest/trailquest/pkg/logger"
)

const viewerKey = "viewer"

// UserEnsurer creates the local user row for an authenticated identity.
type UserEnsurer interface {
	Ensure(viewer models.Viewer) (*models.User, error)
}

// Claims are the bearer token claims issued by the identity provider.
// The subject carries the numeric user ID.
type Claims struct {
	Email string `json:"email"`
	Admin bool   `json:"admin"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for viewer.
func IssueToken(secret, issuer string, viewer models.Viewer, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: viewer.Email,
		Admin: viewer.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(viewer.UserID), 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates a token and returns the viewer it identifies.
func ParseToken(secret, issuer, token string) (models.Viewer, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	claims := &Claims{}
	_, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return models.Viewer{}, err
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || id == 0 {
		return models.Viewer{}, fmt.Errorf("invalid subject %q", claims.Subject)
	}

	return models.Viewer{UserID: uint(id), Email: claims.Email, IsAdmin: claims.Admin}, nil
}

// Auth rejects requests without a valid bearer token and stores the viewer on the context.
func Auth(secret, issuer string, users UserEnsurer, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		viewer, err := ParseToken(secret, issuer, token)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			log.Debug().Err(err).Msg("Rejected bearer token")
			abortUnauthorized(c, msg)
			return
		}

		if _, err := users.Ensure(viewer); err != nil {
			log.Error().Err(err).Uint("user_id", viewer.UserID).Msg("Failed to ensure user")
			ErrorResponse(c, err)
			c.Abort()
			return
		}

		c.Set(viewerKey, viewer)
		c.Next()
	}
}

// CurrentViewer returns the authenticated viewer set by Auth.
func CurrentViewer(c *gin.Context) models.Viewer {
	if v, ok := c.Get(viewerKey); ok {
		if viewer, ok := v.(models.Viewer); ok {
			return viewer
		}
	}
	return models.Viewer{}
}

// SetViewer stores viewer on the context. Used by tests and trusted internal routes.
func SetViewer(viewer models.Viewer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(viewerKey, viewer)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":     message,
		"code":      "unauthorized",
		"timestamp": time.Now().UTC(),
	})
}
