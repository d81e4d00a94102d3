package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/dto"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errInvalidAuthorization = errors.New("authorization header must be a bearer token")
	errAuthNotConfigured    = errors.New("admin authentication is not configured")
)

// Auth validates HS256 bearer tokens on admin routes
type Auth struct {
	secret []byte
	parser *jwt.Parser
	log    *zap.Logger
}

// NewAuth creates the admin authenticator; with an empty secret every token is rejected
func NewAuth(secret string, log *zap.Logger) *Auth {
	return &Auth{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
		log:    log,
	}
}

// Enabled reports whether tokens are checked
func (a *Auth) Enabled() bool {
	return len(a.secret) > 0
}

// Validate parses and verifies the Authorization header value
func (a *Auth) Validate(header string) (*jwt.RegisteredClaims, error) {
	if !a.Enabled() {
		return nil, errAuthNotConfigured
	}
	if header == "" {
		return nil, errMissingAuthorization
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, errInvalidAuthorization
	}

	claims := &jwt.RegisteredClaims{}
	_, err := a.parser.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Middleware rejects requests without a valid token
func (a *Auth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := a.Validate(c.GetHeader("Authorization"))
		if err != nil {
			a.log.Warn("Unauthorized admin request",
				zap.String("path", c.FullPath()),
				zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "unauthorized",
				Message: err.Error(),
			})
			return
		}

		c.Set("subject", claims.Subject)
		c.Next()
	}
}
