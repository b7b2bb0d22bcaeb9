package gateway

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	. "github.com/pactline/escrowd/src/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/lestrrat-go/jwx/jwa"
	"github.com/lestrrat-go/jwx/jwt"
)

const (
	ctxUserID   = "user_id"
	ctxElevated = "elevated"
	ctxInternal = "internal"

	internalSecretHeader = "X-Internal-Secret"
	elevatedRole         = "elevated"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrBadToken     = errors.New("invalid bearer token")
)

// Websocket clients cannot set headers, so the token query param is
// accepted as a fallback.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

// authUser verifies the user's bearer token and stores the subject as the
// acting user id. The role claim marks elevated operators.
func (self *Server) authUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			self.monitor.GetReport().Gateway.Errors.AuthFailures.Inc()
			LOGE(c, ErrMissingToken, http.StatusUnauthorized).Debug("Request without a token")
			return
		}

		token, err := jwt.Parse([]byte(raw),
			jwt.WithValidate(true),
			jwt.WithVerify(jwa.HS256, []byte(self.Config.Gateway.JwtSecret)))
		if err != nil || token.Subject() == "" {
			self.monitor.GetReport().Gateway.Errors.AuthFailures.Inc()
			LOGE(c, ErrBadToken, http.StatusUnauthorized).WithError(err).Debug("Rejected token")
			return
		}

		c.Set(ctxUserID, token.Subject())
		if role, ok := token.Get("role"); ok {
			c.Set(ctxElevated, role == elevatedRole)
		}

		c.Next()
	}
}

// authInternalOrUser accepts either the internal secret header or a user
// token. Backoffice services fund and settle deals without a user context.
func (self *Server) authInternalOrUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := c.GetHeader(internalSecretHeader)
		if secret != "" && self.Config.Gateway.InternalSecret != "" &&
			subtle.ConstantTimeCompare([]byte(secret), []byte(self.Config.Gateway.InternalSecret)) == 1 {
			c.Set(ctxInternal, true)
			c.Next()
			return
		}

		self.authUser()(c)
	}
}

// authOrchestrator guards the callback and polling endpoints with the
// shared token. Runs before any body parsing.
func (self *Server) authOrchestrator() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" || self.Config.Orchestrator.CallbackToken == "" ||
			subtle.ConstantTimeCompare([]byte(raw), []byte(self.Config.Orchestrator.CallbackToken)) != 1 {
			self.monitor.GetReport().Gateway.Errors.AuthFailures.Inc()
			LOGE(c, ErrBadToken, http.StatusUnauthorized).Warn("Rejected orchestrator request")
			return
		}

		c.Next()
	}
}

func userId(c *gin.Context) string {
	return c.GetString(ctxUserID)
}
