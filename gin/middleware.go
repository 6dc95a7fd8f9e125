package gin

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fwojciec/secretary"
	"github.com/fwojciec/secretary/lifecycle"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	requestIDKey = "requestId"
	identityKey  = "identity"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Writer.Header().Set("X-Request-Id", id)
		c.Set(requestIDKey, id)
		c.Next()
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path += "?" + raw
		}
		c.Next()
		s.log.WithFields(logrus.Fields{
			"request_id": c.GetString(requestIDKey),
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"client":     c.ClientIP(),
			"method":     c.Request.Method,
			"path":       path,
		}).Info("http request")
	}
}

// authenticate accepts a bearer token only when it verifies and names the
// user the session is currently bound to.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearer(c.GetHeader("Authorization"))
		if !ok {
			s.fail(c, fmt.Errorf("missing bearer token: %w", secretary.ErrAuthentication))
			return
		}
		id, err := s.tokens.Verify(token)
		if err != nil {
			s.fail(c, err)
			return
		}
		user := s.session.User()
		if s.session.State() != lifecycle.StateAuthenticated || user == nil || user.ID != id.ID {
			s.fail(c, fmt.Errorf("token does not match the signed-in user: %w", secretary.ErrAuthentication))
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

func bearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
