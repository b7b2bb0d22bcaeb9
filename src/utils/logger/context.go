package logger

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Gin context key the request correlation id is stored under.
const RequestIdKey = "request_id"

// LOG returns a request scoped logger. Handlers dot-import this package so
// log lines read the same in every endpoint.
func LOG(c *gin.Context) *logrus.Entry {
	entry := logger.WithFields(logrus.Fields{
		"module": "escrowd.gateway",
		"method": c.Request.Method,
		"path":   c.FullPath(),
	})
	if id := c.GetString(RequestIdKey); id != "" {
		entry = entry.WithField(RequestIdKey, id)
	}
	return entry
}

// LOGE aborts the request with the given status and returns a logger wired
// with the error. Server side failures never leak internals to the client.
func LOGE(c *gin.Context, err error, status int) *logrus.Entry {
	message := http.StatusText(status)
	if status < http.StatusInternalServerError && err != nil {
		message = err.Error()
	}

	c.AbortWithStatusJSON(status, gin.H{"error": message})

	return LOG(c).WithError(err)
}
