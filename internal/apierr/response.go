package apierr

import (
	"github.com/gin-gonic/gin"

	"github.com/portfolio-site/portfolio-api/pkg/logger"
)

// Body is the JSON shape of every error response.
type Body struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Write aborts the request with err rendered as a Body. Server-side faults are
// logged with their cause; the response only carries the safe message.
func Write(c *gin.Context, err error) {
	k := KindOf(err)
	if Status(k) >= 500 {
		logger.Errorw("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
	}
	c.AbortWithStatusJSON(Status(k), Body{Error: Message(err), Code: k.String()})
}
