package middlewares

import (
	"strconv"

	"bitbucket.org/lawdesk/crm_backend/models"
	"bitbucket.org/lawdesk/crm_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionMiddleware copies per-request identity headers into the context:
// a correlation id (minted when the caller sent none), the browser session
// key used to detect superseded report searches, the caller's timezone, and
// the acting employee id.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		correlationId := c.Request.Header.Get("X-Correlation-Id")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId)
		c.Header("X-Correlation-Id", correlationId)

		if clientKey := c.Request.Header.Get("X-Client-Key"); clientKey != "" {
			ctx = utils.SetClientKeyInContext(ctx, clientKey)
		}

		timezone := c.Request.Header.Get("X-Timezone")
		if timezone == "" {
			timezone = models.DefaultTimezone
		}
		ctx = utils.SetTimezoneInContext(ctx, timezone)

		if rawUserId := c.Request.Header.Get("X-Employee-Id"); rawUserId != "" {
			if userId, err := strconv.Atoi(rawUserId); err == nil {
				ctx = utils.SetUserIdInContext(ctx, userId)
			}
		}
		if userName := c.Request.Header.Get("X-Employee-Name"); userName != "" {
			ctx = utils.SetUserNameInContext(ctx, userName)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
