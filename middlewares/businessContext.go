package middlewares

import (
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/budget_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BusinessContextMiddleware resolves the tenant for the request. Every budget
// route is scoped to one business; the id rides the X-Business-Id header and
// lands in the request context, where the model layer picks it up. The planner
// identity headers are optional and only feed log fields.
func BusinessContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId := c.GetHeader("X-Business-Id")
		if businessId == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "X-Business-Id header is required"})
			return
		}
		if _, err := uuid.Parse(businessId); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "X-Business-Id must be a uuid"})
			return
		}
		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
		if userIdHeader := c.GetHeader("X-User-Id"); userIdHeader != "" {
			if userId, err := strconv.Atoi(userIdHeader); err == nil {
				ctx = utils.SetUserIdInContext(ctx, userId)
			}
		}
		if userName := c.GetHeader("X-User-Name"); userName != "" {
			ctx = utils.SetUserNameInContext(ctx, userName)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
