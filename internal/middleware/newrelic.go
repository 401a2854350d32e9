package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// TransactionAttributes tags the New Relic transaction started by nrgin with
// the authenticated user and the rental in the path. It is a no-op when the
// agent is disabled.
func TransactionAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn == nil {
			c.Next()
			return
		}

		if userID := UserID(c); userID != "" {
			txn.AddAttribute("user_id", userID)
		}
		if id := c.Param("id"); id != "" {
			txn.AddAttribute("resource_id", id)
		}

		c.Next()

		// Record handler errors.
		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
