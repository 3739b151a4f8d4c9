package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// DeviceAttributeMiddleware tags the request's New Relic transaction with the
// device ID from the route, so traces can be filtered per device. It is a
// no-op when no transaction is attached.
func DeviceAttributeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if txn := nrgin.Transaction(c); txn != nil {
			if deviceID := c.Param("id"); deviceID != "" {
				txn.AddAttribute("deviceId", deviceID)
			}
		}

		c.Next()

		if txn := nrgin.Transaction(c); txn != nil {
			for _, err := range c.Errors {
				txn.NoticeError(err.Err)
			}
		}
	}
}
