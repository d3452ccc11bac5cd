package middleware

import (
	"github.com/gin-gonic/gin"
)

// TabIDHeader carries the tab ID issued by POST /tabs
const TabIDHeader = "X-Tab-ID"

// GetTabID returns the tab the request belongs to. EventSource clients
// cannot set headers, so the tab_id query parameter is accepted as well.
func GetTabID(c *gin.Context) string {
	if tabID := c.GetHeader(TabIDHeader); tabID != "" {
		return tabID
	}
	return c.Query("tab_id")
}
