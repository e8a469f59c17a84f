package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	tenantHeader  = "X-Tenant-ID"
	tenantCookie  = "tenant_id"
	tenantKey     = "tenantID"
	tenantMaxAge  = 30 * 24 * 60 * 60 // seconds
	maxTenantSize = 128
)

// TenantMiddleware resolves the tenant of a request from the X-Tenant-ID
// header or the tenant_id cookie. Browsers without either get a fresh id in
// a cookie.
func (h *HTTPHandler) TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader(tenantHeader)
		if tenantID == "" {
			tenantID, _ = c.Cookie(tenantCookie)
		}
		if len(tenantID) > maxTenantSize {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "tenant id too long"})
			return
		}
		if tenantID == "" {
			tenantID = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(tenantCookie, tenantID, tenantMaxAge, "/", "", false, true)
		}
		c.Set(tenantKey, tenantID)
		c.Next()
	}
}

func tenantOf(c *gin.Context) string {
	return c.GetString(tenantKey)
}

// ConfigCORS lets a front end served from one of origins call the API with
// its tenant header and cookie. An empty list disables CORS handling.
func ConfigCORS(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{"Origin", "Content-Type", tenantHeader},
		ExposeHeaders:    []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
