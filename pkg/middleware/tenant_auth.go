package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/MOhammedRiaad/EMS-sub006/pkg/errors"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/logging"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/tenant"
)

// Tenant headers set by the gateway after authentication
const (
	HeaderTenantID = "X-Tenant-ID"
	HeaderStudioID = "X-Studio-ID"
	HeaderActorID  = "X-Actor-ID"
)

const contextKeyTenant = "tenantContext"

// TenantAuth requires tenant and actor headers and stores them on the request context
func TenantAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := &tenant.Context{
			TenantID: c.GetHeader(HeaderTenantID),
			StudioID: c.GetHeader(HeaderStudioID),
			ActorID:  c.GetHeader(HeaderActorID),
		}

		if err := tc.Validate(); err != nil {
			AbortWithAppError(c, errors.ErrUnauthorized(err.Error()))
			return
		}

		ctx := tenant.ToContext(c.Request.Context(), tc)
		ctx = logging.ContextWithTenant(ctx, tc.TenantID, tc.StudioID, tc.ActorID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextKeyTenant, tc)

		c.Next()
	}
}

// GetTenantContext returns the tenant context set by TenantAuth
func GetTenantContext(c *gin.Context) *tenant.Context {
	if val, exists := c.Get(contextKeyTenant); exists {
		if tc, ok := val.(*tenant.Context); ok {
			return tc
		}
	}
	tc, err := tenant.FromContext(c.Request.Context())
	if err != nil {
		return &tenant.Context{}
	}
	return tc
}
