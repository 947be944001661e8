// internal/middleware/context_extractor.go
package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextKeys for storing request metadata
type ContextKey string

const (
	ContextKeyIPAddress ContextKey = "ip_address"
	ContextKeyUserAgent ContextKey = "user_agent"
	ContextKeyOwnerID   ContextKey = "owner_id"
)

// OwnerHeader carries the caller identity. Authentication is handled
// elsewhere; the value is taken as-is.
const OwnerHeader = "Authorization"

// ContextExtractor stamps the owner identity and client metadata onto the
// request context so every layer below can read them.
type ContextExtractor struct {
	defaultOwner string
}

// NewContextExtractor creates a new extractor. Requests without an identity
// header act as defaultOwner.
func NewContextExtractor(defaultOwner string) *ContextExtractor {
	return &ContextExtractor{defaultOwner: defaultOwner}
}

// Handler returns the gin middleware.
func (m *ContextExtractor) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := m.enrichContext(c.Request.Context(), c)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (m *ContextExtractor) enrichContext(ctx context.Context, c *gin.Context) context.Context {
	owner := strings.TrimSpace(c.GetHeader(OwnerHeader))
	if owner == "" {
		owner = m.defaultOwner
	}
	ctx = WithOwnerID(ctx, owner)

	if ip := c.ClientIP(); ip != "" {
		ctx = context.WithValue(ctx, ContextKeyIPAddress, ip)
	}
	if ua := c.Request.UserAgent(); ua != "" {
		ctx = context.WithValue(ctx, ContextKeyUserAgent, ua)
	}
	return ctx
}

// WithOwnerID returns ctx carrying owner as the caller identity.
func WithOwnerID(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ContextKeyOwnerID, owner)
}

// OwnerFromContext extracts the caller identity from context
func OwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ContextKeyOwnerID).(string)
	if !ok || owner == "" {
		return "", false
	}
	return owner, true
}

// GetIPAddressFromContext extracts IP address from context
func GetIPAddressFromContext(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyIPAddress).(string); ok {
		return ip
	}
	return ""
}

// GetUserAgentFromContext extracts user agent from context
func GetUserAgentFromContext(ctx context.Context) string {
	if ua, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		return ua
	}
	return ""
}

type ClientInfo struct {
	IPAddress string
	UserAgent string
	OwnerID   string
}

// GetClientInfoFromContext extracts all client information from context
func GetClientInfoFromContext(ctx context.Context) *ClientInfo {
	info := &ClientInfo{
		IPAddress: GetIPAddressFromContext(ctx),
		UserAgent: GetUserAgentFromContext(ctx),
	}
	if owner, ok := OwnerFromContext(ctx); ok {
		info.OwnerID = owner
	}
	return info
}
