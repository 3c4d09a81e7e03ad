package middleware

import (
	"crypto/subtle"
	"net/http"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"
)

// SwaggerConfig guards /swagger. With Enabled false the docs answer 404.
type SwaggerConfig struct {
	Enabled    bool
	Username   string // empty disables basic auth
	Password   string
	AllowedIPs []string // addresses or CIDRs; empty allows everyone
}

// parseAllowlist turns addresses and CIDRs into prefixes, a bare address
// becoming a single-host prefix. Malformed entries are dropped.
func parseAllowlist(entries []string) []netip.Prefix {
	var out []netip.Prefix
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if p, err := netip.ParsePrefix(e); err == nil {
			out = append(out, p.Masked())
		} else if a, err := netip.ParseAddr(e); err == nil {
			out = append(out, netip.PrefixFrom(a, a.BitLen()))
		}
	}
	return out
}

func allowed(addr netip.Addr, list []netip.Prefix) bool {
	addr = addr.Unmap()
	for _, p := range list {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// SwaggerProtection checks the allowlist first, then basic auth
func SwaggerProtection(cfg SwaggerConfig) gin.HandlerFunc {
	list := parseAllowlist(cfg.AllowedIPs)
	restricted := len(cfg.AllowedIPs) > 0

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "API documentation is not available"})
			return
		}
		if restricted {
			addr, err := netip.ParseAddr(c.ClientIP())
			if err != nil || !allowed(addr, list) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "Access to API documentation is restricted"})
				return
			}
		}
		if cfg.Username != "" {
			user, pass, ok := c.Request.BasicAuth()
			if !ok || !sameSecret(user, cfg.Username) || !sameSecret(pass, cfg.Password) {
				c.Header("WWW-Authenticate", `Basic realm="api-docs"`)
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Credentials required for API documentation"})
				return
			}
		}
		c.Next()
	}
}

func sameSecret(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
