package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Permissions carried in the "perms" claim.
const (
	PermCheckout     = "pos.checkout"
	PermRead         = "pos.read"
	PermCatalogWrite = "catalog.write"
	PermInvoicesRead = "invoices.read"
	PermReportsRead  = "reports.read"
)

const (
	ctxEmployeeID   = "employee_id"
	ctxEmployeeName = "employee_name"
)

type AuthzConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// Authz verifies tokens minted by the identity service. The subject claim
// is the employee id.
type Authz struct {
	cfg AuthzConfig
}

func NewAuthz(cfg AuthzConfig) *Authz {
	return &Authz{cfg: cfg}
}

// Require checks JWT and ensures all required permissions are present
func (a *Authz) Require(requiredPerms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			unauth(c, "invalid_request", "missing bearer token")
			return
		}

		raw := strings.TrimPrefix(auth, "Bearer ")
		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			return []byte(a.cfg.Secret), nil
		},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(a.cfg.Issuer),
			jwt.WithAudience(a.cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(30*time.Second)) // small clock skew

		if err != nil || !token.Valid {
			unauth(c, "invalid_token", "invalid jwt")
			return
		}

		sub, _ := claims.GetSubject()
		if sub == "" {
			unauth(c, "invalid_token", "missing subject")
			return
		}

		perms := extractPerms(claims)
		if !hasAll(perms, requiredPerms) {
			forbidden(c, "insufficient_scope", "missing required permissions")
			return
		}

		c.Set(ctxEmployeeID, sub)
		if name, ok := claims["name"].(string); ok {
			c.Set(ctxEmployeeName, name)
		}
		c.Next()
	}
}

// EmployeeID returns the authenticated employee, or "" outside Require.
func EmployeeID(c *gin.Context) string {
	return c.GetString(ctxEmployeeID)
}

func extractPerms(claims jwt.MapClaims) map[string]struct{} {
	out := map[string]struct{}{}
	if arr, ok := claims["perms"].([]any); ok {
		for _, v := range arr {
			if s, ok := v.(string); ok && s != "" {
				out[s] = struct{}{}
			}
		}
	}
	return out
}

func hasAll(have map[string]struct{}, req []string) bool {
	for _, r := range req {
		if _, ok := have[r]; !ok {
			return false
		}
	}
	return true
}

func unauth(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code, "error_description": desc})
}

func forbidden(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": code, "error_description": desc})
}
