package middleware

import (
	"Concord/internal/shared/security"
	"Concord/internal/shared/transport"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const claimsKey = "inspect_claims"

// BearerAuth 校验 Authorization: Bearer <jwt>，并要求 token 带有 scope。
func BearerAuth(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(raw, "Bearer ")
		if !ok || tokenStr == "" {
			abort(c, "missing bearer token")
			return
		}
		_, claims, err := security.ParseToken(tokenStr)
		if err != nil {
			abort(c, err.Error())
			return
		}
		if scope != "" && !claims.HasScope(scope) {
			abort(c, security.ErrScopeMissing.Error())
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// ClaimsFrom 读取 BearerAuth 写入的 claims。
func ClaimsFrom(c *gin.Context) *security.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*security.Claims)
	return claims
}

func abort(c *gin.Context, reason string) {
	transport.SetErrorReason(c.Request.Context(), reason)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code": transport.Unauthorized.Int(),
		"msg":  "unauthorized",
	})
}
