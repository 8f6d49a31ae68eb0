package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextTeacher is the gin context key holding the authenticated teacher email.
const ContextTeacher = "teacher"

// TeacherAuth enforces bearer JWT tokens signed with HS256 and a live login.
func TeacherAuth(signingKey, issuer string, dir *Directory) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if !dir.LoggedIn(c.Request.Context(), claims.Subject) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "logged out"})
			return
		}
		c.Set(ContextTeacher, claims.Subject)
		c.Next()
	}
}

// TeacherID returns the authenticated teacher, empty when the request is anonymous.
func TeacherID(c *gin.Context) string {
	return c.GetString(ContextTeacher)
}
