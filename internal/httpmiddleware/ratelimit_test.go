package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestAllowRefills(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewTokenBucket(2, 60)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("first two requests should pass")
	}
	if l.Allow("a") {
		t.Fatalf("third request should be limited")
	}
	if !l.Allow("b") {
		t.Fatalf("other keys have their own bucket")
	}
	now = now.Add(2 * time.Second)
	if !l.Allow("a") {
		t.Fatalf("tokens should refill after two seconds")
	}
}

func TestMiddlewareKeysByTeacher(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := NewTokenBucket(1, 1)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if who := c.GetHeader("X-Teacher"); who != "" {
			c.Set("teacher", who)
		}
		c.Next()
	})
	r.Use(l.Middleware(ByContext("teacher")))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(teacher string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if teacher != "" {
			req.Header.Set("X-Teacher", teacher)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if do("a@x.edu") != http.StatusOK || do("a@x.edu") != http.StatusTooManyRequests {
		t.Fatalf("teacher a should be limited on the second request")
	}
	if do("b@x.edu") != http.StatusOK {
		t.Fatalf("teacher b shares a's bucket")
	}
	if do("") != http.StatusOK || do("") != http.StatusTooManyRequests {
		t.Fatalf("anonymous requests should be limited by ip")
	}
}
