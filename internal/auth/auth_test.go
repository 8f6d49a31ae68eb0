package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"upasthiti/internal/store"
)

const (
	testKey    = "test-signing-key"
	testIssuer = "upasthiti-test"
)

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	hash, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	d := NewDirectory(store.NewMemory())
	err = d.SaveTeachers(context.Background(), []Teacher{
		{Email: "teacher@cse.edu", Name: "Dr. Rajesh Kumar", Department: "CSE", PasswordHash: hash},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	return d
}

func TestLoginLogout(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory(t)

	if _, err := d.Login(ctx, "teacher@cse.edu", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := d.Login(ctx, "nobody@cse.edu", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if d.LoggedIn(ctx, "teacher@cse.edu") {
		t.Fatalf("failed login set the flag")
	}

	p, err := d.Login(ctx, " Teacher@CSE.edu ", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if p.Name != "Dr. Rajesh Kumar" || !d.LoggedIn(ctx, "teacher@cse.edu") {
		t.Fatalf("profile = %+v", p)
	}
	cur, err := d.Current(ctx, "teacher@cse.edu")
	if err != nil || cur.Department != "CSE" {
		t.Fatalf("current = %+v, %v", cur, err)
	}

	if err := d.Logout(ctx, "teacher@cse.edu"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if d.LoggedIn(ctx, "teacher@cse.edu") {
		t.Fatalf("logout left the flag set")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Now()
	tok, err := Issue("teacher@cse.edu", testIssuer, testKey, time.Hour, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := Parse(tok.AccessToken, testKey, testIssuer)
	if err != nil || claims.Subject != "teacher@cse.edu" || claims.Role != RoleTeacher {
		t.Fatalf("claims = %+v, %v", claims, err)
	}
	if _, err := Parse(tok.AccessToken, "other-key", testIssuer); err == nil {
		t.Fatalf("wrong key accepted")
	}
	if _, err := Parse(tok.AccessToken, testKey, "someone-else"); err == nil {
		t.Fatalf("wrong issuer accepted")
	}
	old, _ := Issue("teacher@cse.edu", testIssuer, testKey, time.Minute, now.Add(-time.Hour))
	if _, err := Parse(old.AccessToken, testKey, testIssuer); err == nil {
		t.Fatalf("expired token accepted")
	}
}

func TestTeacherAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	d := newTestDirectory(t)

	r := gin.New()
	r.GET("/me", TeacherAuth(testKey, testIssuer, d), func(c *gin.Context) {
		c.String(http.StatusOK, TeacherID(c))
	})
	do := func(authz string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	if w := do(""); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", w.Code)
	}
	if w := do("Bearer garbage"); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", w.Code)
	}

	tok, _ := Issue("teacher@cse.edu", testIssuer, testKey, time.Hour, time.Now())
	if w := do("Bearer " + tok.AccessToken); w.Code != http.StatusUnauthorized {
		t.Fatalf("token without login: %d", w.Code)
	}

	d.Login(ctx, "teacher@cse.edu", "password123")
	w := do("Bearer " + tok.AccessToken)
	if w.Code != http.StatusOK || w.Body.String() != "teacher@cse.edu" {
		t.Fatalf("authorized: %d %q", w.Code, w.Body.String())
	}

	d.Logout(ctx, "teacher@cse.edu")
	if w := do("Bearer " + tok.AccessToken); w.Code != http.StatusUnauthorized {
		t.Fatalf("after logout: %d", w.Code)
	}
}
