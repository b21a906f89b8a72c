package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ddd-task-manager/internal/application"
	"github.com/oksasatya/go-ddd-task-manager/internal/domain/entity"
	redisinfra "github.com/oksasatya/go-ddd-task-manager/internal/infrastructure/redis"
	"github.com/oksasatya/go-ddd-task-manager/pkg/helpers"
)

func init() { gin.SetMode(gin.TestMode) }

type stubResolver struct {
	tokens map[string]entity.Principal
	err    error
}

func (s stubResolver) Resolve(_ context.Context, bearer string) (entity.Principal, error) {
	if s.err != nil {
		return entity.Principal{}, s.err
	}
	p, ok := s.tokens[bearer]
	if !ok {
		return entity.Principal{}, application.ErrUnauthenticated
	}
	return p, nil
}

func authEngine(r TokenResolver) *gin.Engine {
	e := gin.New()
	e.GET("/me", Auth(r, helpers.NopLogger()), func(c *gin.Context) {
		p, _ := PrincipalFrom(c)
		c.String(http.StatusOK, strconv.FormatInt(p.ID, 10)+":"+c.GetString(CtxUserIDKey))
	})
	return e
}

func TestAuthAcceptsBearerHeaderAndCookie(t *testing.T) {
	e := authEngine(stubResolver{tokens: map[string]entity.Principal{"good": {ID: 7}}})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "7:7" {
		t.Fatalf("expected 200 7:7, got %d %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: helpers.AccessTokenCookie, Value: "good"})
	w = httptest.NewRecorder()
	e.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected cookie auth to pass, got %d", w.Code)
	}
}

func TestAuthRejectsMissingAndUnknownTokens(t *testing.T) {
	e := authEngine(stubResolver{tokens: map[string]entity.Principal{}})

	for _, h := range []string{"", "Bearer nope", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if h != "" {
			req.Header.Set("Authorization", h)
		}
		w := httptest.NewRecorder()
		e.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%q: expected 401, got %d", h, w.Code)
		}
	}
}

func TestAuthStoreFailureIsServerError(t *testing.T) {
	e := authEngine(stubResolver{err: errors.New("db down")})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer x")
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func newLimiter(t *testing.T) (*miniredis.Miniredis, *redisinfra.RateLimiter) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, redisinfra.NewRateLimiter(rdb)
}

func TestRateLimitBlocksAfterMax(t *testing.T) {
	_, limiter := newLimiter(t)
	e := gin.New()
	e.POST("/login", RateLimit(limiter, 2, time.Minute, KeyByIP(), nil, helpers.NopLogger()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		e.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		codes = append(codes, w.Code)
		last = w
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected 200,200,429 got %v", codes)
	}
	if last.Header().Get("Retry-After") == "" || last.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("expected retry headers, got %v", last.Header())
	}
}

func TestRateLimitBypassAndOptions(t *testing.T) {
	_, limiter := newLimiter(t)
	e := gin.New()
	h := RateLimit(limiter, 1, time.Minute, KeyByIP(), AllowPrivateIP(), helpers.NopLogger())
	e.GET("/debug", h, func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/debug", nil)
		req.RemoteAddr = "127.0.0.1:1234"
		w := httptest.NewRecorder()
		e.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("loopback should bypass, got %d", w.Code)
		}
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	mr, limiter := newLimiter(t)
	mr.Close()
	e := gin.New()
	e.GET("/x", RateLimit(limiter, 1, time.Minute, KeyByIP(), nil, helpers.NopLogger()), func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected fail-open 200, got %d", w.Code)
		}
	}
}

func TestRealIPHonoursHeadersOnlyWhenTrusted(t *testing.T) {
	for _, tc := range []struct {
		trust bool
		want  string
	}{{true, "203.0.113.9"}, {false, "192.0.2.1"}} {
		e := gin.New()
		e.GET("/ip", RealIP(tc.trust), func(c *gin.Context) { c.String(http.StatusOK, c.GetString("real_ip")) })
		req := httptest.NewRequest(http.MethodGet, "/ip", nil)
		req.RemoteAddr = "192.0.2.1:5555"
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		w := httptest.NewRecorder()
		e.ServeHTTP(w, req)
		if w.Body.String() != tc.want {
			t.Fatalf("trust=%v: expected %s, got %s", tc.trust, tc.want, w.Body.String())
		}
	}
}

func TestRequestIDReusesValidHeader(t *testing.T) {
	e := gin.New()
	e.GET("/", RequestIDMiddleware(), func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	const id = "0b9c1f1e-3a3c-4a8b-9a0e-5f2d7f1c2b3a"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, id)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	if w.Body.String() != id || w.Header().Get(RequestIDHeader) != id {
		t.Fatalf("expected request id to be reused, got %s", w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	w = httptest.NewRecorder()
	e.ServeHTTP(w, req)
	if w.Body.String() == "<script>" || w.Body.String() == "" {
		t.Fatalf("expected a fresh request id, got %q", w.Body.String())
	}
}
