package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCompositeHealthChecker(t *testing.T) {
	ok := NewPingCheck(pingFunc(func(context.Context) error { return nil }))
	down := NewPingCheck(pingFunc(func(context.Context) error { return errors.New("connection refused") }))

	t.Run("no checks", func(t *testing.T) {
		st := NewCompositeHealthChecker("v1").Check(context.Background())
		assert.True(t, st.Healthy)
		assert.True(t, st.Ready)
	})

	t.Run("all pass", func(t *testing.T) {
		c := NewCompositeHealthChecker("v1")
		c.AddCheck("database", ok)
		c.AddOptionalCheck("cache", ok)
		st := c.Check(context.Background())
		assert.True(t, st.Healthy)
		assert.True(t, st.Ready)
		assert.Len(t, st.Checks, 2)
		assert.Equal(t, "v1", st.Version)
	})

	t.Run("optional failure keeps ready", func(t *testing.T) {
		c := NewCompositeHealthChecker("v1")
		c.AddCheck("database", ok)
		c.AddOptionalCheck("cache", down)
		st := c.Check(context.Background())
		assert.False(t, st.Healthy)
		assert.True(t, st.Ready)
		assert.Equal(t, "Some checks failed: cache", st.Message)
		assert.Equal(t, "connection refused", st.Checks["cache"].Message)
	})

	t.Run("critical failure", func(t *testing.T) {
		c := NewCompositeHealthChecker("v1")
		c.AddCheck("database", down)
		st := c.Check(context.Background())
		assert.False(t, st.Healthy)
		assert.False(t, st.Ready)
	})

	t.Run("timeout", func(t *testing.T) {
		c := NewCompositeHealthChecker("v1")
		c.SetTimeout(10 * time.Millisecond)
		c.AddCheck("slow", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
		st := c.Check(context.Background())
		assert.False(t, st.Ready)
	})
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) MiddlewareFunc {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "handler") }),
		mark("outer"), mark("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestSecurityAndSizeMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := Chain(ok, SecurityHeadersMiddleware, NoCacheMiddleware, RequestSizeLimitMiddleware(8))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("tiny")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store, private", rec.Header().Get("Cache-Control"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("far too large body")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
