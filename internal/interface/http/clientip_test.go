package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrustedProxies(t *testing.T) {
	trusted, invalid := parseTrustedProxies([]string{"10.0.0.0/8", " 192.0.2.7 ", "", "::1", "proxy.local"})
	assert.Equal(t, []string{"proxy.local"}, invalid)
	require.Len(t, trusted, 3)

	assert.True(t, trusted.contains("10.20.30.40"))
	assert.True(t, trusted.contains("192.0.2.7"))
	assert.True(t, trusted.contains("::ffff:192.0.2.7"))
	assert.True(t, trusted.contains("::1"))
	assert.False(t, trusted.contains("192.0.2.8"))
	assert.False(t, trusted.contains("not-an-ip"))
}

func TestClientIP(t *testing.T) {
	proxies, _ := parseTrustedProxies([]string{"10.0.0.0/8"})

	tests := []struct {
		name    string
		trusted trustedProxies
		remote  string
		xff     []string
		realIP  string
		want    string
	}{
		{name: "no proxies configured ignores forwarding headers", remote: "203.0.113.5:5000", xff: []string{"1.1.1.1"}, realIP: "2.2.2.2", want: "203.0.113.5"},
		{name: "untrusted peer ignores forwarding headers", trusted: proxies, remote: "203.0.113.5:5000", xff: []string{"1.1.1.1"}, want: "203.0.113.5"},
		{name: "trusted peer yields last hop", trusted: proxies, remote: "10.0.0.2:5000", xff: []string{"198.51.100.9"}, want: "198.51.100.9"},
		{name: "spoofed leftmost hop is skipped", trusted: proxies, remote: "10.0.0.2:5000", xff: []string{"6.6.6.6, 198.51.100.9"}, want: "198.51.100.9"},
		{name: "trusted hops are walked through", trusted: proxies, remote: "10.0.0.2:5000", xff: []string{"198.51.100.9, 10.1.1.1"}, want: "198.51.100.9"},
		{name: "repeated headers are joined", trusted: proxies, remote: "10.0.0.2:5000", xff: []string{"6.6.6.6", "198.51.100.9"}, want: "198.51.100.9"},
		{name: "all hops trusted yields leftmost", trusted: proxies, remote: "10.0.0.2:5000", xff: []string{"10.3.3.3, 10.1.1.1"}, want: "10.3.3.3"},
		{name: "trusted peer falls back to X-Real-IP", trusted: proxies, remote: "10.0.0.2:5000", realIP: "198.51.100.4", want: "198.51.100.4"},
		{name: "remote without port", remote: "203.0.113.5", want: "203.0.113.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/live", nil)
			r.RemoteAddr = tt.remote
			for _, v := range tt.xff {
				r.Header.Add("X-Forwarded-For", v)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, tt.trusted.clientIP(r))
		})
	}
}

type keyRecorder struct {
	mu   sync.Mutex
	keys []string
}

func (k *keyRecorder) Allow(_ context.Context, key string) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys = append(k.keys, key)
	return true, nil
}

func TestRateLimit_ForwardedForCannotRotateKey(t *testing.T) {
	limiter := &keyRecorder{}
	e := newTestEnv(t, func(cfg *Config, deps *Dependencies) {
		cfg.RateLimit = 10
		deps.RateLimiter = limiter
	})

	for _, spoofed := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "203.0.113.5:40000"
		req.Header.Set("X-Forwarded-For", spoofed)
		e.handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, []string{"203.0.113.5", "203.0.113.5", "203.0.113.5"}, limiter.keys)
}

func TestRateLimit_TrustedProxyForwardsClient(t *testing.T) {
	limiter := &keyRecorder{}
	e := newTestEnv(t, func(cfg *Config, deps *Dependencies) {
		cfg.RateLimit = 10
		cfg.TrustedProxies = []string{"10.0.0.1"}
		deps.RateLimiter = limiter
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.0.0.1:40000"
	req.Header.Set("X-Forwarded-For", "6.6.6.6, 198.51.100.9")
	e.handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, []string{"198.51.100.9"}, limiter.keys)
}
