package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/agromarket/agromarket-backend/pkg/config"
	"github.com/agromarket/agromarket-backend/pkg/redis"
)

func newRateStore(t *testing.T) *redis.Client {
	t.Helper()
	srv, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(srv.Close)
	raw := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	return redis.Wrap(raw)
}

func loginRequest(email, ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"`+email+`","password":"secret"}`))
	req.RemoteAddr = ip + ":5678"
	return req
}

func TestAuthRateLimitPreservesBody(t *testing.T) {
	rule := RateLimitRule{Surface: "login", Window: time.Minute, PerIP: 2, PerEmail: 2}
	handler := AuthRateLimit(rule, newRateStore(t), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"email":"tester@example.com"`) {
			t.Fatalf("unexpected body: %s", string(body))
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("tester@example.com", "1.2.3.4"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthRateLimitEmailLimitAcrossIPs(t *testing.T) {
	rule := RateLimitRule{Surface: "login", Window: time.Minute, PerEmail: 2}
	handler := AuthRateLimit(rule, newRateStore(t), nil)(okHandler())

	ips := []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"}
	for i, ip := range ips {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest("Blocked@Example.com", ip))
		if i < 2 && rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
		if i == 2 && rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", rec.Code)
		}
	}
}

func TestAuthRateLimitIPLimit(t *testing.T) {
	rule := RateLimitRule{Surface: "register", Window: time.Minute, PerIP: 1}
	handler := AuthRateLimit(rule, newRateStore(t), nil)(okHandler())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, loginRequest("a@example.com", "9.9.9.9"))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, loginRequest("b@example.com", "9.9.9.9"))

	if first.Code != http.StatusOK || second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 200 then 429, got %d then %d", first.Code, second.Code)
	}
	if got := second.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("expected Retry-After 60, got %q", got)
	}
}

func TestLoginRuleFromConfig(t *testing.T) {
	rule := LoginRule(config.AuthRateLimitConfig{LoginWindow: time.Minute, LoginIPLimit: 20, LoginEmailLimit: 5})
	if rule.Surface != "login" || rule.PerIP != 20 || rule.PerEmail != 5 {
		t.Fatalf("unexpected rule %+v", rule)
	}
	if RegisterRule(config.AuthRateLimitConfig{}).active() {
		t.Fatalf("zero config must disable throttling")
	}
}
