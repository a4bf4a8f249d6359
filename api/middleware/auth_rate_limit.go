package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/agromarket/agromarket-backend/api/responses"
	"github.com/agromarket/agromarket-backend/pkg/config"
	pkgerrors "github.com/agromarket/agromarket-backend/pkg/errors"
	"github.com/agromarket/agromarket-backend/pkg/logger"
)

const maxPeekBody = 64 << 10

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitRule throttles one auth surface per caller IP and per submitted email.
// A zero limit disables that dimension.
type RateLimitRule struct {
	Surface  string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

func LoginRule(cfg config.AuthRateLimitConfig) RateLimitRule {
	return RateLimitRule{Surface: "login", Window: cfg.LoginWindow, PerIP: cfg.LoginIPLimit, PerEmail: cfg.LoginEmailLimit}
}

func RegisterRule(cfg config.AuthRateLimitConfig) RateLimitRule {
	return RateLimitRule{Surface: "register", Window: cfg.RegisterWindow, PerIP: cfg.RegisterIPLimit, PerEmail: cfg.RegisterEmailLimit}
}

func (r RateLimitRule) active() bool {
	return r.Window > 0 && (r.PerIP > 0 || r.PerEmail > 0)
}

type bucket struct {
	dimension string
	id        string
	limit     int
}

func (r RateLimitRule) key(b bucket) string {
	return "auth:" + r.Surface + ":" + b.dimension + ":" + b.id
}

// AuthRateLimit rejects requests with 429 once any bucket of rule is exhausted for the window.
func AuthRateLimit(rule RateLimitRule, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !rule.active() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			buckets := make([]bucket, 0, 2)
			if rule.PerIP > 0 {
				if ip := clientIP(r); ip != "" {
					buckets = append(buckets, bucket{dimension: "ip", id: ip, limit: rule.PerIP})
				}
			}
			if rule.PerEmail > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				if email := emailFromBody(body); email != "" {
					buckets = append(buckets, bucket{dimension: "email", id: digest(email), limit: rule.PerEmail})
				}
			}

			for _, b := range buckets {
				allowed, attempts, err := store.FixedWindowAllow(ctx, rule.key(b), int64(b.limit), rule.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting unavailable"))
					return
				}
				if !allowed {
					blocked(ctx, logg, w, rule, b, attempts)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func blocked(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, rule RateLimitRule, b bucket, attempts int64) {
	if logg != nil {
		fields := map[string]any{
			"surface":        rule.Surface,
			"dimension":      b.dimension,
			"attempts":       attempts,
			"limit":          b.limit,
			"window_seconds": int(rule.Window.Seconds()),
		}
		// raw emails stay out of logs; the bucket id is already a digest
		if b.dimension == "ip" {
			fields["ip"] = b.id
		} else {
			fields["email_hash"] = b.id
		}
		logg.Warn(logg.WithFields(ctx, fields), "auth.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(rule.Window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func emailFromBody(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(payload, &body) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}

func digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
