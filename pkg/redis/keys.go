package redis

import "strings"

// All keys live under "agro:<kind>:..." so one Redis can be shared with other services.
const keyNamespace = "agro"

const (
	kindIdempotency = "idempotency"
	kindRateLimit   = "rate_limit"
	kindSession     = "session"
	kindWebhook     = "webhook"
	kindLock        = "lock"
)

func (c *Client) IdempotencyKey(scope, id string) string {
	return key(kindIdempotency, scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return key(kindRateLimit, scope)
}

func (c *Client) AccessSessionKey(accessID string) string {
	return key(kindSession, "access", accessID)
}

func (c *Client) WebhookEventKey(provider, eventID string) string {
	return key(kindWebhook, provider, eventID)
}

func (c *Client) LockKey(name string) string {
	return key(kindLock, name)
}

// key joins the non-blank parts under the namespace.
func key(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}
