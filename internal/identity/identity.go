// Package identity provides phone-number identity primitives.
package identity

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type contextKey int

const (
	phoneKey contextKey = iota
)

// NormalizePhone strips everything but digits from a phone number, so
// "+263 77-123 4567" and "263771234567" key the same session.
func NormalizePhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Mask hides all but the last four digits of a phone number for logging.
func Mask(phone string) string {
	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

// WithPhone stores the phone being served in ctx.
func WithPhone(ctx context.Context, phone string) context.Context {
	return context.WithValue(ctx, phoneKey, phone)
}

// PhoneFromContext extracts the phone stored by WithPhone.
func PhoneFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(phoneKey).(string); ok {
		return v
	}
	return ""
}

// IPFromRequest returns a normalized remote IP, used as the rate limit key.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
