package identity

import (
	"context"
	"net/http/httptest"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"263771234567":      "263771234567",
		"+263 77-123 4567":  "263771234567",
		"(263) 77 123 4567": "263771234567",
		"":                  "",
	}
	for in, want := range cases {
		if got := NormalizePhone(in); got != want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMask(t *testing.T) {
	if got := Mask("263771234567"); got != "********4567" {
		t.Fatalf("Mask = %q", got)
	}
	if got := Mask("123"); got != "***" {
		t.Fatalf("Mask short = %q", got)
	}
}

func TestPhoneContext(t *testing.T) {
	ctx := WithPhone(context.Background(), "263771234567")
	if got := PhoneFromContext(ctx); got != "263771234567" {
		t.Fatalf("PhoneFromContext = %q", got)
	}
	if got := PhoneFromContext(context.Background()); got != "" {
		t.Fatalf("empty context returned %q", got)
	}
}

func TestIPFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.7:51234"
	if got := IPFromRequest(r); got != "10.0.0.7" {
		t.Fatalf("IPFromRequest = %q", got)
	}
	r.RemoteAddr = "garbage"
	if got := IPFromRequest(r); got != "garbage" {
		t.Fatalf("IPFromRequest fallback = %q", got)
	}
}
