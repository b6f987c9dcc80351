package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const loginPath = "/portal/index.php/portal/login/authenticate"

// Login failure messages.
const (
	ErrMsgInvalidCredentials = "Invalid credentials"
	ErrMsgNoRedirect         = "No redirect found in response"
)

// AuthResult is the outcome of a portal login. It is also the JSON body of
// the login API.
type AuthResult struct {
	Success  bool   `json:"success"`
	Token    string `json:"token,omitempty"`
	Username string `json:"username,omitempty"`
	Error    string `json:"error,omitempty"`

	// InvalidCredentials separates a rejected login from an upstream failure.
	InvalidCredentials bool `json:"-"`
}

// AuthClient logs in against the portal form endpoint. Redirects are not
// followed; a successful login answers 302 with the subject and token as the
// last two segments of Location.
type AuthClient struct {
	baseURL string
	http    *http.Client
}

// NewAuthClient creates an AuthClient with a per-call timeout.
func NewAuthClient(baseURL string, timeout time.Duration) *AuthClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &AuthClient{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Login never returns an error value. Transport failures are reported in
// AuthResult.Error.
func (a *AuthClient) Login(ctx context.Context, username, password string) AuthResult {
	ctx, span := tracer.Start(ctx, "portal.login", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	res := a.login(ctx, strings.TrimSpace(username), password)
	span.SetAttributes(attribute.Bool("portal.login.success", res.Success))
	if !res.Success {
		span.SetStatus(codes.Error, res.Error)
		slog.Info("portal login failed", "invalid_credentials", res.InvalidCredentials, "error", res.Error)
	}
	return res
}

func (a *AuthClient) login(ctx context.Context, username, password string) AuthResult {
	form := url.Values{
		"username": []string{username},
		"password": []string{password},
		"login":    []string{"Login"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return AuthResult{Error: fmt.Sprintf("build login request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.http.Do(req)
	if err != nil {
		return AuthResult{Error: describeTransportError(err)}
	}
	_ = resp.Body.Close()

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		subject, token, ok := parseAuthRedirect(resp.Header.Get("Location"))
		if !ok {
			return AuthResult{Error: ErrMsgInvalidCredentials, InvalidCredentials: true}
		}
		return AuthResult{Success: true, Token: token, Username: subject}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return AuthResult{Error: ErrMsgInvalidCredentials, InvalidCredentials: true}
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// The portal re-renders the login form when credentials are wrong.
		return AuthResult{Error: ErrMsgNoRedirect, InvalidCredentials: true}
	default:
		return AuthResult{Error: fmt.Sprintf("portal login returned status %d", resp.StatusCode)}
	}
}

// parseAuthRedirect reads ".../auth/<subject>/<token>". A redirect back to
// the login page carries no credentials.
func parseAuthRedirect(location string) (subject, token string, ok bool) {
	if location == "" || strings.Contains(strings.ToLower(location), "/login") {
		return "", "", false
	}
	parts := strings.Split(strings.TrimRight(location, "/"), "/")
	if len(parts) < 2 {
		return "", "", false
	}
	subject, token = parts[len(parts)-2], parts[len(parts)-1]
	if subject == "" || token == "" || strings.ContainsAny(subject, "#:?") || strings.ContainsAny(token, "#?") {
		return "", "", false
	}
	return subject, token, true
}

func describeTransportError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "portal login timed out"
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return "portal login timed out"
	}
	return "could not reach portal: " + err.Error()
}
