package conversation

import (
	"context"
	"log/slog"

	"github.com/ashureev/portal-gateway/internal/domain"
	"github.com/ashureev/portal-gateway/internal/identity"
	"github.com/ashureev/portal-gateway/internal/portal"
)

// greet answers the first message from an unseen phone.
func greet(s domain.Session) (domain.Session, []Reply) {
	s.Pending = domain.Pending{Kind: domain.PendingUsername}
	return s, []Reply{textReply(msgWelcome), textReply(msgUsernamePrompt)}
}

// handleLogin drives the username then password prompts.
func (e *Engine) handleLogin(ctx context.Context, s domain.Session, input string) (domain.Session, []Reply) {
	switch s.Pending.Kind {
	case domain.PendingUsername:
		if input == "" {
			return s, []Reply{textReply(msgUsernamePrompt)}
		}
		s.Pending = domain.Pending{Kind: domain.PendingPassword, Username: input}
		return s, []Reply{textReply(msgPasswordPrompt)}

	case domain.PendingPassword:
		if input == "" {
			return s, []Reply{textReply(msgPasswordPrompt)}
		}
		res := e.login(ctx, s.Pending.Username, input)
		e.metrics.LoginAttempt(ctx, res.Success)
		if res.Success && res.Token != "" && res.Username != "" {
			slog.Info("student signed in", "phone", identity.Mask(s.Phone), "subject", res.Username)
			return s.SignIn(res.Username, res.Token), []Reply{
				textReply("✅ Login successful! Welcome, *" + res.Username + "*."),
			}
		}
		s.Pending = domain.Pending{Kind: domain.PendingUsername}
		msg := res.Error
		if msg == "" {
			msg = portal.ErrMsgInvalidCredentials
		}
		return s, []Reply{textReply("❌ Login failed: "+msg, "", msgUsernamePrompt)}

	default:
		s.Pending = domain.Pending{Kind: domain.PendingUsername}
		return s, []Reply{textReply(msgUsernamePrompt)}
	}
}

// login calls the authenticator and turns a panic into a failed result.
func (e *Engine) login(ctx context.Context, username, password string) (res portal.AuthResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("authenticator panicked", "panic", r)
			res = portal.AuthResult{Error: "Login could not be completed."}
		}
	}()
	return e.auth.Login(ctx, username, password)
}
