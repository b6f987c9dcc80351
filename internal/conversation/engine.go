// Package conversation implements the per-phone state machine that turns an
// inbound WhatsApp message into replies and a next session.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashureev/portal-gateway/internal/domain"
	"github.com/ashureev/portal-gateway/internal/identity"
	"github.com/ashureev/portal-gateway/internal/portal"
	"github.com/ashureev/portal-gateway/internal/session"
	"github.com/ashureev/portal-gateway/internal/store"
	"github.com/ashureev/portal-gateway/internal/telemetry"
)

var tracer = otel.Tracer("github.com/ashureev/portal-gateway/internal/conversation")

// Authenticator signs a student in against the portal. It reports every
// failure in the result.
type Authenticator interface {
	Login(ctx context.Context, username, password string) portal.AuthResult
}

// Portal is the student data API. Every result is already classified.
type Portal interface {
	FetchHomeData(ctx context.Context, reg, token string) portal.Result[domain.HomeData]
	FetchWifiStatus(ctx context.Context, reg, token string) portal.Result[domain.WifiStatus]
	ActivateWifi(ctx context.Context, reg, token string) portal.Result[domain.WifiActivation]
	FetchResultPeriods(ctx context.Context, reg, token string) portal.Result[[]domain.ResultPeriod]
	FetchResults(ctx context.Context, reg, token, periodID string) portal.Result[domain.StudentResults]
}

// Messenger delivers replies. A false return means the message was not
// delivered; it is never retried.
type Messenger interface {
	SendText(ctx context.Context, to, text string) bool
	SendMenu(ctx context.Context, to, header, body string, options []string) bool
}

type handler func(ctx context.Context, s domain.Session, input string) (domain.Session, []Reply)

// Engine routes inbound messages through the state machine.
type Engine struct {
	sessions  session.Store
	auth      Authenticator
	portal    Portal
	messenger Messenger
	journal   store.Journal
	metrics   *telemetry.Metrics
	handlers  map[domain.State]handler
}

// Option configures an Engine.
type Option func(*Engine)

// WithJournal records every inbound and outbound message in j.
func WithJournal(j store.Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithMetrics counts messages and login attempts.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine wires the state handlers to their collaborators.
func NewEngine(sessions session.Store, auth Authenticator, p Portal, m Messenger, opts ...Option) *Engine {
	e := &Engine{
		sessions:  sessions,
		auth:      auth,
		portal:    p,
		messenger: m,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.handlers = map[domain.State]handler{
		domain.StateMain:                  e.handleMain,
		domain.StateProfile:               e.handleProfile,
		domain.StateCourses:               e.handleCourses,
		domain.StateCoursesModuleDetails:  e.handleCourseModuleDetails,
		domain.StateGrades:                e.handleGrades,
		domain.StateGradesPeriodSelection: e.handlePeriodSelection,
		domain.StateGradesModuleSelection: e.handleModuleSelection,
		domain.StateGradesEmptyResults:    e.handleEmptyResults,
		domain.StateGradesBalanceError:    e.handleBalanceError,
		domain.StateFinances:              e.handleFinances,
		domain.StateWifi:                  e.handleWifi,
		domain.StateWifiStatus:            e.handleWifiStatus,
		domain.StateAnnouncements:         e.handleAnnouncements,
	}
	return e
}

// Turn describes one processed message.
type Turn struct {
	Phone       string
	StateBefore domain.State
	StateAfter  domain.State
	Replies     []Reply
	Delivered   int
}

// Handle processes one inbound message end to end. It always answers and
// always leaves the phone with a valid session.
func (e *Engine) Handle(ctx context.Context, phone, text string) Turn {
	phone = identity.NormalizePhone(phone)
	input := strings.TrimSpace(text)
	ctx = identity.WithPhone(ctx, phone)

	ctx, span := tracer.Start(ctx, "conversation.turn", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	e.metrics.MessageReceived(ctx)

	cur, fresh, err := e.load(ctx, phone)
	if err != nil {
		slog.Error("failed to load session", "phone", identity.Mask(phone), "error", err)
		replies := []Reply{transientReply(portal.MsgUnexpected)}
		return Turn{Phone: phone, Replies: replies, Delivered: e.deliver(ctx, phone, "", "", replies)}
	}

	var next domain.Session
	var replies []Reply
	if fresh {
		next, replies = greet(cur)
	} else {
		next, replies = e.Step(ctx, cur, input)
	}

	e.record(ctx, &domain.MessageEvent{
		Phone:       phone,
		Direction:   domain.DirectionInbound,
		Content:     redact(cur, input),
		StateBefore: cur.State,
		StateAfter:  next.State,
		Delivered:   true,
	})

	saved, err := e.sessions.Mutate(ctx, phone, func(domain.Session) domain.Session { return next })
	switch {
	case err != nil:
		slog.Error("failed to save session", "phone", identity.Mask(phone), "state", next.State, "error", err)
	case saved == nil:
		slog.Debug("session removed during turn", "phone", identity.Mask(phone))
	}

	span.SetAttributes(
		attribute.String("conversation.state_before", string(cur.State)),
		attribute.String("conversation.state_after", string(next.State)),
		attribute.Int("conversation.replies", len(replies)),
	)

	delivered := e.deliver(ctx, phone, cur.State, next.State, replies)
	return Turn{
		Phone:       phone,
		StateBefore: cur.State,
		StateAfter:  next.State,
		Replies:     replies,
		Delivered:   delivered,
	}
}

// load returns the session for phone, creating it on first contact.
func (e *Engine) load(ctx context.Context, phone string) (domain.Session, bool, error) {
	existing, err := e.sessions.Get(ctx, phone)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("get session: %w", err)
	}
	if existing != nil {
		return *existing, false, nil
	}
	created, err := e.sessions.CreateOrReset(ctx, phone, domain.GuestIdentity, domain.StateLogin)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("create session: %w", err)
	}
	slog.Info("session created", "phone", identity.Mask(phone))
	return *created, true, nil
}

// Step is the transition function. It never panics: a failing handler leaves
// the session unchanged and produces a retry-later reply.
func (e *Engine) Step(ctx context.Context, s domain.Session, input string) (next domain.Session, replies []Reply) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("conversation handler panicked",
				"phone", identity.Mask(s.Phone),
				"state", s.State,
				"panic", r,
				"stack", string(debug.Stack()))
			next, replies = s, []Reply{transientReply(portal.MsgUnexpected)}
		}
	}()

	next, replies = e.transition(ctx, s, input)
	if next.State == domain.StateMain && s.State != domain.StateMain && next.Auth.Authenticated {
		replies = append(replies, mainMenu())
	}
	return next, replies
}

func (e *Engine) transition(ctx context.Context, s domain.Session, input string) (domain.Session, []Reply) {
	if !s.Auth.Consistent() {
		slog.Warn("session auth fields disagree, signing out", "phone", identity.Mask(s.Phone), "state", s.State)
		s = s.SignOut()
		s.Pending = domain.Pending{}
	}
	if !s.Auth.Authenticated {
		if s.State != domain.StateLogin {
			s.State = domain.StateLogin
			s.Scratch = nil
			s.Pending = domain.Pending{}
		}
		return e.handleLogin(ctx, s, input)
	}
	if s.State == domain.StateLogin {
		return s.Enter(domain.StateMain), nil
	}
	h, ok := e.handlers[s.State]
	if !s.State.Known() || !ok {
		slog.Warn("unknown conversation state, resetting to main",
			"phone", identity.Mask(s.Phone), "state", s.State)
		s.Scratch = nil
		return s.Enter(domain.StateMain), nil
	}
	return h(ctx, s, input)
}

// failure maps a non-success outcome to the next session. Reauth signs the
// session out; anything else keeps the current state and scratch.
func failure(s domain.Session, out portal.Outcome) (domain.Session, []Reply) {
	if out.Kind == portal.KindReauth {
		slog.Info("portal session expired", "phone", identity.Mask(s.Phone), "state", s.State)
		return s.SignOut(), []Reply{textReply(msgSessionExpired)}
	}
	return s, []Reply{transientReply(out.Message)}
}

func (e *Engine) deliver(ctx context.Context, phone string, before, after domain.State, replies []Reply) int {
	delivered := 0
	for _, r := range replies {
		var ok bool
		if r.IsMenu() {
			ok = e.messenger.SendMenu(ctx, phone, r.Header, r.Body, r.Options)
		} else {
			ok = e.messenger.SendText(ctx, phone, r.Body)
		}
		if ok {
			delivered++
		}
		e.record(ctx, &domain.MessageEvent{
			Phone:       phone,
			Direction:   domain.DirectionOutbound,
			Content:     r.String(),
			StateBefore: before,
			StateAfter:  after,
			Delivered:   ok,
		})
	}
	return delivered
}

func (e *Engine) record(ctx context.Context, ev *domain.MessageEvent) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Record(ctx, ev); err != nil {
		slog.Warn("failed to record message event", "phone", identity.Mask(ev.Phone), "error", err)
	}
}

const redacted = "[redacted]"

// redact hides the text typed while a password was expected.
func redact(s domain.Session, input string) string {
	if !s.Auth.Authenticated && s.State == domain.StateLogin && s.Pending.Kind == domain.PendingPassword {
		return redacted
	}
	return input
}
