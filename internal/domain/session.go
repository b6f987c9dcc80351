// Package domain contains the core types of the portal gateway.
package domain

import (
	"time"
)

// GuestIdentity is the identity of a phone that has not signed in.
const GuestIdentity = "guest"

// Auth holds the upstream credentials of a signed-in session.
type Auth struct {
	Authenticated bool
	Token         string
	SubjectName   string
}

// Consistent reports whether Authenticated agrees with the credential fields.
func (a Auth) Consistent() bool {
	has := a.Token != "" && a.SubjectName != ""
	return a.Authenticated == has
}

// PendingKind is the credential the login flow is waiting for.
type PendingKind int

const (
	PendingNone PendingKind = iota
	PendingUsername
	PendingPassword
)

func (k PendingKind) String() string {
	switch k {
	case PendingUsername:
		return "awaiting_username"
	case PendingPassword:
		return "awaiting_password"
	default:
		return "none"
	}
}

// Pending tracks a half-finished login. Username is set only while
// Kind is PendingPassword.
type Pending struct {
	Kind     PendingKind
	Username string
}

// Session is the per-phone conversation record.
type Session struct {
	Phone        string
	Identity     string
	State        State
	LastActivity time.Time
	Auth         Auth
	Pending      Pending
	Scratch      Scratch
}

// NewSession returns an unauthenticated session in the given state.
func NewSession(phone, identity string, state State, now time.Time) Session {
	if identity == "" {
		identity = GuestIdentity
	}
	if state == "" {
		state = StateLogin
	}
	return Session{
		Phone:        phone,
		Identity:     identity,
		State:        state,
		LastActivity: now,
	}
}

// Enter moves the session to next. Scratch is dropped when next belongs to
// another top-level domain.
func (s Session) Enter(next State) Session {
	if s.State.Domain() != next.Domain() {
		s.Scratch = nil
	}
	s.State = next
	return s
}

// WithScratch replaces the scratch data.
func (s Session) WithScratch(sc Scratch) Session {
	s.Scratch = sc
	return s
}

// SignIn records a successful login and enters the main menu.
func (s Session) SignIn(subject, token string) Session {
	s.Auth = Auth{Authenticated: true, Token: token, SubjectName: subject}
	s.Identity = subject
	s.Pending = Pending{}
	return s.Enter(StateMain)
}

// SignOut clears credentials and returns to the username prompt.
func (s Session) SignOut() Session {
	s.Auth = Auth{}
	s.Identity = GuestIdentity
	s.Pending = Pending{Kind: PendingUsername}
	s.Scratch = nil
	s.State = StateLogin
	return s
}

// Expired reports whether the session has been idle for longer than ttl.
func (s Session) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.LastActivity) > ttl
}
