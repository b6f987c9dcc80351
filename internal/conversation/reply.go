package conversation

import (
	"strings"

	"github.com/ashureev/portal-gateway/internal/messaging"
)

// Reply is one outbound message. It is a menu when Options is non-empty,
// otherwise only Body is sent.
type Reply struct {
	Header  string
	Body    string
	Options []string
}

// IsMenu reports whether the reply renders as a numbered menu.
func (r Reply) IsMenu() bool { return len(r.Options) > 0 }

// String returns the text the user will see.
func (r Reply) String() string {
	if r.IsMenu() {
		return messaging.FormatMenu(r.Header, r.Body, r.Options)
	}
	return r.Body
}

func textReply(lines ...string) Reply {
	return Reply{Body: strings.Join(lines, "\n")}
}

func menuReply(header, body string, options ...string) Reply {
	return Reply{Header: header, Body: body, Options: options}
}

const (
	msgWelcome          = "👋 *Welcome to the CUT Student Portal!*\n\nPlease log in with your portal credentials to continue."
	msgUsernamePrompt   = "👤 Enter your *username* (registration number):"
	msgPasswordPrompt   = "🔑 Enter your *password*:"
	msgSessionExpired   = "🔐 *Session Expired*\n\nYour session has expired. Please login again.\n\nEnter your *username*:"
	msgLoggedOut        = "👋 You have been logged out.\n\nEnter your *username* to log in again:"
	msgInvalidOption    = "❌ Sorry, I didn't understand that option. Please choose from the menu below."
	msgInvalidSelection = "❌ Invalid selection. Please reply with a number from the list."
	msgTryAgain         = "Please try again later."
	navBackMain         = "0. Back\n00. Main menu"
)

func transientReply(msg string) Reply {
	if msg == "" {
		msg = "Something went wrong."
	}
	return textReply("⚠️ "+msg, "", msgTryAgain)
}
