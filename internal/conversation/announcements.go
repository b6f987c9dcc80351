package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashureev/portal-gateway/internal/domain"
)

// listNotices fetches portal notices and lists their titles.
func (e *Engine) listNotices(ctx context.Context, s domain.Session) (domain.Session, []Reply) {
	res := e.portal.FetchHomeData(ctx, s.Auth.SubjectName, s.Auth.Token)
	if !res.OK() {
		return failure(s, res.Outcome)
	}
	listing := domain.NoticeListing{Notices: res.Data.Notices}
	return s.Enter(domain.StateAnnouncements).WithScratch(listing), []Reply{noticesReply(listing)}
}

func noticesReply(l domain.NoticeListing) Reply {
	if len(l.Notices) == 0 {
		return textReply("📢 *Announcements*", "", "📭 There are no announcements right now.", "", "0. Back to main menu")
	}
	var b strings.Builder
	b.WriteString("📢 *Announcements*\n\n")
	for i, n := range l.Notices {
		title := n.Title
		if title == "" {
			title = "Notice"
		}
		if n.Date != "" {
			fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, title, displayDate(n.Date))
		} else {
			fmt.Fprintf(&b, "%d. %s\n", i+1, title)
		}
	}
	b.WriteString("\nReply with a number to read an announcement.\n0. Back to main menu")
	return textReply(b.String())
}

func noticeReply(n domain.Notice) Reply {
	lines := []string{"📢 *" + orDash(n.Title) + "*"}
	if n.Date != "" {
		lines = append(lines, "📅 "+displayDate(n.Date))
	}
	lines = append(lines, "", strings.TrimSpace(n.Body))
	if n.Link != "" {
		lines = append(lines, "", "🔗 "+n.Link)
	}
	lines = append(lines, "", "Reply with another number or 0 for the main menu.")
	return textReply(lines...)
}

func (e *Engine) handleAnnouncements(ctx context.Context, s domain.Session, input string) (domain.Session, []Reply) {
	if input == "0" || input == "00" {
		return s.Enter(domain.StateMain), nil
	}
	listing, ok := s.Scratch.(domain.NoticeListing)
	if !ok {
		return e.listNotices(ctx, s)
	}
	i, ok := pick(input, len(listing.Notices))
	if !ok {
		return s, []Reply{textReply(msgInvalidSelection), noticesReply(listing)}
	}
	return s, []Reply{noticeReply(listing.Notices[i])}
}
