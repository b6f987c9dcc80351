package conversation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ashureev/portal-gateway/internal/domain"
)

var mainOptions = []string{
	"👤 Profile",
	"📚 Courses",
	"📊 Grades",
	"💰 Finances",
	"📶 WiFi",
	"📢 Announcements",
	"❓ Help & Support",
	"🚪 Logout",
}

func mainMenu() Reply {
	return menuReply("🎓 CUT Student Portal", "What would you like to do today?", mainOptions...)
}

const helpText = `❓ *Help & Support*

• Reply with the number of a menu option to select it.
• Reply *0* to go back one level.
• Reply *00* to return to the main menu from any sub-menu.

*Student Affairs:* studentaffairs@cut.ac.zw
*IT Support:* itsupport@cut.ac.zw
*Bursary:* bursary@cut.ac.zw

Reply 0 to see the main menu.`

func (e *Engine) handleMain(ctx context.Context, s domain.Session, input string) (domain.Session, []Reply) {
	switch input {
	case "0", "00":
		return s, []Reply{mainMenu()}
	case "1":
		return s.Enter(domain.StateProfile), []Reply{profileMenu()}
	case "2":
		return s.Enter(domain.StateCourses), []Reply{coursesMenu()}
	case "3":
		return e.listPeriods(ctx, s)
	case "4":
		return s.Enter(domain.StateFinances), []Reply{financesMenu()}
	case "5":
		return s.Enter(domain.StateWifi), []Reply{wifiMenu()}
	case "6":
		return e.listNotices(ctx, s)
	case "7":
		return s, []Reply{textReply(helpText)}
	case "8":
		return s.SignOut(), []Reply{textReply(msgLoggedOut)}
	default:
		return s, []Reply{textReply(msgInvalidOption), mainMenu()}
	}
}

// pick parses a 1-based selection against n candidates.
func pick(input string, n int) (int, bool) {
	i, err := strconv.Atoi(input)
	if err != nil || i < 1 || i > n {
		return 0, false
	}
	return i - 1, true
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var dateLayouts = []string{time.DateTime, time.DateOnly, time.RFC3339}

// displayDate renders portal dates as "02 Jan 2006" and leaves anything
// unparseable as it came.
func displayDate(raw string) string {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("02 Jan 2006")
		}
	}
	return raw
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

func yesNo(b bool) string {
	if b {
		return "✅ Active"
	}
	return "❌ Inactive"
}
