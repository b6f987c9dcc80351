package conversation

import (
	"context"

	"github.com/ashureev/portal-gateway/internal/domain"
)

const quickActions = `🔧 *Quick Actions:*
1. Refresh status
2. Activate WiFi
0. WiFi menu
00. Main menu`

const wifiHelp = `📶 *WiFi Help & Information*

🔧 *How to Connect:*
1. Activate WiFi through this bot (option 2)
2. Connect to "CUT-Student-WiFi" network
3. Open browser and login with:
   • Username: Your student ID
   • Password: Your portal password

📋 *Troubleshooting:*
• Ensure WiFi is activated first
• Check your credentials are correct
• Try forgetting and reconnecting to network
• Restart your device if needed

⚠️ *Important Notes:*
• WiFi activation may take a few minutes
• You need to re-activate if deactivated

📞 *Need Help?*
IT Support: itsupport@cut.ac.zw

Reply with another option number or 0 for the main menu.`

func wifiMenu() Reply {
	return menuReply("📶 Campus WiFi", "Manage your campus WiFi access:",
		"Check WiFi status",
		"Activate WiFi",
		"WiFi help",
		"Back to main menu",
	)
}

func (e *Engine) handleWifi(ctx context.Context, s domain.Session, input string) (domain.Session, []Reply) {
	switch input {
	case "1":
		return e.checkWifi(ctx, s)
	case "2":
		return e.activateWifi(ctx, s)
	case "3":
		return s, []Reply{textReply(wifiHelp)}
	case "4", "0", "00":
		return s.Enter(domain.StateMain), nil
	default:
		return s, []Reply{textReply(msgInvalidOption), wifiMenu()}
	}
}

func (e *Engine) handleWifiStatus(ctx context.Context, s domain.Session, input string) (domain.Session, []Reply) {
	switch input {
	case "1":
		return e.checkWifi(ctx, s)
	case "2":
		return e.activateWifi(ctx, s)
	case "0":
		return s.Enter(domain.StateWifi).WithScratch(nil), []Reply{wifiMenu()}
	case "00":
		return s.Enter(domain.StateMain), nil
	default:
		return s, []Reply{textReply(msgInvalidOption), textReply(quickActions)}
	}
}

func (e *Engine) checkWifi(ctx context.Context, s domain.Session) (domain.Session, []Reply) {
	res := e.portal.FetchWifiStatus(ctx, s.Auth.SubjectName, s.Auth.Token)
	if !res.OK() {
		return failure(s, res.Outcome)
	}
	view := domain.WifiStatusView{Status: res.Data}
	return s.Enter(domain.StateWifiStatus).WithScratch(view), []Reply{wifiStatusReply(view)}
}

func wifiStatusReply(v domain.WifiStatusView) Reply {
	icon, label := "🔴", "Inactive"
	detail := "Your WiFi access is currently inactive. You can activate it using option 2."
	if v.Status.Active {
		icon, label = "🟢", "Active"
		detail = "Your WiFi access is currently active and ready to use."
	}
	return textReply("📶 *WiFi Status*", "", icon+" *Status:* "+label, "", detail, "", quickActions)
}

// activateWifi checks the current status first and only activates when
// access is inactive.
func (e *Engine) activateWifi(ctx context.Context, s domain.Session) (domain.Session, []Reply) {
	status := e.portal.FetchWifiStatus(ctx, s.Auth.SubjectName, s.Auth.Token)
	if !status.OK() {
		return failure(s, status.Outcome)
	}
	if status.Data.Active {
		view := domain.WifiStatusView{Status: status.Data}
		return s.Enter(domain.StateWifiStatus).WithScratch(view), []Reply{textReply(
			"✅ *WiFi Already Active*",
			"",
			"Your WiFi access is already active and ready to use.",
			"",
			"📶 You can connect to the campus WiFi network now.",
			"",
			quickActions,
		)}
	}

	res := e.portal.ActivateWifi(ctx, s.Auth.SubjectName, s.Auth.Token)
	if !res.OK() {
		return failure(s, res.Outcome)
	}
	view := domain.WifiStatusView{Status: domain.WifiStatus{Active: !res.Data.Error, Message: res.Data.Message}}
	next := s.Enter(domain.StateWifiStatus).WithScratch(view)
	if res.Data.Error {
		return next, []Reply{textReply(
			"❌ *WiFi Activation Failed*",
			"",
			orDash(res.Data.Message),
			"",
			"Please try again later or contact IT support if the problem persists.",
			"",
			quickActions,
		)}
	}
	return next, []Reply{textReply(
		"✅ *WiFi Activation Successful!*",
		"",
		orDash(res.Data.Message),
		"",
		"🔧 *WiFi Network Details:*",
		"Network: CUT-Student-WiFi",
		"Username: Your student ID",
		"Password: Your portal password",
		"",
		quickActions,
	)}
}
