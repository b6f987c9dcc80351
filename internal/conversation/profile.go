package conversation

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ashureev/portal-gateway/internal/domain"
)

func profileMenu() Reply {
	return menuReply("👤 My Profile", "Choose what you would like to see:",
		"Personal information",
		"Academic information",
		"Contact information",
		"Account status",
		"Back to main menu",
	)
}

func (e *Engine) handleProfile(ctx context.Context, s domain.Session, input string) (domain.Session, []Reply) {
	var render func(domain.HomeData) Reply
	switch input {
	case "0", "00", "5":
		return s.Enter(domain.StateMain), nil
	case "1":
		render = personalScreen
	case "2":
		render = academicScreen
	case "3":
		render = contactScreen
	case "4":
		render = accountStatusScreen
	default:
		return s, []Reply{textReply(msgInvalidOption), profileMenu()}
	}
	res := e.portal.FetchHomeData(ctx, s.Auth.SubjectName, s.Auth.Token)
	if !res.OK() {
		return failure(s, res.Outcome)
	}
	return s, []Reply{render(res.Data)}
}

func personalScreen(h domain.HomeData) Reply {
	p := h.Profile
	name := strings.Join(strings.Fields(p.Title+" "+p.FirstName+" "+p.Surname), " ")
	return textReply(
		"👤 *Personal Information*",
		"",
		"📛 *Name:* "+orDash(name),
		"🆔 *Student ID:* "+orDash(p.StudentID),
		"🎂 *Date of Birth:* "+orDash(displayDate(p.DateOfBirth)),
		"🌍 *Nationality:* "+orDash(p.Nationality),
		"🏠 *Place of Birth:* "+orDash(p.PlaceOfBirth),
		"👤 *Gender:* "+orDash(p.Sex),
		"💒 *Marital Status:* "+orDash(p.MaritalStatus),
		"⛪ *Religion:* "+orDash(p.Religion),
		"🆔 *National ID:* "+orDash(p.NationalID),
		"",
		screenFooter,
	)
}

func academicScreen(h domain.HomeData) Reply {
	reg := h.Registration
	registered := "Not Registered"
	if reg.IsRegistered {
		registered = "Registered"
	}
	completed := "No"
	if reg.Program.Completed {
		completed = "Yes"
	}
	return textReply(
		"🎓 *Academic Information*",
		"",
		"📚 *Program:* "+orDash(reg.Program.ProgrammeName),
		"🏫 *Faculty:* "+orDash(reg.Program.FacultyName),
		"📊 *Level:* "+orDash(reg.Program.Level),
		"📅 *Current Period:* "+orDash(reg.Period.PeriodName),
		"✅ *Registration Status:* "+registered,
		"🎯 *Attendance Type:* "+orDash(reg.Program.AttendanceTypeName),
		"🏆 *Completed:* "+completed,
		"",
		"📖 *Enrolled Modules:* "+strconv.Itoa(len(reg.Modules)),
		"",
		screenFooter,
	)
}

func contactScreen(h domain.HomeData) Reply {
	p := h.Profile
	return textReply(
		"📞 *Contact Information*",
		"",
		"📧 *Email:* "+orDash(p.EmailAddress),
		"📱 *Phone:* "+orDash(p.PhoneNumbers),
		"🏠 *Contact Address:* "+orDash(p.ContactAddress),
		"🏡 *Permanent Address:* "+orDash(p.PermanentHomeAddress),
		"",
		screenFooter,
	)
}

func accountStatusScreen(h domain.HomeData) Reply {
	a := h.Accounts
	return textReply(
		"🔐 *Account Status*",
		"",
		"📶 *WiFi Access:* "+yesNo(a.Wifi),
		"🆔 *Student ID Card:* "+yesNo(a.StudentIDCard),
		"🍽️ *Canteen Access:* "+yesNo(a.Canteen),
		"🏠 *Accommodation:* "+accommodation(a.Accommodation),
		"💻 *VLE Status:* "+yesNo(h.VLE.Status),
		"📚 *Classes Ready:* "+h.VLE.ClassesReady.String(),
		"",
		screenFooter,
	)
}

// accommodation renders the loosely typed accommodation field.
func accommodation(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return orNotAssigned(s)
	}
	v := strings.TrimSpace(string(raw))
	switch v {
	case "", "null", "false", "{}", "[]":
		return "Not Assigned"
	}
	return v
}

func orNotAssigned(v string) string {
	if strings.TrimSpace(v) == "" {
		return "Not Assigned"
	}
	return v
}
