package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashureev/portal-gateway/internal/domain"
)

const recentPapersLimit = 3

func coursesMenu() Reply {
	return menuReply("📚 My Courses", "Choose what you would like to see:",
		"Current modules",
		"Module details",
		"Past exam papers",
		"Course materials",
		"Back to main menu",
	)
}

func (e *Engine) handleCourses(ctx context.Context, s domain.Session, input string) (domain.Session, []Reply) {
	switch input {
	case "0", "00", "5":
		return s.Enter(domain.StateMain), nil
	case "1", "2", "3", "4":
	default:
		return s, []Reply{textReply(msgInvalidOption), coursesMenu()}
	}

	res := e.portal.FetchHomeData(ctx, s.Auth.SubjectName, s.Auth.Token)
	if !res.OK() {
		return failure(s, res.Outcome)
	}
	modules := res.Data.Registration.Modules

	switch input {
	case "1":
		return s, []Reply{currentModulesScreen(modules)}
	case "2":
		if len(modules) == 0 {
			return s, []Reply{textReply("📚 *Module Details*", "", "❌ No modules found.", "", screenFooter)}
		}
		listing := domain.ModuleListing{Modules: modules}
		return s.Enter(domain.StateCoursesModuleDetails).WithScratch(listing), []Reply{moduleListReply(listing)}
	case "3":
		return s, []Reply{pastPapersScreen(modules)}
	default:
		return s, []Reply{materialsScreen(modules)}
	}
}

func evaluable(m domain.CourseModule) bool { return m.IsEvaluable == "1" }

func currentModulesScreen(modules []domain.CourseModule) Reply {
	if len(modules) == 0 {
		return textReply("📚 *Current Modules*", "", "❌ No modules found for the current period.", "", screenFooter)
	}
	var b strings.Builder
	b.WriteString("📚 *Current Modules*\n\n")
	for i, m := range modules {
		vle := "🔴"
		if m.VLEStatus {
			vle = "🟢"
		}
		eval := "❌"
		if evaluable(m) {
			eval = "✅"
		}
		fmt.Fprintf(&b, "%d. *%s*\n   %s\n   VLE: %s | Evaluable: %s\n\n", i+1, m.Code(), m.ModuleName, vle, eval)
	}
	b.WriteString(screenFooter)
	return textReply(b.String())
}

func moduleListReply(l domain.ModuleListing) Reply {
	var b strings.Builder
	b.WriteString("📚 *Select a Module for Details*\n\n")
	for i, m := range l.Modules {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, m.Code(), m.ModuleName)
	}
	b.WriteString("\nReply with the module number for details.\n0. Back to courses\n00. Main menu")
	return textReply(b.String())
}

// paperLabel takes the part after " - " in a paper description.
func paperLabel(p domain.PastExamPaper) string {
	parts := strings.Split(p.Description, " - ")
	if len(parts) > 1 && parts[1] != "" {
		return parts[1]
	}
	return "Exam"
}

func pastPapersScreen(modules []domain.CourseModule) Reply {
	var b strings.Builder
	b.WriteString("📄 *Past Exam Papers*\n\n")
	found := false
	for _, m := range modules {
		if len(m.PastExamPapers) == 0 {
			continue
		}
		found = true
		fmt.Fprintf(&b, "📚 *%s*\n", m.Code())
		papers := m.PastExamPapers
		if len(papers) > recentPapersLimit {
			papers = papers[:recentPapersLimit]
		}
		for _, p := range papers {
			fmt.Fprintf(&b, "   📄 %s - %s\n", p.Year, paperLabel(p))
		}
		b.WriteString("\n")
	}
	if !found {
		b.WriteString("❌ No past exam papers available.\n\n")
	}
	b.WriteString(screenFooter)
	return textReply(b.String())
}

func materialsScreen(modules []domain.CourseModule) Reply {
	var b strings.Builder
	b.WriteString("📖 *Course Materials*\n\n")
	found := false
	for _, m := range modules {
		if len(m.ReadingMaterials)+len(m.Assignments)+len(m.CourseWork) == 0 {
			continue
		}
		found = true
		fmt.Fprintf(&b, "📚 *%s*\n   📖 Reading Materials: %d\n   📝 Assignments: %d\n   📊 Course Work: %d\n\n",
			m.Code(), len(m.ReadingMaterials), len(m.Assignments), len(m.CourseWork))
	}
	if !found {
		b.WriteString("❌ No course materials available.\n\n")
	}
	b.WriteString(screenFooter)
	return textReply(b.String())
}

func (e *Engine) handleCourseModuleDetails(_ context.Context, s domain.Session, input string) (domain.Session, []Reply) {
	switch input {
	case "0":
		return s.Enter(domain.StateCourses).WithScratch(nil), []Reply{coursesMenu()}
	case "00":
		return s.Enter(domain.StateMain), nil
	}
	listing, ok := s.Scratch.(domain.ModuleListing)
	if !ok {
		return s.Enter(domain.StateCourses).WithScratch(nil), []Reply{coursesMenu()}
	}
	i, ok := pick(input, len(listing.Modules))
	if !ok {
		return s, []Reply{textReply(msgInvalidSelection), moduleListReply(listing)}
	}
	return s, []Reply{courseModuleReply(listing.Modules[i])}
}

func courseModuleReply(m domain.CourseModule) Reply {
	eval := "No"
	if evaluable(m) {
		eval = "Yes"
	}
	vle := "🔴 Inactive"
	if m.VLEStatus {
		vle = "🟢 Active"
	}
	return textReply(
		"📚 *"+m.Code()+"*",
		"",
		"📖 *Module Name:* "+orDash(m.ModuleName),
		"🆔 *Module ID:* "+orDash(m.ModuleID),
		"✅ *Evaluable:* "+eval,
		"💻 *VLE Status:* "+vle,
		"",
		"📊 *Resources Available:*",
		fmt.Sprintf("📄 Past Exam Papers: %d", len(m.PastExamPapers)),
		fmt.Sprintf("📖 Reading Materials: %d", len(m.ReadingMaterials)),
		fmt.Sprintf("📝 Assignments: %d", len(m.Assignments)),
		fmt.Sprintf("📊 Course Work: %d", len(m.CourseWork)),
		fmt.Sprintf("📢 Posts: %d", len(m.Posts)),
		"",
		"Reply with another module number, 0 for courses or 00 for the main menu.",
	)
}
