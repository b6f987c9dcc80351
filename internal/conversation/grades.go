package conversation

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ashureev/portal-gateway/internal/domain"
	"github.com/ashureev/portal-gateway/internal/portal"
)

const msgNoPeriods = "📭 No result periods are available yet.\n\nReply 1 to check again or 0 for the main menu."

// listPeriods fetches result periods and shows them for selection.
func (e *Engine) listPeriods(ctx context.Context, s domain.Session) (domain.Session, []Reply) {
	res := e.portal.FetchResultPeriods(ctx, s.Auth.SubjectName, s.Auth.Token)
	if !res.OK() {
		return failure(s, res.Outcome)
	}
	if len(res.Data) == 0 {
		return s.Enter(domain.StateGrades).WithScratch(nil), []Reply{textReply(msgNoPeriods)}
	}
	listing := domain.PeriodListing{Periods: res.Data}
	return s.Enter(domain.StateGradesPeriodSelection).WithScratch(listing), []Reply{periodsReply(listing)}
}

func periodsReply(l domain.PeriodListing) Reply {
	var b strings.Builder
	b.WriteString("📊 *Academic Results*\n\nSelect a period:\n\n")
	for i, p := range l.Periods {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p.PeriodName)
	}
	b.WriteString("\n0. Back to main menu")
	return textReply(b.String())
}

// handleGrades serves the grades landing screen shown when no periods exist.
func (e *Engine) handleGrades(ctx context.Context, s domain.Session, input string) (domain.Session, []Reply) {
	switch input {
	case "1":
		return e.listPeriods(ctx, s)
	case "0", "00":
		return s.Enter(domain.StateMain), nil
	default:
		return s, []Reply{textReply(msgInvalidOption), textReply(msgNoPeriods)}
	}
}

func (e *Engine) handlePeriodSelection(ctx context.Context, s domain.Session, input string) (domain.Session, []Reply) {
	if input == "0" || input == "00" {
		return s.Enter(domain.StateMain), nil
	}
	listing, ok := s.Scratch.(domain.PeriodListing)
	if !ok {
		return e.listPeriods(ctx, s)
	}
	i, ok := pick(input, len(listing.Periods))
	if !ok {
		return s, []Reply{textReply(msgInvalidSelection), periodsReply(listing)}
	}
	return e.showResults(ctx, s, listing.Periods[i])
}

// showResults fetches one period and routes on the classified outcome.
func (e *Engine) showResults(ctx context.Context, s domain.Session, period domain.ResultPeriod) (domain.Session, []Reply) {
	res := e.portal.FetchResults(ctx, s.Auth.SubjectName, s.Auth.Token, period.PeriodID)
	switch {
	case res.Kind == portal.KindBusiness && res.Business == portal.BusinessInsufficientBalance:
		due := domain.BalanceDue{Period: period, CurrentBalance: res.CurrentBalance}
		return s.Enter(domain.StateGradesBalanceError).WithScratch(due), []Reply{balanceReply(due)}
	case !res.OK():
		return failure(s, res.Outcome)
	}

	if len(res.Data.Modules) == 0 {
		empty := domain.EmptyResults{Period: period}
		return s.Enter(domain.StateGradesEmptyResults).WithScratch(empty), []Reply{emptyResultsReply(empty)}
	}
	listing := domain.ResultsListing{Period: period, Modules: res.Data.Modules}
	return s.Enter(domain.StateGradesModuleSelection).WithScratch(listing), []Reply{resultsReply(listing)}
}

// gradeSummary aggregates a period's modules.
type gradeSummary struct {
	Attempted float64
	Passed    float64
	GPA       float64
	PassRate  int
}

func summarize(modules []domain.ModuleResult) gradeSummary {
	var sum gradeSummary
	var weighted float64
	for _, m := range modules {
		credits := m.Credits.Float()
		sum.Attempted += credits
		if m.Passed() {
			sum.Passed += credits
			weighted += m.Score.Float() * credits
		}
	}
	if sum.Attempted > 0 {
		sum.GPA = math.Round(weighted/sum.Attempted*100) / 100
		sum.PassRate = int(math.Round(sum.Passed / sum.Attempted * 100))
	}
	return sum
}

// GPAText is the GPA with two decimals, or N/A when nothing was attempted.
func (g gradeSummary) GPAText() string {
	if g.Attempted == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", g.GPA)
}

func resultsReply(l domain.ResultsListing) Reply {
	sum := summarize(l.Modules)
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Results: %s*\n\n", l.Period.PeriodName)
	fmt.Fprintf(&b, "GPA: *%s*\n", sum.GPAText())
	fmt.Fprintf(&b, "Credits attempted: %s\n", number(sum.Attempted))
	fmt.Fprintf(&b, "Credits passed: %s\n", number(sum.Passed))
	fmt.Fprintf(&b, "Pass rate: %d%%\n\n", sum.PassRate)
	b.WriteString("*Modules*\n")
	for i, m := range l.Modules {
		mark := "❌"
		if m.Passed() {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%d. %s %s %s: %s (%s%%)\n", i+1, mark, m.ModuleCode, m.ModuleName, orDash(m.Grade), m.Score)
	}
	b.WriteString("\nReply with a module number for details.\n0. Back to periods\n00. Main menu")
	return textReply(b.String())
}

func gradeBand(score float64) (emoji, comment string) {
	switch {
	case score >= 80:
		return "🏆", "Excellent work!"
	case score >= 70:
		return "🥇", "Great job!"
	case score >= 60:
		return "🥈", "Good work!"
	case score >= 50:
		return "🥉", "Satisfactory."
	default:
		return "📉", "Keep working, you can improve!"
	}
}

func moduleResultReply(m domain.ModuleResult) Reply {
	emoji, comment := gradeBand(m.Score.Float())
	status := "Failed"
	if m.Passed() {
		status = "Passed"
	}
	if m.Status != "" {
		status = m.Status
	}
	lines := []string{
		fmt.Sprintf("%s *%s*", emoji, m.ModuleName),
		"",
		"Code: " + orDash(m.ModuleCode),
		"Grade: " + orDash(m.Grade),
		"Score: " + m.Score.String() + "%",
		"Credits: " + m.Credits.String(),
		"Status: " + status,
	}
	if m.Comment != "" {
		lines = append(lines, "Remark: "+m.Comment)
	}
	lines = append(lines, "", comment, "", "Reply with another module number, 0 for periods or 00 for the main menu.")
	return textReply(lines...)
}

func (e *Engine) handleModuleSelection(ctx context.Context, s domain.Session, input string) (domain.Session, []Reply) {
	switch input {
	case "0":
		return e.listPeriods(ctx, s)
	case "00":
		return s.Enter(domain.StateMain), nil
	}
	listing, ok := s.Scratch.(domain.ResultsListing)
	if !ok {
		return e.listPeriods(ctx, s)
	}
	i, ok := pick(input, len(listing.Modules))
	if !ok {
		return s, []Reply{textReply(msgInvalidSelection), resultsReply(listing)}
	}
	return s, []Reply{moduleResultReply(listing.Modules[i])}
}

func emptyResultsReply(r domain.EmptyResults) Reply {
	return textReply(
		fmt.Sprintf("📭 No results have been published for *%s* yet.", r.Period.PeriodName),
		"",
		"0. Back to periods",
		"00. Main menu",
	)
}

func (e *Engine) handleEmptyResults(ctx context.Context, s domain.Session, input string) (domain.Session, []Reply) {
	switch input {
	case "0":
		return e.listPeriods(ctx, s)
	case "00":
		return s.Enter(domain.StateMain), nil
	}
	empty, _ := s.Scratch.(domain.EmptyResults)
	return s, []Reply{textReply(msgInvalidOption), emptyResultsReply(empty)}
}

func balanceReply(d domain.BalanceDue) Reply {
	body := strings.Join([]string{
		fmt.Sprintf("Your results for *%s* are withheld because of an outstanding balance.", d.Period.PeriodName),
		"",
		"Current balance: *" + money(d.CurrentBalance) + "*",
		"",
		"0. Back to periods",
		"00. Main menu",
	}, "\n")
	return menuReply("⚠️ Results Unavailable", body, "View financial statement", "Payment instructions")
}

const paymentInstructions = `💳 *Payment Instructions*

Pay at any branch or through internet banking using your registration number as the reference.

*Bank:* CBZ Bank
*Account name:* Chinhoyi University of Technology
*Branch:* Chinhoyi

Bring or upload your proof of payment to the Bursary. Results are released once the payment reflects.

1. View financial statement
0. Back to periods
00. Main menu`

func (e *Engine) handleBalanceError(ctx context.Context, s domain.Session, input string) (domain.Session, []Reply) {
	due, _ := s.Scratch.(domain.BalanceDue)
	switch input {
	case "1":
		res := e.portal.FetchHomeData(ctx, s.Auth.SubjectName, s.Auth.Token)
		if !res.OK() {
			return failure(s, res.Outcome)
		}
		return s, []Reply{statementReply(res.Data.Bursary, due)}
	case "2":
		return s, []Reply{textReply(paymentInstructions)}
	case "0":
		return e.listPeriods(ctx, s)
	case "00":
		return s.Enter(domain.StateMain), nil
	default:
		return s, []Reply{textReply(msgInvalidOption), balanceReply(due)}
	}
}

func statementReply(b domain.Bursary, due domain.BalanceDue) Reply {
	var sb strings.Builder
	sb.WriteString("📄 *Financial Statement*\n\n")
	if b.PastelAccount != "" {
		fmt.Fprintf(&sb, "Account: %s\n", b.PastelAccount)
	}
	fmt.Fprintf(&sb, "Balance due: *%s*\n\n", money(due.CurrentBalance))
	writeStatements(&sb, latest(b.Statements, recentLimit))
	sb.WriteString("\n2. Payment instructions\n0. Back to periods\n00. Main menu")
	return textReply(sb.String())
}
