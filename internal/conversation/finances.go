package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashureev/portal-gateway/internal/domain"
)

const (
	recentLimit   = 5
	paymentsLimit = 8
	screenFooter  = "Reply with another option number, 0 to go back or 00 for the main menu."
)

func financesMenu() Reply {
	return menuReply("💰 Finances", "Choose what you would like to see:",
		"Account balance",
		"Recent transactions",
		"Payment history",
		"Outstanding fees",
		"Back to main menu",
	)
}

func (e *Engine) handleFinances(ctx context.Context, s domain.Session, input string) (domain.Session, []Reply) {
	var render func(domain.HomeData) Reply
	switch input {
	case "0", "00", "5":
		return s.Enter(domain.StateMain), nil
	case "1":
		render = balanceScreen
	case "2":
		render = recentScreen
	case "3":
		render = paymentsScreen
	case "4":
		render = outstandingScreen
	default:
		return s, []Reply{textReply(msgInvalidOption), financesMenu()}
	}
	res := e.portal.FetchHomeData(ctx, s.Auth.SubjectName, s.Auth.Token)
	if !res.OK() {
		return failure(s, res.Outcome)
	}
	return s, []Reply{render(res.Data)}
}

// accountBalance is the sum of credits minus debits.
func accountBalance(statements []domain.Statement) float64 {
	var total float64
	for _, st := range statements {
		total += st.CreditAmount() - st.DebitAmount()
	}
	return total
}

func balanceScreen(h domain.HomeData) Reply {
	balance := accountBalance(h.Bursary.Statements)
	standing := "✅ Account in good standing"
	if balance < 0 {
		standing = "⚠️ Outstanding balance"
	}
	return textReply(
		"💰 *Account Balance*",
		"",
		"🏦 *Account:* "+orDash(h.Bursary.PastelAccount),
		"💵 *Current Balance:* "+money(balance),
		"📈 *Exchange Rate:* "+orDash(h.BankRate.Rate)+" ZWL/USD",
		"",
		standing,
		"",
		screenFooter,
	)
}

// latest returns the first n statements; the portal lists newest first.
func latest(statements []domain.Statement, n int) []domain.Statement {
	if len(statements) > n {
		return statements[:n]
	}
	return statements
}

func writeStatements(b *strings.Builder, statements []domain.Statement) {
	if len(statements) == 0 {
		b.WriteString("No transactions found.\n")
		return
	}
	for _, st := range statements {
		if credit := st.CreditAmount(); credit > 0 {
			fmt.Fprintf(b, "💚 *+%s*\n", money(credit))
		} else {
			fmt.Fprintf(b, "❤️ *-%s*\n", money(st.DebitAmount()))
		}
		fmt.Fprintf(b, "📅 %s\n📝 %s\n", displayDate(st.TransactionDate), orDash(st.Description))
		if st.ReferenceNumber != "" {
			fmt.Fprintf(b, "🔗 %s\n", st.ReferenceNumber)
		}
		b.WriteString("\n")
	}
}

func recentScreen(h domain.HomeData) Reply {
	var b strings.Builder
	b.WriteString("💰 *Recent Transactions*\n\n")
	writeStatements(&b, latest(h.Bursary.Statements, recentLimit))
	b.WriteString("\n" + screenFooter)
	return textReply(b.String())
}

func paymentsScreen(h domain.HomeData) Reply {
	var payments []domain.Statement
	for _, st := range h.Bursary.Statements {
		if st.CreditAmount() > 0 {
			payments = append(payments, st)
		}
	}
	if len(payments) == 0 {
		return textReply("💰 *Payment History*", "", "❌ No payments found.", "", screenFooter)
	}
	payments = latest(payments, paymentsLimit)

	var b strings.Builder
	var total float64
	b.WriteString("💰 *Payment History*\n\n")
	for _, p := range payments {
		amount := p.CreditAmount()
		total += amount
		fmt.Fprintf(&b, "💚 *+%s*\n📅 %s\n📝 %s\n\n", money(amount), displayDate(p.TransactionDate), orDash(p.Description))
	}
	fmt.Fprintf(&b, "💵 *Total Payments:* %s\n\n%s", money(total), screenFooter)
	return textReply(b.String())
}

func outstandingScreen(h domain.HomeData) Reply {
	var b strings.Builder
	var total float64
	b.WriteString("💰 *Outstanding Fees*\n\n")
	for _, st := range h.Bursary.Statements {
		amount := st.DebitAmount()
		if amount <= 0 {
			continue
		}
		total += amount
		fmt.Fprintf(&b, "❤️ *%s*\n📅 %s\n📝 %s\n\n", money(amount), displayDate(st.TransactionDate), orDash(st.Description))
	}
	if total == 0 {
		return textReply("💰 *Outstanding Fees*", "", "✅ No outstanding fees found.", "", screenFooter)
	}
	fmt.Fprintf(&b, "💸 *Total Outstanding:* %s\n\n%s", money(total), screenFooter)
	return textReply(b.String())
}
