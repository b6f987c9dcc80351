package conversation

import (
	"context"
	"strings"
	"testing"

	"github.com/ashureev/portal-gateway/internal/domain"
	"github.com/ashureev/portal-gateway/internal/portal"
)

func TestFinanceScreens(t *testing.T) {
	h := sampleHome()
	if got := accountBalance(h.Bursary.Statements); got != -250 {
		t.Fatalf("balance = %v, want -250", got)
	}
	if body := balanceScreen(h).Body; !strings.Contains(body, "Outstanding balance") || !strings.Contains(body, "$-250.00") {
		t.Fatalf("balance screen = %q", body)
	}
	if body := outstandingScreen(h).Body; !strings.Contains(body, "Total Outstanding:* $550.00") {
		t.Fatalf("outstanding screen = %q", body)
	}
	if body := paymentsScreen(h).Body; !strings.Contains(body, "Total Payments:* $300.00") || !strings.Contains(body, "10 Feb 2025") {
		t.Fatalf("payments screen = %q", body)
	}
}

func TestPaymentHistoryIsCapped(t *testing.T) {
	var h domain.HomeData
	for i := 0; i < 12; i++ {
		h.Bursary.Statements = append(h.Bursary.Statements, domain.Statement{Credit: "10", Debit: "0"})
	}
	if body := paymentsScreen(h).Body; !strings.Contains(body, "$80.00") {
		t.Fatalf("payments screen = %q", body)
	}
}

func TestFinancesStayInMenu(t *testing.T) {
	p := &fakePortal{home: portal.Result[domain.HomeData]{Data: sampleHome()}}
	e, _, _ := newTestEngine(p, &fakeAuth{})

	next, replies := e.Step(context.Background(), authed(domain.StateFinances), "2")
	mustState(t, next.State, domain.StateFinances)
	if !strings.Contains(replies[0].Body, "Recent Transactions") {
		t.Fatalf("reply = %q", replies[0].Body)
	}

	next, _ = e.Step(context.Background(), next, "5")
	mustState(t, next.State, domain.StateMain)
}

func TestPaperLabel(t *testing.T) {
	cases := map[string]string{"CS101 - Final": "Final", "CS101": "Exam", "A - B - C": "B"}
	for desc, want := range cases {
		if got := paperLabel(domain.PastExamPaper{Description: desc}); got != want {
			t.Errorf("paperLabel(%q) = %q, want %q", desc, got, want)
		}
	}
}

func TestPastPapersShowLatestThree(t *testing.T) {
	body := pastPapersScreen(sampleHome().Registration.Modules).Body
	if strings.Contains(body, "2020") || !strings.Contains(body, "2021 - Exam") {
		t.Fatalf("past papers = %q", body)
	}
}

func TestCourseModuleDetails(t *testing.T) {
	p := &fakePortal{home: portal.Result[domain.HomeData]{Data: sampleHome()}}
	e, _, _ := newTestEngine(p, &fakeAuth{})
	ctx := context.Background()

	next, _ := e.Step(ctx, authed(domain.StateCourses), "2")
	mustState(t, next.State, domain.StateCoursesModuleDetails)

	shown, replies := e.Step(ctx, next, "1")
	mustState(t, shown.State, domain.StateCoursesModuleDetails)
	if !strings.Contains(replies[0].Body, "CS101") || !strings.Contains(replies[0].Body, "Past Exam Papers: 4") {
		t.Fatalf("detail = %q", replies[0].Body)
	}

	_, replies = e.Step(ctx, next, "3")
	if replies[0].Body != msgInvalidSelection {
		t.Fatalf("reply = %q", replies[0].Body)
	}

	back, replies := e.Step(ctx, next, "0")
	mustState(t, back.State, domain.StateCourses)
	if back.Scratch != nil || !replies[0].IsMenu() {
		t.Fatalf("back = %+v replies = %+v", back, replies)
	}
}

func TestWifiAlreadyActiveSkipsActivation(t *testing.T) {
	p := &fakePortal{wifi: portal.Result[domain.WifiStatus]{Data: domain.WifiStatus{Active: true}}}
	e, _, _ := newTestEngine(p, &fakeAuth{})

	next, replies := e.Step(context.Background(), authed(domain.StateWifi), "2")
	mustState(t, next.State, domain.StateWifiStatus)
	if p.count("activate") != 0 {
		t.Fatal("activation called while already active")
	}
	if !strings.Contains(replies[0].Body, "Already Active") {
		t.Fatalf("reply = %q", replies[0].Body)
	}
}

func TestWifiActivation(t *testing.T) {
	p := &fakePortal{activation: portal.Result[domain.WifiActivation]{Data: domain.WifiActivation{Error: true, Message: "Quota reached"}}}
	e, _, _ := newTestEngine(p, &fakeAuth{})
	ctx := context.Background()

	next, replies := e.Step(ctx, authed(domain.StateWifiStatus), "2")
	mustState(t, next.State, domain.StateWifiStatus)
	if !strings.Contains(replies[0].Body, "Activation Failed") || !strings.Contains(replies[0].Body, "Quota reached") {
		t.Fatalf("reply = %q", replies[0].Body)
	}

	p.activation = portal.Result[domain.WifiActivation]{Data: domain.WifiActivation{Message: "Activated"}}
	next, replies = e.Step(ctx, next, "2")
	view, ok := next.Scratch.(domain.WifiStatusView)
	if !ok || !view.Status.Active || !strings.Contains(replies[0].Body, "Successful") {
		t.Fatalf("scratch = %#v reply = %q", next.Scratch, replies[0].Body)
	}

	next, replies = e.Step(ctx, next, "0")
	mustState(t, next.State, domain.StateWifi)
	if !replies[0].IsMenu() {
		t.Fatalf("reply = %+v", replies[0])
	}
}

func TestAnnouncements(t *testing.T) {
	p := &fakePortal{home: portal.Result[domain.HomeData]{Data: sampleHome()}}
	e, _, _ := newTestEngine(p, &fakeAuth{})
	ctx := context.Background()

	next, replies := e.Step(ctx, authed(domain.StateMain), "6")
	mustState(t, next.State, domain.StateAnnouncements)
	if !strings.Contains(replies[0].Body, "1. Exams timetable (20 Feb 2025)") {
		t.Fatalf("listing = %q", replies[0].Body)
	}

	_, replies = e.Step(ctx, next, "2")
	if !strings.Contains(replies[0].Body, "Graduation is on 5 May.") || !strings.Contains(replies[0].Body, "https://www.cut.ac.zw") {
		t.Fatalf("detail = %q", replies[0].Body)
	}

	_, replies = e.Step(ctx, next, "3")
	if replies[0].Body != msgInvalidSelection {
		t.Fatalf("reply = %q", replies[0].Body)
	}
	if p.count("home") != 1 {
		t.Fatalf("home data fetched %d times", p.count("home"))
	}
}

func TestProfileScreens(t *testing.T) {
	p := &fakePortal{home: portal.Result[domain.HomeData]{Data: sampleHome()}}
	e, _, _ := newTestEngine(p, &fakeAuth{})

	next, replies := e.Step(context.Background(), authed(domain.StateProfile), "1")
	mustState(t, next.State, domain.StateProfile)
	if !strings.Contains(replies[0].Body, "Tariro Moyo") {
		t.Fatalf("personal = %q", replies[0].Body)
	}
	if got := accommodation([]byte(`"Block A"`)); got != "Block A" {
		t.Fatalf("accommodation = %q", got)
	}
	if got := accommodation([]byte(`null`)); got != "Not Assigned" {
		t.Fatalf("accommodation = %q", got)
	}
}
