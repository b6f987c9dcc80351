package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/portal-gateway/internal/domain"
	"github.com/ashureev/portal-gateway/internal/portal"
	"github.com/ashureev/portal-gateway/internal/session"
)

const testPhone = "263771234567"

type fakePortal struct {
	mu         sync.Mutex
	home       portal.Result[domain.HomeData]
	wifi       portal.Result[domain.WifiStatus]
	activation portal.Result[domain.WifiActivation]
	periods    portal.Result[[]domain.ResultPeriod]
	results    map[string]portal.Result[domain.StudentResults]
	panicOn    string
	calls      map[string]int
}

func (p *fakePortal) hit(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = make(map[string]int)
	}
	p.calls[name]++
	if p.panicOn == name {
		panic("fake portal failure")
	}
}

func (p *fakePortal) count(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[name]
}

func (p *fakePortal) FetchHomeData(context.Context, string, string) portal.Result[domain.HomeData] {
	p.hit("home")
	return p.home
}

func (p *fakePortal) FetchWifiStatus(context.Context, string, string) portal.Result[domain.WifiStatus] {
	p.hit("wifi")
	return p.wifi
}

func (p *fakePortal) ActivateWifi(context.Context, string, string) portal.Result[domain.WifiActivation] {
	p.hit("activate")
	return p.activation
}

func (p *fakePortal) FetchResultPeriods(context.Context, string, string) portal.Result[[]domain.ResultPeriod] {
	p.hit("periods")
	return p.periods
}

func (p *fakePortal) FetchResults(_ context.Context, _, _, periodID string) portal.Result[domain.StudentResults] {
	p.hit("results")
	return p.results[periodID]
}

type fakeAuth struct {
	result portal.AuthResult
	panics bool
	calls  []string
}

func (a *fakeAuth) Login(_ context.Context, username, _ string) portal.AuthResult {
	a.calls = append(a.calls, username)
	if a.panics {
		panic("fake auth failure")
	}
	return a.result
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (m *fakeMessenger) SendText(_ context.Context, _, text string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, text)
	return !m.fail
}

func (m *fakeMessenger) SendMenu(ctx context.Context, to, header, body string, options []string) bool {
	return m.SendText(ctx, to, Reply{Header: header, Body: body, Options: options}.String())
}

type fakeJournal struct {
	mu     sync.Mutex
	events []domain.MessageEvent
}

func (j *fakeJournal) Record(_ context.Context, ev *domain.MessageEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, *ev)
	return nil
}

func (j *fakeJournal) Recent(context.Context, string, int) ([]domain.MessageEvent, error) {
	return nil, nil
}

func (j *fakeJournal) Prune(context.Context, time.Duration) (int64, error) { return 0, nil }
func (j *fakeJournal) Ping(context.Context) error                          { return nil }
func (j *fakeJournal) Close() error                                        { return nil }

func newTestEngine(p *fakePortal, a *fakeAuth) (*Engine, *session.MemoryStore, *fakeMessenger) {
	st := session.NewMemoryStore()
	m := &fakeMessenger{}
	return NewEngine(st, a, p, m), st, m
}

// authed returns a signed-in session sitting in state.
func authed(state domain.State) domain.Session {
	s := domain.NewSession(testPhone, "", domain.StateLogin, time.Now()).SignIn("C21001234", "tok")
	s.State = state
	return s
}

func samplePeriods() []domain.ResultPeriod {
	return []domain.ResultPeriod{
		{PeriodID: "p1", PeriodName: "2024 Semester 1"},
		{PeriodID: "p2", PeriodName: "2024 Semester 2"},
	}
}

func sampleModules() []domain.ModuleResult {
	return []domain.ModuleResult{
		{ModuleCode: "CS101", ModuleName: "Programming", Grade: "1", Score: 80, Credits: 4},
		{ModuleCode: "CS102", ModuleName: "Databases", Grade: "F", Score: 40, Credits: 2},
		{ModuleCode: "CS103", ModuleName: "Networks", Grade: "2.1", Score: 65, Credits: 4},
	}
}

func mustState(t *testing.T, got, want domain.State) {
	t.Helper()
	if got != want {
		t.Fatalf("state = %q, want %q", got, want)
	}
}

var fixedNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestStore() *session.MemoryStore { return session.NewMemoryStore() }

func sampleHome() domain.HomeData {
	var h domain.HomeData
	h.Profile = domain.StudentProfile{FirstName: "Tariro", Surname: "Moyo", StudentID: "C21001234"}
	h.Registration.Modules = []domain.CourseModule{
		{ModuleName: "Programming", ModuleCode: "CS", ModuleUnitCode: "101", IsEvaluable: "1", VLEStatus: true,
			PastExamPapers: []domain.PastExamPaper{
				{Year: "2023", Description: "CS101 - Final"},
				{Year: "2022", Description: "CS101 - Supplementary"},
				{Year: "2021", Description: "CS101"},
				{Year: "2020", Description: "CS101 - Final"},
			}},
		{ModuleName: "Databases", ModuleCode: "CS", ModuleUnitCode: "102"},
	}
	h.Bursary = domain.Bursary{
		PastelAccount: "CUT0042",
		Statements: []domain.Statement{
			{Debit: "500.00", Credit: "0", TransactionDate: "2025-02-01", Description: "Tuition"},
			{Debit: "0", Credit: "300.00", TransactionDate: "2025-02-10", Description: "Payment", ReferenceNumber: "R1"},
			{Debit: "50.00", Credit: "0", TransactionDate: "2025-02-11", Description: "Library"},
		},
	}
	h.Notices = []domain.Notice{
		{Title: "Exams timetable", Body: "The timetable is out.", Date: "2025-02-20"},
		{Title: "Graduation", Body: "Graduation is on 5 May.", Link: "https://www.cut.ac.zw"},
	}
	return h
}
