package domain

// Scratch is working data left by a listing screen for the input handler of
// the state it was rendered in. A variant is only meaningful in its own
// state, and every variant is dropped when the session leaves the domain.
type Scratch interface {
	ScratchState() State
}

// PeriodListing backs grades_period_selection.
type PeriodListing struct {
	Periods []ResultPeriod
}

func (PeriodListing) ScratchState() State { return StateGradesPeriodSelection }

// ResultsListing backs grades_module_selection.
type ResultsListing struct {
	Period  ResultPeriod
	Modules []ModuleResult
}

func (ResultsListing) ScratchState() State { return StateGradesModuleSelection }

// EmptyResults backs grades_empty_results.
type EmptyResults struct {
	Period ResultPeriod
}

func (EmptyResults) ScratchState() State { return StateGradesEmptyResults }

// BalanceDue backs grades_balance_error.
type BalanceDue struct {
	Period         ResultPeriod
	CurrentBalance float64
}

func (BalanceDue) ScratchState() State { return StateGradesBalanceError }

// ModuleListing backs courses_module_details.
type ModuleListing struct {
	Modules []CourseModule
}

func (ModuleListing) ScratchState() State { return StateCoursesModuleDetails }

// NoticeListing backs announcements.
type NoticeListing struct {
	Notices []Notice
}

func (NoticeListing) ScratchState() State { return StateAnnouncements }

// WifiStatusView backs wifi_status.
type WifiStatusView struct {
	Status WifiStatus
}

func (WifiStatusView) ScratchState() State { return StateWifiStatus }
