package domain

import "strings"

// State names one node of the conversation state machine. States are named
// <domain> or <domain>_<substep>.
type State string

const (
	StateLogin State = "login"
	StateMain  State = "main"

	StateProfile State = "profile"

	StateCourses              State = "courses"
	StateCoursesModuleDetails State = "courses_module_details"

	StateGrades                State = "grades"
	StateGradesPeriodSelection State = "grades_period_selection"
	StateGradesModuleSelection State = "grades_module_selection"
	StateGradesEmptyResults    State = "grades_empty_results"
	StateGradesBalanceError    State = "grades_balance_error"

	StateFinances State = "finances"

	StateWifi       State = "wifi"
	StateWifiStatus State = "wifi_status"

	StateAnnouncements State = "announcements"
)

var knownStates = map[State]struct{}{
	StateLogin:                 {},
	StateMain:                  {},
	StateProfile:               {},
	StateCourses:               {},
	StateCoursesModuleDetails:  {},
	StateGrades:                {},
	StateGradesPeriodSelection: {},
	StateGradesModuleSelection: {},
	StateGradesEmptyResults:    {},
	StateGradesBalanceError:    {},
	StateFinances:              {},
	StateWifi:                  {},
	StateWifiStatus:            {},
	StateAnnouncements:         {},
}

// Domain returns the top-level prefix of the state name.
func (s State) Domain() string {
	if i := strings.IndexByte(string(s), '_'); i >= 0 {
		return string(s[:i])
	}
	return string(s)
}

// Known reports whether s is one of the defined states.
func (s State) Known() bool {
	_, ok := knownStates[s]
	return ok
}
