package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Number decodes a JSON number that the portal sometimes sends as a string.
type Number float64

// UnmarshalJSON accepts 12, 12.5, "12" and "12.5". Empty or null is zero.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Float returns n as a float64.
func (n Number) Float() float64 { return float64(n) }

// String formats n without trailing zeros.
func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

// ResultPeriod is an academic period that has published results.
type ResultPeriod struct {
	PeriodID   string `json:"period_id"`
	PeriodName string `json:"period_name"`
}

// StudentResults is the results payload for one period.
type StudentResults struct {
	Modules    []ModuleResult `json:"modules"`
	PeriodName string         `json:"periodname"`
}

// ModuleResult is a graded module.
type ModuleResult struct {
	ModuleCode string `json:"module_code"`
	ModuleName string `json:"module_name"`
	Grade      string `json:"grade"`
	Score      Number `json:"score"`
	Credits    Number `json:"credits"`
	Status     string `json:"status"`
	Comment    string `json:"comment,omitempty"`
}

// Passed reports whether the module counts toward passed credits.
func (m ModuleResult) Passed() bool { return m.Score >= 50 }

// WifiStatus is the current campus WiFi state.
type WifiStatus struct {
	Active  bool
	Message string
}

// WifiActivation is the body returned by the activation endpoint.
type WifiActivation struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// HomeData is the aggregated student dashboard payload.
type HomeData struct {
	Registration Registration `json:"registration"`
	VLE          struct {
		Status       bool   `json:"status"`
		ClassesReady Number `json:"classes_ready"`
	} `json:"vle"`
	Accounts Accounts `json:"accounts"`
	Bursary  Bursary  `json:"bursary"`
	BankRate struct {
		Rate string `json:"rate"`
	} `json:"bankRate"`
	Notices []Notice       `json:"notice"`
	Profile StudentProfile `json:"profile"`
}

// Registration holds the current period, programme and enrolled modules.
type Registration struct {
	Period struct {
		PeriodID       string `json:"period_id"`
		CurrentSession string `json:"current_session"`
		StartDate      string `json:"start_date"`
		EndDate        string `json:"end_date"`
		PeriodName     string `json:"period_name"`
	} `json:"period"`
	Program struct {
		AttendanceTypeName string `json:"attendance_type_name"`
		ProgrammeName      string `json:"programme_name"`
		ProgrammeCode      string `json:"programme_code"`
		FacultyName        string `json:"faculty_name"`
		Level              string `json:"level"`
		Completed          bool   `json:"completed"`
	} `json:"program"`
	Modules      []CourseModule `json:"modules"`
	IsRegistered bool           `json:"is_registered"`
}

// CourseModule is a module the student is registered for.
type CourseModule struct {
	ModuleName       string            `json:"module_name"`
	ModuleID         string            `json:"module_id"`
	ModuleCode       string            `json:"module_code"`
	ModuleUnitCode   string            `json:"module_unit_code"`
	PeriodID         string            `json:"period_id"`
	IsEvaluable      string            `json:"is_evaluable"`
	Posts            []json.RawMessage `json:"posts"`
	PastExamPapers   []PastExamPaper   `json:"past_exam_papers"`
	ReadingMaterials []json.RawMessage `json:"reading_materials"`
	Assignments      []json.RawMessage `json:"assignments"`
	CourseWork       []json.RawMessage `json:"course_work"`
	VLEStatus        bool              `json:"vle_status"`
}

// Code returns the display code, module code followed by unit code.
func (m CourseModule) Code() string { return m.ModuleCode + m.ModuleUnitCode }

// PastExamPaper is a downloadable past paper.
type PastExamPaper struct {
	PastExamPaperID string `json:"past_exam_paper_id"`
	Year            string `json:"year"`
	Description     string `json:"description"`
	DocumentPath    string `json:"document_path"`
}

// Accounts lists campus service activations.
type Accounts struct {
	Wifi          bool            `json:"wifi"`
	StudentIDCard bool            `json:"student_id_card"`
	Canteen       bool            `json:"canteen"`
	Accommodation json.RawMessage `json:"accomodation"`
}

// Bursary is the student's finance account.
type Bursary struct {
	PastelAccount string      `json:"pastel_account"`
	Statements    []Statement `json:"statements"`
}

// Statement is one ledger line. Amounts arrive as decimal strings.
type Statement struct {
	Debit           string `json:"debit"`
	Credit          string `json:"credit"`
	TransactionDate string `json:"transaction_date"`
	Description     string `json:"transaction_description"`
	ReferenceNumber string `json:"reference_number"`
}

// DebitAmount parses Debit, treating malformed values as zero.
func (s Statement) DebitAmount() float64 { return parseAmount(s.Debit) }

// CreditAmount parses Credit, treating malformed values as zero.
func (s Statement) CreditAmount() float64 { return parseAmount(s.Credit) }

func parseAmount(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0
	}
	return f
}

// Notice is a portal announcement.
type Notice struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Date  string `json:"date"`
	Link  string `json:"link"`
}

// StudentProfile is the personal record of the student.
type StudentProfile struct {
	FirstName            string `json:"first_name"`
	Surname              string `json:"surname"`
	Nationality          string `json:"nationality"`
	NationalID           string `json:"national_id"`
	PlaceOfBirth         string `json:"place_of_birth"`
	EmailAddress         string `json:"email_address"`
	PhoneNumbers         string `json:"phone_numbers"`
	ContactAddress       string `json:"contact_address"`
	PermanentHomeAddress string `json:"permanent_home_address"`
	DateOfBirth          string `json:"date_of_birth"`
	MaritalStatus        string `json:"marital_status"`
	Religion             string `json:"religion"`
	Title                string `json:"title"`
	Sex                  string `json:"sex"`
	StudentID            string `json:"student_id"`
}
