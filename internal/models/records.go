package models

import (
	"bytes"
	"encoding/json"
	"io"
	"net/url"
	"strings"
)

// Employee status values.
const (
	EmployeeStatusPresent   = "Present"
	EmployeeStatusProbation = "Probation"
	EmployeeStatusLeft      = "Left"
)

// Attendance status values.
const (
	AttendancePresent = "Present"
	AttendanceAbsent  = "Absent"
	AttendanceHalfDay = "Half-Day"
)

// Leave status values.
const (
	LeavePending  = "Pending"
	LeaveApproved = "Approved"
	LeaveRejected = "Rejected"
)

// Leave types.
const (
	LeaveSick   = "Sick"
	LeaveCasual = "Casual"
	LeaveEarned = "Earned"
)

// Candidate is a job applicant tracked by HR.
type Candidate struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Position  string `json:"position,omitempty"`
	ResumeURL string `json:"resumeUrl,omitempty"`
}

// Employee is a member of staff.
type Employee struct {
	ID               string `json:"_id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Role             string `json:"role,omitempty"`
	EmploymentStatus string `json:"employmentStatus,omitempty"`
}

// EmployeeRef is the employee field of attendance and leave records. The
// backend sends either a bare id or the populated employee document.
type EmployeeRef struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
}

// UnmarshalJSON accepts a string id or an object.
func (e *EmployeeRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*e = EmployeeRef{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*e = EmployeeRef{ID: id}
		return nil
	}

	type plain EmployeeRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = EmployeeRef(p)
	return nil
}

// DisplayName returns the employee name, or "Unknown" when not populated.
func (e EmployeeRef) DisplayName() string {
	if e.Name == "" {
		return "Unknown"
	}
	return e.Name
}

// Attendance is a single day's attendance mark.
type Attendance struct {
	ID       string      `json:"_id"`
	Employee EmployeeRef `json:"employee"`
	Date     string      `json:"date"`
	Status   string      `json:"status"`
}

// Day returns the YYYY-MM-DD part of the record date.
func (a Attendance) Day() string {
	return datePart(a.Date)
}

// Leave is a leave request.
type Leave struct {
	ID        string      `json:"_id"`
	Employee  EmployeeRef `json:"employee"`
	Type      string      `json:"type,omitempty"`
	Status    string      `json:"status"`
	StartDate string      `json:"startDate,omitempty"`
	EndDate   string      `json:"endDate,omitempty"`
	DocsURL   string      `json:"docsUrl,omitempty"`
}

// Pending reports whether the leave can still be approved or rejected.
func (l Leave) Pending() bool {
	return l.Status == LeavePending
}

// Period returns the leave range formatted as "start → end".
func (l Leave) Period() string {
	return datePart(l.StartDate) + " → " + datePart(l.EndDate)
}

func datePart(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

// NewCandidate is the input for adding a candidate. Resume is optional and is
// uploaded as a PDF.
type NewCandidate struct {
	Name       string    `json:"name" validate:"required"`
	Email      string    `json:"email" validate:"required,email"`
	Phone      string    `json:"phone" validate:"required"`
	Position   string    `json:"position"`
	Resume     io.Reader `json:"-"`
	ResumeName string    `json:"-"`
}

// Validate checks the candidate form.
func (n NewCandidate) Validate() error {
	return validateStruct(n)
}

// NewAttendance is the input for marking attendance.
type NewAttendance struct {
	Employee string `json:"employee" validate:"required"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Status   string `json:"status" validate:"required,oneof=Present Absent Half-Day"`
}

// Validate checks the attendance form.
func (n NewAttendance) Validate() error {
	return validateStruct(n)
}

// NewLeave is the input for filing a leave request.
type NewLeave struct {
	Employee  string `json:"employee" validate:"required"`
	Type      string `json:"type" validate:"required,oneof=Sick Casual Earned"`
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
}

// Validate checks the leave form, including the date order.
func (n NewLeave) Validate() error {
	if err := validateStruct(n); err != nil {
		return err
	}
	// both dates are YYYY-MM-DD so they compare lexically
	if n.EndDate < n.StartDate {
		return &ValidationError{
			Fields:   map[string]string{"endDate": "endDate must not be before startDate"},
			Messages: []string{"endDate must not be before startDate"},
		}
	}
	return nil
}

// LeaveStatusUpdate is the body of a leave status change.
type LeaveStatusUpdate struct {
	Status string `json:"status" validate:"required,oneof=Approved Rejected Pending"`
}

// Validate checks the requested status.
func (u LeaveStatusUpdate) Validate() error {
	return validateStruct(u)
}

// CandidateFilter narrows the candidate list.
type CandidateFilter struct {
	Search string
}

// Query encodes the filter as list query parameters.
func (f CandidateFilter) Query() url.Values {
	q := url.Values{}
	setTrimmed(q, "search", f.Search)
	return q
}

// EmployeeFilter narrows the employee list.
type EmployeeFilter struct {
	Search string
	Status string
}

// Query encodes the filter as list query parameters.
func (f EmployeeFilter) Query() url.Values {
	q := url.Values{}
	setTrimmed(q, "search", f.Search)
	setTrimmed(q, "status", f.Status)
	return q
}

// AttendanceFilter narrows the attendance list.
type AttendanceFilter struct {
	Employee string
	Date     string
	Status   string
}

// Query encodes the filter as list query parameters.
func (f AttendanceFilter) Query() url.Values {
	q := url.Values{}
	setTrimmed(q, "employee", f.Employee)
	setTrimmed(q, "date", f.Date)
	setTrimmed(q, "status", f.Status)
	return q
}

// LeaveFilter narrows the leave list.
type LeaveFilter struct {
	Search string
	Status string
}

// Query encodes the filter as list query parameters.
func (f LeaveFilter) Query() url.Values {
	q := url.Values{}
	setTrimmed(q, "search", f.Search)
	setTrimmed(q, "status", f.Status)
	return q
}

func setTrimmed(q url.Values, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		q.Set(key, v)
	}
}

// DashboardCounts holds the totals shown on the dashboard.
type DashboardCounts struct {
	Candidates int `json:"candidates"`
	Employees  int `json:"employees"`
	Attendance int `json:"attendance"`
	Leaves     int `json:"leaves"`
}
