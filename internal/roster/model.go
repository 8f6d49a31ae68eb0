// Package roster keeps each teacher's enrolled students and pending join requests.
package roster

import (
	"errors"
	"sort"
	"strings"
)

// Status of an enrolled student.
type Status string

const (
	StatusActive    Status = "Active"
	StatusInactive  Status = "Inactive"
	StatusGraduated Status = "Graduated"
)

// Student is one enrolled student of a teacher.
type Student struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	RollNo               string `json:"rollNo"`
	Email                string `json:"email"`
	Phone                string `json:"phone,omitempty"`
	Department           string `json:"department"`
	Year                 string `json:"year"`
	Status               Status `json:"status"`
	AttendancePercentage int    `json:"attendancePercentage"`
	TotalClasses         int    `json:"totalClasses"`
	AttendedClasses      int    `json:"attendedClasses"`
	JoinDate             string `json:"joinDate"`
}

// RequestStatus tracks a join request through review.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestDeclined RequestStatus = "declined"
)

// JoinRequest is a student's request to join a teacher's class.
type JoinRequest struct {
	ID          string        `json:"id"`
	Name        string        `json:"name" validate:"required"`
	RollNo      string        `json:"rollNo" validate:"required"`
	Department  string        `json:"department" validate:"required"`
	Year        string        `json:"year" validate:"required"`
	RequestDate string        `json:"requestDate"`
	Status      RequestStatus `json:"status"`
	Email       string        `json:"email" validate:"required,email"`
}

var (
	ErrRequestNotFound = errors.New("join request not found")
	ErrAlreadyDecided  = errors.New("join request already decided")
	ErrBadDecision     = errors.New("decision must be approved or declined")
	ErrInvalidRequest  = errors.New("invalid join request")
)

// Filter narrows a student list. Empty fields match everything.
type Filter struct {
	Search     string
	Department string
	Year       string
	Status     Status
}

func (f Filter) match(s Student) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(s.Name), q) &&
			!strings.Contains(strings.ToLower(s.RollNo), q) &&
			!strings.Contains(strings.ToLower(s.Email), q) {
			return false
		}
	}
	if f.Department != "" && s.Department != f.Department {
		return false
	}
	if f.Year != "" && s.Year != f.Year {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	return true
}

// Apply returns the students matching f, in stored order.
func Apply(students []Student, f Filter) []Student {
	out := make([]Student, 0, len(students))
	for _, s := range students {
		if f.match(s) {
			out = append(out, s)
		}
	}
	return out
}

// Group is the students of one department and year.
type Group struct {
	Key               string    `json:"key"`
	Department        string    `json:"department"`
	Year              string    `json:"year"`
	AverageAttendance int       `json:"averageAttendance"`
	Students          []Student `json:"students"`
}

// GroupByClass buckets students by department and year, sorted by key.
func GroupByClass(students []Student) []Group {
	idx := map[string]int{}
	var groups []Group
	for _, s := range students {
		key := s.Department + "-" + s.Year
		i, ok := idx[key]
		if !ok {
			i = len(groups)
			idx[key] = i
			groups = append(groups, Group{Key: key, Department: s.Department, Year: s.Year})
		}
		groups[i].Students = append(groups[i].Students, s)
	}
	for i := range groups {
		sum := 0
		for _, s := range groups[i].Students {
			sum += s.AttendancePercentage
		}
		groups[i].AverageAttendance = roundDiv(sum, len(groups[i].Students))
	}
	sort.Slice(groups, func(a, b int) bool { return groups[a].Key < groups[b].Key })
	return groups
}

// roundDiv is n/d rounded half up, for non-negative inputs.
func roundDiv(n, d int) int {
	if d == 0 {
		return 0
	}
	return (2*n + d) / (2 * d)
}
