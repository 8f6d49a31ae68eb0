package attendance

import "strings"

// Method records how a student was marked present.
type Method string

const (
	MethodQR     Method = "qr"
	MethodManual Method = "manual"
	MethodFace   Method = "face"
)

// Record is one student's presence in a session.
type Record struct {
	RollNo      string `json:"rollNo"`
	StudentName string `json:"studentName"`
	Timestamp   string `json:"timestamp"`
	Method      Method `json:"method"`
}

// Session is one attendance-taking period. Date and StartTime are fixed at
// creation; EndTime is stamped once when the session ends.
type Session struct {
	ID             string   `json:"id"`
	Subject        string   `json:"subject"`
	Department     string   `json:"department"`
	Semester       string   `json:"semester"`
	Section        string   `json:"section"`
	Date           string   `json:"date"`
	StartTime      string   `json:"startTime"`
	EndTime        string   `json:"endTime"`
	QRCode         string   `json:"qrCode,omitempty"`
	QRExpiry       string   `json:"qrExpiry,omitempty"`
	IsActive       bool     `json:"isActive"`
	AttendanceList []Record `json:"attendanceList"`
}

// Has reports whether rollNo is already in the attendance list.
func (s Session) Has(rollNo string) bool {
	for _, r := range s.AttendanceList {
		if r.RollNo == rollNo {
			return true
		}
	}
	return false
}

func (s Session) clone() Session {
	out := s
	out.AttendanceList = append([]Record(nil), s.AttendanceList...)
	if out.AttendanceList == nil {
		out.AttendanceList = []Record{}
	}
	return out
}

func (s *Session) clearQR() {
	s.QRCode = ""
	s.QRExpiry = ""
}

// SessionForm carries the four classifiers a teacher supplies to start a session.
type SessionForm struct {
	Subject    string `json:"subject" validate:"required"`
	Department string `json:"department" validate:"required"`
	Semester   string `json:"semester" validate:"required"`
	Section    string `json:"section" validate:"required"`
}

func (f SessionForm) trimmed() SessionForm {
	return SessionForm{
		Subject:    strings.TrimSpace(f.Subject),
		Department: strings.TrimSpace(f.Department),
		Semester:   strings.TrimSpace(f.Semester),
		Section:    strings.TrimSpace(f.Section),
	}
}
