// Package qr defines the payloads carried by session and student QR codes.
package qr

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SessionIDPrefix starts every derived session id printed into a session QR.
const SessionIDPrefix = "उpasthiti_"

const (
	TypeSession = "session"
	TypeStudent = "student"
)

var (
	ErrNotSessionPayload = errors.New("qr: not a session payload")
	ErrNotStudentPayload = errors.New("qr: not a student payload")
	ErrBadSessionID      = errors.New("qr: malformed session id")
)

// SessionPayload is shown by the teacher; students scan it to check in.
type SessionPayload struct {
	Type       string  `json:"type"`
	SessionID  string  `json:"sessionId"`
	TeacherLat float64 `json:"teacherLat"`
	TeacherLng float64 `json:"teacherLng"`
	Subject    string  `json:"subject"`
	Department string  `json:"department"`
	Semester   string  `json:"semester"`
	Section    string  `json:"section"`
	Expiry     string  `json:"expiry"`
	Timestamp  int64   `json:"timestamp"`
}

// ExpiresAt parses the expiry instant.
func (p SessionPayload) ExpiresAt() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, p.Expiry)
}

// StudentPayload identifies a student on their personal QR card.
type StudentPayload struct {
	Type      string `json:"type"`
	StudentID string `json:"studentId"`
	RollNo    string `json:"rollNo,omitempty"`
	Name      string `json:"name"`
}

// Identifier returns the student id, falling back to the roll number field.
func (p StudentPayload) Identifier() string {
	if id := strings.TrimSpace(p.StudentID); id != "" {
		return id
	}
	return strings.TrimSpace(p.RollNo)
}

// Encode serializes a payload into the string printed in the QR code.
func Encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeSession parses raw as a session payload. Payloads without a type tag are
// accepted when they carry a derived session id.
func DecodeSession(raw string) (SessionPayload, error) {
	var p SessionPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &p); err != nil {
		return SessionPayload{}, fmt.Errorf("%w: %v", ErrNotSessionPayload, err)
	}
	if p.Type != "" && p.Type != TypeSession {
		return SessionPayload{}, ErrNotSessionPayload
	}
	if !strings.HasPrefix(p.SessionID, SessionIDPrefix) {
		return SessionPayload{}, ErrNotSessionPayload
	}
	return p, nil
}

// DecodeStudent parses raw as a student payload carrying a usable identifier.
func DecodeStudent(raw string) (StudentPayload, error) {
	var p StudentPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &p); err != nil {
		return StudentPayload{}, fmt.Errorf("%w: %v", ErrNotStudentPayload, err)
	}
	if p.Type != "" && p.Type != TypeStudent {
		return StudentPayload{}, ErrNotStudentPayload
	}
	if p.Identifier() == "" {
		return StudentPayload{}, ErrNotStudentPayload
	}
	return p, nil
}

// DerivedSessionID builds the per-generation id: prefix, session id, generation millis.
func DerivedSessionID(sessionID string, generated time.Time) string {
	return SessionIDPrefix + sessionID + "_" + strconv.FormatInt(generated.UnixMilli(), 10)
}

// ParseDerivedSessionID splits a derived id back into the session id and generation millis.
func ParseDerivedSessionID(derived string) (string, int64, error) {
	rest, ok := strings.CutPrefix(derived, SessionIDPrefix)
	if !ok {
		return "", 0, ErrBadSessionID
	}
	i := strings.LastIndex(rest, "_")
	if i <= 0 {
		return "", 0, ErrBadSessionID
	}
	millis, err := strconv.ParseInt(rest[i+1:], 10, 64)
	if err != nil {
		return "", 0, ErrBadSessionID
	}
	return rest[:i], millis, nil
}
