package store

import "strings"

// Prefix namespaces every key the dashboard writes.
const Prefix = "उpasthiti_"

// TeachersKey holds the global teacher roster.
const TeachersKey = Prefix + "teachers"

// DefaultTeacher is the scope used when no teacher identity is known.
const DefaultTeacher = "default"

// Scope derives teacher-scoped keys from a teacher identity (their email).
type Scope struct {
	teacher string
}

// ForTeacher returns the key scope for teacherID.
func ForTeacher(teacherID string) Scope {
	teacherID = strings.TrimSpace(teacherID)
	if teacherID == "" {
		teacherID = DefaultTeacher
	}
	return Scope{teacher: teacherID}
}

func (s Scope) Teacher() string { return s.teacher }

func (s Scope) Sessions() string       { return Prefix + "attendance_" + s.teacher }
func (s Scope) Schedule() string       { return Prefix + "schedule_" + s.teacher }
func (s Scope) Students() string       { return Prefix + "students_" + s.teacher }
func (s Scope) Requests() string       { return Prefix + "requests_" + s.teacher }
func (s Scope) LoggedIn() string       { return Prefix + "teacher_logged_in_" + s.teacher }
func (s Scope) CurrentTeacher() string { return Prefix + "current_teacher_" + s.teacher }
