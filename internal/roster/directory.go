package roster

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"upasthiti/internal/attendance"
	"upasthiti/internal/queue"
	"upasthiti/internal/store"
	"upasthiti/internal/validation"
)

const dateLayout = "2006-01-02"

// Directory reads and writes teacher-scoped students and join requests.
type Directory struct {
	kv     store.KV
	events queue.Publisher
	now    func() time.Time

	// serializes read-modify-write cycles on the roster keys
	mu sync.Mutex
}

// NewDirectory creates a directory. events may be nil.
func NewDirectory(kv store.KV, events queue.Publisher) *Directory {
	return &Directory{kv: kv, events: events, now: time.Now}
}

// Students returns the teacher's roster in stored order.
func (d *Directory) Students(ctx context.Context, teacherID string) ([]Student, error) {
	var students []Student
	if _, err := store.GetJSON(ctx, d.kv, store.ForTeacher(teacherID).Students(), &students); err != nil {
		return nil, err
	}
	return students, nil
}

// SaveStudents replaces the teacher's roster.
func (d *Directory) SaveStudents(ctx context.Context, teacherID string, students []Student) error {
	if students == nil {
		students = []Student{}
	}
	return store.SetJSON(ctx, d.kv, store.ForTeacher(teacherID).Students(), students)
}

// List returns students matching f.
func (d *Directory) List(ctx context.Context, teacherID string, f Filter) ([]Student, error) {
	students, err := d.Students(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	return Apply(students, f), nil
}

// Lookup finds a student by roll number.
func (d *Directory) Lookup(ctx context.Context, teacherID, rollNo string) (Student, bool) {
	students, err := d.Students(ctx, teacherID)
	if err != nil {
		log.Printf("roster %s: read students: %v", teacherID, err)
		return Student{}, false
	}
	for _, s := range students {
		if s.RollNo == rollNo {
			return s, true
		}
	}
	return Student{}, false
}

// StudentName resolves a display name for attendance records.
func (d *Directory) StudentName(ctx context.Context, teacherID, rollNo string) (string, bool) {
	s, ok := d.Lookup(ctx, teacherID, rollNo)
	if !ok || s.Name == "" {
		return "", false
	}
	return s.Name, true
}

// Requests returns the teacher's join requests.
func (d *Directory) Requests(ctx context.Context, teacherID string) ([]JoinRequest, error) {
	var reqs []JoinRequest
	if _, err := store.GetJSON(ctx, d.kv, store.ForTeacher(teacherID).Requests(), &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

// SaveRequests replaces the teacher's join requests.
func (d *Directory) SaveRequests(ctx context.Context, teacherID string, reqs []JoinRequest) error {
	if reqs == nil {
		reqs = []JoinRequest{}
	}
	return store.SetJSON(ctx, d.kv, store.ForTeacher(teacherID).Requests(), reqs)
}

// Submit files a new pending join request with the teacher.
func (d *Directory) Submit(ctx context.Context, teacherID string, req JoinRequest) (JoinRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.RollNo = strings.TrimSpace(req.RollNo)
	req.Department = strings.TrimSpace(req.Department)
	req.Year = strings.TrimSpace(req.Year)
	req.Email = strings.TrimSpace(req.Email)
	if bad := validation.Struct(req); len(bad) > 0 {
		return JoinRequest{}, fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(bad, ", "))
	}
	req.ID = uuid.NewString()
	req.Status = RequestPending
	req.RequestDate = d.now().Format(dateLayout)

	d.mu.Lock()
	defer d.mu.Unlock()
	reqs, err := d.Requests(ctx, teacherID)
	if err != nil {
		return JoinRequest{}, err
	}
	reqs = append(reqs, req)
	if err := d.SaveRequests(ctx, teacherID, reqs); err != nil {
		return JoinRequest{}, err
	}
	return req, nil
}

// Decide approves or declines a pending request. Approval enrolls the student
// unless the roll number is already on the roster.
func (d *Directory) Decide(ctx context.Context, teacherID, id string, decision RequestStatus) (JoinRequest, error) {
	if decision != RequestApproved && decision != RequestDeclined {
		return JoinRequest{}, ErrBadDecision
	}

	d.mu.Lock()
	reqs, err := d.Requests(ctx, teacherID)
	if err != nil {
		d.mu.Unlock()
		return JoinRequest{}, err
	}
	i := -1
	for j := range reqs {
		if reqs[j].ID == id {
			i = j
			break
		}
	}
	if i < 0 {
		d.mu.Unlock()
		return JoinRequest{}, ErrRequestNotFound
	}
	if reqs[i].Status != RequestPending && reqs[i].Status != "" {
		d.mu.Unlock()
		return JoinRequest{}, ErrAlreadyDecided
	}
	reqs[i].Status = decision
	if err := d.SaveRequests(ctx, teacherID, reqs); err != nil {
		d.mu.Unlock()
		return JoinRequest{}, err
	}
	decided := reqs[i]

	if decision == RequestApproved {
		if err := d.enroll(ctx, teacherID, decided); err != nil {
			log.Printf("roster %s: enroll %s: %v", teacherID, decided.RollNo, err)
		}
	}
	d.mu.Unlock()

	if decision == RequestApproved && d.events != nil {
		msg := queue.Message{Type: queue.StudentApproved, TeacherID: store.ForTeacher(teacherID).Teacher(), RollNo: decided.RollNo, At: d.now().UTC()}
		if err := d.events.Publish(ctx, msg); err != nil {
			log.Printf("roster %s: publish approval: %v", teacherID, err)
		}
	}
	return decided, nil
}

// enroll appends a student derived from req. Caller holds d.mu.
func (d *Directory) enroll(ctx context.Context, teacherID string, req JoinRequest) error {
	students, err := d.Students(ctx, teacherID)
	if err != nil {
		return err
	}
	for _, s := range students {
		if s.RollNo == req.RollNo {
			return nil
		}
	}
	students = append(students, Student{
		ID:         req.ID,
		Name:       req.Name,
		RollNo:     req.RollNo,
		Email:      req.Email,
		Department: req.Department,
		Year:       req.Year,
		Status:     StatusActive,
		JoinDate:   d.now().Format(dateLayout),
	})
	return d.SaveStudents(ctx, teacherID, students)
}

// RecomputeStats refreshes class totals from ended sessions of each student's
// department. Students whose department has no ended session keep their values.
func (d *Directory) RecomputeStats(ctx context.Context, teacherID string, sessions []attendance.Session) ([]Student, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	students, err := d.Students(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	changed := false
	for i := range students {
		s := &students[i]
		total, attended := 0, 0
		for _, sess := range sessions {
			if sess.IsActive || sess.Department != s.Department {
				continue
			}
			total++
			if sess.Has(s.RollNo) {
				attended++
			}
		}
		if total == 0 {
			continue
		}
		pct := roundDiv(attended*100, total)
		if s.TotalClasses != total || s.AttendedClasses != attended || s.AttendancePercentage != pct {
			s.TotalClasses, s.AttendedClasses, s.AttendancePercentage = total, attended, pct
			changed = true
		}
	}
	if changed {
		if err := d.SaveStudents(ctx, teacherID, students); err != nil {
			return nil, err
		}
	}
	return students, nil
}
