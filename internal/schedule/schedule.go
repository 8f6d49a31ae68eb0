// Package schedule stores a teacher's weekly class routine.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"upasthiti/internal/store"
	"upasthiti/internal/validation"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// Days are the teaching days, in display order.
var Days = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

var (
	ErrInvalidEntry  = errors.New("invalid schedule entry")
	ErrTimeOrder     = errors.New("start time must be before end time")
	ErrEntryNotFound = errors.New("schedule entry not found")
)

// Entry is one recurring weekly class.
type Entry struct {
	ID          string `json:"id"`
	Day         string `json:"day" validate:"required,oneof=Monday Tuesday Wednesday Thursday Friday Saturday"`
	StartTime   string `json:"startTime" validate:"required,datetime=15:04"`
	EndTime     string `json:"endTime" validate:"required,datetime=15:04"`
	Department  string `json:"department" validate:"required"`
	Semester    string `json:"semester" validate:"required"`
	Section     string `json:"section" validate:"required"`
	Subject     string `json:"subject" validate:"required"`
	Duration    int    `json:"duration" validate:"min=1,max=12"`
	CreatedDate string `json:"createdDate"`
	ExpiryDate  string `json:"expiryDate"`
}

// Expired reports whether the entry's validity ended before now.
func (e Entry) Expired(now time.Time) bool {
	exp, err := time.Parse(dateLayout, e.ExpiryDate)
	if err != nil {
		return false
	}
	today, _ := time.Parse(dateLayout, now.Format(dateLayout))
	return exp.Before(today)
}

// Store keeps schedules in the KV store under each teacher's schedule key.
type Store struct {
	kv  store.KV
	now func() time.Time

	mu     sync.Mutex
	lastID int64
}

// NewStore creates a schedule store.
func NewStore(kv store.KV) *Store {
	return &Store{kv: kv, now: time.Now}
}

// List returns all entries in creation order.
func (s *Store) List(ctx context.Context, teacherID string) ([]Entry, error) {
	var entries []Entry
	if _, err := store.GetJSON(ctx, s.kv, store.ForTeacher(teacherID).Schedule(), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) save(ctx context.Context, teacherID string, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	return store.SetJSON(ctx, s.kv, store.ForTeacher(teacherID).Schedule(), entries)
}

// Create validates e and appends it. A zero duration means one month.
func (s *Store) Create(ctx context.Context, teacherID string, e Entry) (Entry, error) {
	e.Day = strings.TrimSpace(e.Day)
	e.StartTime = strings.TrimSpace(e.StartTime)
	e.EndTime = strings.TrimSpace(e.EndTime)
	e.Department = strings.TrimSpace(e.Department)
	e.Semester = strings.TrimSpace(e.Semester)
	e.Section = strings.TrimSpace(e.Section)
	e.Subject = strings.TrimSpace(e.Subject)
	if e.Duration == 0 {
		e.Duration = 1
	}
	if bad := validation.Struct(e); len(bad) > 0 {
		return Entry{}, fmt.Errorf("%w: %s", ErrInvalidEntry, strings.Join(bad, ", "))
	}
	start, _ := time.Parse(clockLayout, e.StartTime)
	end, _ := time.Parse(clockLayout, e.EndTime)
	if !start.Before(end) {
		return Entry{}, ErrTimeOrder
	}
	e.StartTime = start.Format(clockLayout)
	e.EndTime = end.Format(clockLayout)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	e.ID = strconv.FormatInt(id, 10)
	e.CreatedDate = now.Format(dateLayout)
	e.ExpiryDate = now.AddDate(0, e.Duration, 0).Format(dateLayout)

	entries, err := s.List(ctx, teacherID)
	if err != nil {
		return Entry{}, err
	}
	entries = append(entries, e)
	if err := s.save(ctx, teacherID, entries); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Delete removes one entry.
func (s *Store) Delete(ctx context.Context, teacherID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.List(ctx, teacherID)
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].ID == id {
			entries = append(entries[:i], entries[i+1:]...)
			return s.save(ctx, teacherID, entries)
		}
	}
	return ErrEntryNotFound
}

// Clear removes the whole routine.
func (s *Store) Clear(ctx context.Context, teacherID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, teacherID, nil)
}

// ForDay returns the entries held on day, earliest first.
func ForDay(entries []Entry, day string) []Entry {
	out := []Entry{}
	for _, e := range entries {
		if e.Day == day {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return clock(out[i].StartTime).Before(clock(out[j].StartTime)) })
	return out
}

// clock parses an HH:MM time; stored entries may predate zero padding.
func clock(v string) time.Time {
	t, err := time.Parse(clockLayout, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Week groups entries by day for every teaching day.
func Week(entries []Entry) map[string][]Entry {
	week := make(map[string][]Entry, len(Days))
	for _, d := range Days {
		week[d] = ForDay(entries, d)
	}
	return week
}
