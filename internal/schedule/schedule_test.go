package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"upasthiti/internal/store"
)

const teacher = "teacher@cse.edu"

func newTestStore() *Store {
	s := NewStore(store.NewMemory())
	s.now = func() time.Time { return time.Date(2024, 1, 31, 8, 0, 0, 0, time.UTC) }
	return s
}

func entry(day, start, end string) Entry {
	return Entry{Day: day, StartTime: start, EndTime: end, Department: "CSE", Semester: "4", Section: "A", Subject: "DBMS"}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	e := entry("Monday", "09:00", "10:00")
	e.Duration = 3
	got, err := s.Create(ctx, teacher, e)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got.ID == "" || got.CreatedDate != "2024-01-31" || got.ExpiryDate != "2024-05-01" {
		t.Fatalf("entry = %+v", got)
	}

	second, _ := s.Create(ctx, teacher, entry("Monday", "08:00", "09:00"))
	if second.ID == got.ID {
		t.Fatalf("duplicate id %s", got.ID)
	}
	if second.Duration != 1 {
		t.Fatalf("default duration = %d", second.Duration)
	}
	all, _ := s.List(ctx, teacher)
	if len(all) != 2 {
		t.Fatalf("list = %d", len(all))
	}
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	missing := entry("Monday", "09:00", "10:00")
	missing.Subject = " "
	if _, err := s.Create(ctx, teacher, missing); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}
	if _, err := s.Create(ctx, teacher, entry("Sunday", "09:00", "10:00")); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("sunday should be rejected, got %v", err)
	}
	if _, err := s.Create(ctx, teacher, entry("Monday", "9am", "10:00")); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("bad time should be rejected, got %v", err)
	}
	if _, err := s.Create(ctx, teacher, entry("Monday", "10:00", "10:00")); !errors.Is(err, ErrTimeOrder) {
		t.Fatalf("expected ErrTimeOrder, got %v", err)
	}
	if _, err := s.Create(ctx, teacher, entry("Monday", "10:00", "9:30")); !errors.Is(err, ErrTimeOrder) {
		t.Fatalf("10:00-9:30 should be rejected, got %v", err)
	}
	if all, _ := s.List(ctx, teacher); len(all) != 0 {
		t.Fatalf("rejected entries were stored")
	}

	got, err := s.Create(ctx, teacher, entry("Monday", "9:00", "10:00"))
	if err != nil {
		t.Fatalf("9:00-10:00 rejected: %v", err)
	}
	if got.StartTime != "09:00" || got.EndTime != "10:00" {
		t.Fatalf("times not normalized: %s-%s", got.StartTime, got.EndTime)
	}
}

func TestDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	a, _ := s.Create(ctx, teacher, entry("Tuesday", "09:00", "10:00"))
	s.Create(ctx, teacher, entry("Tuesday", "11:00", "12:00"))

	if err := s.Delete(ctx, teacher, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, teacher, a.ID); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
	if all, _ := s.List(ctx, teacher); len(all) != 1 {
		t.Fatalf("list = %d", len(all))
	}
	if err := s.Clear(ctx, teacher); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if all, _ := s.List(ctx, teacher); len(all) != 0 {
		t.Fatalf("clear left %d", len(all))
	}
}

func TestForDayAndExpired(t *testing.T) {
	entries := []Entry{
		entry("Monday", "17:00", "18:00"),
		entry("Monday", "11:00", "12:00"),
		entry("Wednesday", "09:00", "10:00"),
		entry("Monday", "9:30", "10:30"),
	}
	mon := ForDay(entries, "Monday")
	if len(mon) != 3 || mon[0].StartTime != "9:30" || mon[2].StartTime != "17:00" {
		t.Fatalf("monday = %+v", mon)
	}
	week := Week(entries)
	if len(week) != 6 || len(week["Saturday"]) != 0 || len(week["Wednesday"]) != 1 {
		t.Fatalf("week = %+v", week)
	}

	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	if (Entry{ExpiryDate: "2024-03-10"}).Expired(now) {
		t.Fatalf("entry expiring today is still valid")
	}
	if !(Entry{ExpiryDate: "2024-03-09"}).Expired(now) {
		t.Fatalf("entry should be expired")
	}
}
