package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"upasthiti/internal/config"
)

func TestMemoryGetSetDelete(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()

	if _, err := kv.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := kv.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := kv.Get(ctx, "k"); got != "v" {
		t.Fatalf("got %q, want v", got)
	}
	_ = kv.Delete(ctx, "k")
	if _, err := kv.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()

	var out []string
	found, err := GetJSON(ctx, kv, "list", &out)
	if err != nil || found {
		t.Fatalf("absent key: found=%v err=%v", found, err)
	}

	if err := SetJSON(ctx, kv, "list", []string{"a", "b"}); err != nil {
		t.Fatalf("set json: %v", err)
	}
	found, err = GetJSON(ctx, kv, "list", &out)
	if err != nil || !found || len(out) != 2 {
		t.Fatalf("round trip: found=%v err=%v out=%v", found, err, out)
	}

	_ = kv.Set(ctx, "broken", "{not json")
	found, err = GetJSON(ctx, kv, "broken", &out)
	if !found || err == nil {
		t.Fatalf("malformed value should report found with error, got found=%v err=%v", found, err)
	}
}

func TestScopeKeys(t *testing.T) {
	s := ForTeacher("teacher@cse.edu")
	if s.Sessions() != "उpasthiti_attendance_teacher@cse.edu" {
		t.Fatalf("sessions key = %q", s.Sessions())
	}
	if s.Students() != "उpasthiti_students_teacher@cse.edu" {
		t.Fatalf("students key = %q", s.Students())
	}
	if got := ForTeacher("  ").Schedule(); got != "उpasthiti_schedule_default" {
		t.Fatalf("blank teacher should use default scope, got %q", got)
	}
}

func TestSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	kv, err := Open(ctx, config.App{StoreBackend: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "kv.db")})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer kv.Close()

	if err := kv.Set(ctx, "k", "one"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := kv.Set(ctx, "k", "two"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got, err := kv.Get(ctx, "k"); err != nil || got != "two" {
		t.Fatalf("get = %q, %v", got, err)
	}
	if err := kv.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := kv.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), config.App{StoreBackend: "etcd"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
