package attendance

import (
	"context"
	"errors"
	"testing"

	"upasthiti/internal/store"
)

func TestRegistryScopesByTeacher(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	r := NewRegistry(store.NewMemory(), Options{Now: clock.Now})

	a, err := r.For(ctx, "a@cse.edu")
	if err != nil {
		t.Fatalf("for a: %v", err)
	}
	b, _ := r.For(ctx, "b@cse.edu")
	if again, _ := r.For(ctx, "a@cse.edu"); again != a {
		t.Fatalf("manager not cached")
	}
	def, _ := r.For(ctx, "")
	if def.TeacherID() != store.DefaultTeacher {
		t.Fatalf("empty teacher should map to %q, got %q", store.DefaultTeacher, def.TeacherID())
	}

	if _, err := a.Create(ctx, dbms); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := b.Active(); ok {
		t.Fatalf("teacher b sees teacher a's session")
	}
	if _, err := b.Create(ctx, dbms); err != nil {
		t.Fatalf("teacher b blocked by teacher a: %v", err)
	}
}

func TestRegistryTickAndForget(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	kv := store.NewMemory()
	r := NewRegistry(kv, Options{Now: clock.Now, QRSeconds: 2})

	m, _ := r.For(ctx, teacher)
	m.Create(ctx, dbms)
	m.GenerateQR(ctx, nil)
	r.Tick(ctx)
	r.Tick(ctx)
	if s, _ := m.Active(); s.QRCode != "" {
		t.Fatalf("registry tick did not expire qr")
	}

	r.Forget(teacher)
	fresh, _ := r.For(ctx, teacher)
	if fresh == m {
		t.Fatalf("forget should drop the cached manager")
	}
	if _, ok := fresh.Active(); !ok {
		t.Fatalf("reload lost the active session")
	}
}

func TestRegistryCheckInRoutesToOwner(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	kv := store.NewMemory()
	r := NewRegistry(kv, Options{Now: clock.Now})

	m, _ := r.For(ctx, teacher)
	m.Create(ctx, dbms)
	ticket, err := m.GenerateQR(ctx, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// A fresh registry, as after a restart, still finds the owner.
	other := NewRegistry(kv, Options{Now: clock.Now})
	rec, err := other.CheckIn(ctx, ticket.Code, "CSE-2023-005")
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if rec.RollNo != "CSE-2023-005" || rec.Method != MethodQR {
		t.Fatalf("record = %+v", rec)
	}

	forged := `{"type":"session","sessionId":"उpasthiti_999_1"}`
	if _, err := other.CheckIn(ctx, forged, "CSE-2023-006"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := other.CheckIn(ctx, "hello", "CSE-2023-006"); !errors.Is(err, ErrQRMismatch) {
		t.Fatalf("expected ErrQRMismatch, got %v", err)
	}
}
