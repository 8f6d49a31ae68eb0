package attendance

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"upasthiti/internal/qr"
	"upasthiti/internal/store"
)

// Registry hands out one Manager per teacher and drives their QR countdowns.
type Registry struct {
	kv   store.KV
	opts Options
	repo *Repository

	mu       sync.Mutex
	managers map[string]*Manager
}

// NewRegistry creates a registry over kv.
func NewRegistry(kv store.KV, opts Options) *Registry {
	return &Registry{
		kv:       kv,
		opts:     opts,
		repo:     NewRepository(kv),
		managers: make(map[string]*Manager),
	}
}

// For returns the teacher's manager, loading it from the store on first use.
func (r *Registry) For(ctx context.Context, teacherID string) (*Manager, error) {
	teacherID = store.ForTeacher(teacherID).Teacher()

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.managers[teacherID]; ok {
		return m, nil
	}
	m, err := NewManager(ctx, teacherID, r.kv, r.opts)
	if err != nil {
		return nil, fmt.Errorf("load sessions for %s: %w", teacherID, err)
	}
	r.managers[teacherID] = m
	return m, nil
}

// Forget drops the cached manager so the next For reloads from the store.
func (r *Registry) Forget(teacherID string) {
	teacherID = store.ForTeacher(teacherID).Teacher()
	r.mu.Lock()
	m, ok := r.managers[teacherID]
	delete(r.managers, teacherID)
	r.mu.Unlock()
	if ok {
		m.mu.Lock()
		m.countdown.Cancel()
		m.mu.Unlock()
	}
}

func (r *Registry) loaded() []*Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Manager, 0, len(r.managers))
	for _, m := range r.managers {
		out = append(out, m)
	}
	return out
}

// Tick advances every loaded manager's countdown by one second.
func (r *Registry) Tick(ctx context.Context) {
	for _, m := range r.loaded() {
		if m.Tick(ctx) {
			log.Printf("attendance %s: qr expired", m.TeacherID())
		}
	}
}

// Run ticks all countdowns every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Tick(ctx)
		}
	}
}

// CheckIn routes a student's scanned session QR to the owning teacher's manager.
func (r *Registry) CheckIn(ctx context.Context, sessionQR, rollNo string) (Record, error) {
	payload, err := qr.DecodeSession(sessionQR)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrQRMismatch, err)
	}
	sessionID, _, err := qr.ParseDerivedSessionID(payload.SessionID)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrQRMismatch, err)
	}
	teacherID, err := r.repo.Owner(ctx, sessionID)
	if err != nil {
		return Record{}, err
	}
	m, err := r.For(ctx, teacherID)
	if err != nil {
		return Record{}, err
	}
	return m.CheckIn(ctx, sessionQR, rollNo)
}
