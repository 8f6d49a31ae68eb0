// Package worker refreshes roster statistics after attendance events.
package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"upasthiti/internal/alerts"
	"upasthiti/internal/attendance"
	"upasthiti/internal/auth"
	"upasthiti/internal/queue"
	"upasthiti/internal/roster"
	"upasthiti/internal/store"
)

// Worker recomputes per-student totals from stored session history.
type Worker struct {
	sessions *attendance.Repository
	students *roster.Directory
	teachers *auth.Directory
}

// New creates a worker over kv.
func New(kv store.KV, students *roster.Directory, teachers *auth.Directory) *Worker {
	return &Worker{
		sessions: attendance.NewRepository(kv),
		students: students,
		teachers: teachers,
	}
}

// Recompute refreshes one teacher's roster statistics and returns the resulting alerts.
func (w *Worker) Recompute(ctx context.Context, teacherID string) ([]alerts.Alert, error) {
	sessions, err := w.sessions.LoadSessions(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	students, err := w.students.RecomputeStats(ctx, teacherID, sessions)
	if err != nil {
		return nil, fmt.Errorf("recompute stats: %w", err)
	}
	return alerts.Build(students, sessions), nil
}

// Handle processes one queue message.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) error {
	switch msg.Type {
	case queue.SessionEnded, queue.StudentApproved:
		list, err := w.Recompute(ctx, msg.TeacherID)
		if err != nil {
			return err
		}
		log.Printf("worker: %s for %s, %d students below %d%%", msg.Type, store.ForTeacher(msg.TeacherID).Teacher(), len(list), alerts.Required)
		return nil
	default:
		log.Printf("worker: skipping unknown message type %q", msg.Type)
		return nil
	}
}

// Run consumes q until ctx is done or the queue closes.
func (w *Worker) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("queue consume init failed: %w", err)
	}
	for msg := range messages {
		if err := w.Handle(ctx, msg); err != nil {
			log.Printf("worker: %s for %s failed: %v", msg.Type, msg.TeacherID, err)
		}
	}
	return nil
}

// Sweep recomputes statistics for every known teacher and logs alert counts.
func (w *Worker) Sweep(ctx context.Context) {
	teachers, _, err := w.teachers.Teachers(ctx)
	if err != nil {
		log.Printf("sweep: read teachers: %v", err)
		return
	}
	for _, t := range teachers {
		list, err := w.Recompute(ctx, t.Email)
		if err != nil {
			log.Printf("sweep: %s: %v", t.Email, err)
			continue
		}
		c := alerts.Counts(list)
		log.Printf("sweep: %s critical=%d warning=%d moderate=%d", t.Email, c[alerts.Critical], c[alerts.Warning], c[alerts.Moderate])
	}
}

// Schedule registers Sweep on expr. The caller starts and stops the returned cron.
func Schedule(expr string, w *Worker) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
		defer cancel()
		w.Sweep(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("add sweep schedule %q: %w", expr, err)
	}
	return c, nil
}
