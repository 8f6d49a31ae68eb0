package attendance

import (
	"context"
	"errors"

	"upasthiti/internal/store"
)

// Repository persists per-teacher session lists in the KV store.
type Repository struct {
	kv store.KV
}

// NewRepository creates a repo.
func NewRepository(kv store.KV) *Repository {
	return &Repository{kv: kv}
}

// LoadSessions returns the teacher's session history in insertion order.
// A missing key is an empty history.
func (r *Repository) LoadSessions(ctx context.Context, teacherID string) ([]Session, error) {
	var sessions []Session
	if _, err := store.GetJSON(ctx, r.kv, store.ForTeacher(teacherID).Sessions(), &sessions); err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].AttendanceList == nil {
			sessions[i].AttendanceList = []Record{}
		}
	}
	return sessions, nil
}

// SaveSessions replaces the teacher's stored session list.
func (r *Repository) SaveSessions(ctx context.Context, teacherID string, sessions []Session) error {
	if sessions == nil {
		sessions = []Session{}
	}
	return store.SetJSON(ctx, r.kv, store.ForTeacher(teacherID).Sessions(), sessions)
}

// SetOwner records which teacher a session belongs to, for student check-in routing.
func (r *Repository) SetOwner(ctx context.Context, sessionID, teacherID string) error {
	return r.kv.Set(ctx, ownerKey(sessionID), store.ForTeacher(teacherID).Teacher())
}

// Owner returns the teacher that created sessionID.
func (r *Repository) Owner(ctx context.Context, sessionID string) (string, error) {
	teacher, err := r.kv.Get(ctx, ownerKey(sessionID))
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrSessionNotFound
	}
	return teacher, err
}

func ownerKey(sessionID string) string {
	return store.Prefix + "session_owner_" + sessionID
}
