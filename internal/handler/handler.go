package handler

import (
	"context"
	"errors"
	"log"
	"mime"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"upasthiti/internal/attendance"
	"upasthiti/internal/auth"
	"upasthiti/internal/roster"
	"upasthiti/internal/schedule"
	"upasthiti/internal/seed"
	"upasthiti/internal/snapshot"
	"upasthiti/internal/store"
)

// SnapshotStore hosts webcam captures for face verification.
type SnapshotStore interface {
	Upload(ctx context.Context, rollNo, dataURL string) (string, error)
}

// Handler serves the dashboard API.
type Handler struct {
	kv       store.KV
	sessions *attendance.Registry
	teachers *auth.Directory
	students *roster.Directory
	schedule *schedule.Store
	snaps    SnapshotStore

	signingKey string
	issuer     string
	accessTTL  time.Duration
	seedDemo   bool
	now        func() time.Time
}

// Deps are the collaborators a Handler serves from.
type Deps struct {
	KV       store.KV
	Sessions *attendance.Registry
	Teachers *auth.Directory
	Students *roster.Directory
	Schedule *schedule.Store

	// Snapshots may be nil; face marks then need an image URL.
	Snapshots SnapshotStore

	SigningKey string
	Issuer     string
	AccessTTL  time.Duration
	SeedDemo   bool
}

func New(d Deps) *Handler {
	return &Handler{
		kv:         d.KV,
		sessions:   d.Sessions,
		teachers:   d.Teachers,
		students:   d.Students,
		schedule:   d.Schedule,
		snaps:      d.Snapshots,
		signingKey: d.SigningKey,
		issuer:     d.Issuer,
		accessTTL:  d.AccessTTL,
		seedDemo:   d.SeedDemo,
		now:        time.Now,
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, attendance.ErrInvalidForm),
		errors.Is(err, attendance.ErrRollNoRequired),
		errors.Is(err, attendance.ErrEmptyScan),
		errors.Is(err, attendance.ErrQRMismatch),
		errors.Is(err, roster.ErrInvalidRequest),
		errors.Is(err, roster.ErrBadDecision),
		errors.Is(err, schedule.ErrInvalidEntry),
		errors.Is(err, schedule.ErrTimeOrder):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, attendance.ErrFaceMismatch):
		return http.StatusForbidden
	case errors.Is(err, attendance.ErrNoActiveSession),
		errors.Is(err, attendance.ErrSessionNotFound),
		errors.Is(err, roster.ErrRequestNotFound),
		errors.Is(err, schedule.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, attendance.ErrSessionActive),
		errors.Is(err, attendance.ErrDuplicate),
		errors.Is(err, roster.ErrAlreadyDecided):
		return http.StatusConflict
	case errors.Is(err, attendance.ErrQRExpired):
		return http.StatusGone
	case errors.Is(err, attendance.ErrFaceUnavailable),
		errors.Is(err, snapshot.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// attachment serves data as a download named filename.
func attachment(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Data(http.StatusOK, contentType, data)
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := h.kv.Get(ctx, store.TeachersKey); err != nil && !errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "store": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "store": true})
}

// ---------- Auth ----------

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	profile, err := h.teachers.Login(ctx, req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	if h.seedDemo {
		if err := seed.Teacher(ctx, h.kv, profile.Email); err != nil {
			log.Printf("seed demo data for %s: %v", profile.Email, err)
		}
	}
	tok, err := auth.Issue(profile.Email, h.issuer, h.signingKey, h.accessTTL, h.now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accessToken": tok.AccessToken,
		"expiresAt":   tok.ExpiresAt.Unix(),
		"teacher":     profile,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	teacherID := auth.TeacherID(c)
	if err := h.teachers.Logout(c.Request.Context(), teacherID); err != nil {
		fail(c, err)
		return
	}
	h.sessions.Forget(teacherID)
	c.Status(http.StatusNoContent)
}

func (h *Handler) Me(c *gin.Context) {
	p, err := h.teachers.Current(c.Request.Context(), auth.TeacherID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}
