package attendance

import (
	"context"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"upasthiti/internal/geo"
	"upasthiti/internal/metrics"
	"upasthiti/internal/qr"
	"upasthiti/internal/queue"
	"upasthiti/internal/store"
	"upasthiti/internal/validation"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
	isoMillis   = "2006-01-02T15:04:05.000Z07:00"

	// DefaultQRSeconds is the QR lifetime when none is configured.
	DefaultQRSeconds = 120
)

// DefaultLocation is used when the teacher's position cannot be determined.
var DefaultLocation = geo.Coordinates{Lat: 28.6139, Lng: 77.209}

// StudentDirectory resolves display names from the teacher's roster.
type StudentDirectory interface {
	StudentName(ctx context.Context, teacherID, rollNo string) (string, bool)
}

// FaceVerifier confirms a snapshot shows the given student.
type FaceVerifier interface {
	Verify(ctx context.Context, rollNo, imageURL string) (bool, error)
}

// Options configures managers. Zero values fall back to defaults.
type Options struct {
	QRSeconds int
	Locator   geo.Locator
	Students  StudentDirectory
	Faces     FaceVerifier
	Events    queue.Publisher
	Scanner   ScanChain
	Now       func() time.Time
}

func (o Options) withDefaults() Options {
	if o.QRSeconds <= 0 {
		o.QRSeconds = DefaultQRSeconds
	}
	if o.Locator == nil {
		o.Locator = geo.WithFallback(nil, DefaultLocation, 10*time.Second)
	}
	if o.Scanner == nil {
		o.Scanner = DefaultScanChain
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// QRTicket is the result of generating a session QR.
type QRTicket struct {
	Session   Session           `json:"session"`
	Payload   qr.SessionPayload `json:"payload"`
	Code      string            `json:"qrCode"`
	Remaining int               `json:"qrTimer"`
}

// Manager owns one teacher's attendance sessions: the history list, the single
// active session, its live QR and countdown. All methods are safe for concurrent use;
// operations are serialized by the manager lock.
type Manager struct {
	mu        sync.Mutex
	teacherID string
	repo      *Repository
	opts      Options

	sessions  []Session
	activeID  string
	lifecycle *fsm.FSM
	countdown Countdown
	lastID    int64
	lastQR    int64
}

// NewManager loads the teacher's sessions from kv and restores any active session.
func NewManager(ctx context.Context, teacherID string, kv store.KV, opts Options) (*Manager, error) {
	m := &Manager{
		teacherID: store.ForTeacher(teacherID).Teacher(),
		repo:      NewRepository(kv),
		opts:      opts.withDefaults(),
	}
	m.lifecycle = newLifecycle(m.teacherID)
	if err := m.load(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// TeacherID is the identity this manager is scoped to.
func (m *Manager) TeacherID() string { return m.teacherID }

func (m *Manager) load(ctx context.Context) error {
	sessions, err := m.repo.LoadSessions(ctx, m.teacherID)
	if err != nil {
		log.Printf("attendance %s: stored sessions unreadable, starting empty: %v", m.teacherID, err)
		sessions = nil
	}
	m.sessions = sessions

	now := m.opts.Now()
	dirty := false
	newest := -1
	for i := range m.sessions {
		if id, err := strconv.ParseInt(m.sessions[i].ID, 10, 64); err == nil && id > m.lastID {
			m.lastID = id
		}
		if m.sessions[i].IsActive {
			newest = i
		}
	}

	// Older variants allowed several active sessions; only the newest survives.
	for i := range m.sessions {
		s := &m.sessions[i]
		if s.IsActive && i != newest {
			s.IsActive = false
			s.EndTime = now.Format(clockLayout)
			s.clearQR()
			dirty = true
		}
		if !s.IsActive && s.EndTime == "" {
			s.EndTime = s.StartTime
			dirty = true
		}
		if !s.IsActive && (s.QRCode != "" || s.QRExpiry != "") {
			s.clearQR()
			dirty = true
		}
	}

	if newest >= 0 {
		s := &m.sessions[newest]
		m.activeID = s.ID
		s.EndTime = ""
		m.lifecycle.SetState(stateActive)
		if remaining, ok := liveSeconds(*s, now); ok {
			m.countdown.Start(remaining)
		} else if s.QRCode != "" || s.QRExpiry != "" {
			s.clearQR()
			dirty = true
		}
	}

	if dirty {
		m.persist(ctx)
	}
	return nil
}

// liveSeconds returns the whole seconds left on a session's QR, if it is still live.
func liveSeconds(s Session, now time.Time) (int, bool) {
	if s.QRCode == "" || s.QRExpiry == "" {
		return 0, false
	}
	exp, err := time.Parse(time.RFC3339Nano, s.QRExpiry)
	if err != nil {
		return 0, false
	}
	left := exp.Sub(now)
	if left <= 0 {
		return 0, false
	}
	return int(math.Ceil(left.Seconds())), true
}

func (m *Manager) persist(ctx context.Context) {
	if err := m.repo.SaveSessions(ctx, m.teacherID, m.sessions); err != nil {
		log.Printf("attendance %s: save sessions failed: %v", m.teacherID, err)
	}
}

func (m *Manager) activeIndex() int {
	if m.activeID == "" {
		return -1
	}
	for i := range m.sessions {
		if m.sessions[i].ID == m.activeID {
			return i
		}
	}
	return -1
}

func (m *Manager) nextID(now time.Time) string {
	id := now.UnixMilli()
	if id <= m.lastID {
		id = m.lastID + 1
	}
	m.lastID = id
	return strconv.FormatInt(id, 10)
}

// Create starts a new active session from form.
func (m *Manager) Create(ctx context.Context, form SessionForm) (Session, error) {
	form = form.trimmed()
	if missing := validation.Struct(form); len(missing) > 0 {
		return Session{}, fmt.Errorf("%w: missing %s", ErrInvalidForm, strings.Join(missing, ", "))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.lifecycle.Can(eventCreate) {
		return Session{}, ErrSessionActive
	}

	now := m.opts.Now()
	s := Session{
		ID:             m.nextID(now),
		Subject:        form.Subject,
		Department:     form.Department,
		Semester:       form.Semester,
		Section:        form.Section,
		Date:           now.Format(dateLayout),
		StartTime:      now.Format(clockLayout),
		EndTime:        "",
		IsActive:       true,
		AttendanceList: []Record{},
	}
	if err := m.lifecycle.Event(ctx, eventCreate); err != nil {
		return Session{}, err
	}
	m.sessions = append(m.sessions, s)
	m.activeID = s.ID
	m.countdown.Cancel()
	m.persist(ctx)
	if err := m.repo.SetOwner(ctx, s.ID, m.teacherID); err != nil {
		log.Printf("attendance %s: record session owner failed: %v", m.teacherID, err)
	}
	metrics.SessionsStarted.Inc()
	return s.clone(), nil
}

// GenerateQR issues a fresh session QR for the active session and restarts the
// countdown. hint, when set, is the position reported by the teacher's device;
// otherwise the configured locator is consulted.
func (m *Manager) GenerateQR(ctx context.Context, hint *geo.Coordinates) (QRTicket, error) {
	m.mu.Lock()
	if m.activeIndex() < 0 {
		m.mu.Unlock()
		return QRTicket{}, ErrNoActiveSession
	}
	sessionID := m.activeID
	m.mu.Unlock()

	// The lookup may take up to the locator's timeout; don't hold the lock across it.
	var coords geo.Coordinates
	if hint != nil {
		coords = *hint
		if r, ok := m.opts.Locator.(geo.Rememberer); ok {
			r.Remember(m.teacherID, coords)
		}
	} else {
		c, err := m.opts.Locator.Locate(ctx, m.teacherID)
		if err != nil {
			log.Printf("attendance %s: locate failed, using default: %v", m.teacherID, err)
			c = DefaultLocation
		}
		coords = c
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.activeIndex()
	if i < 0 || m.activeID != sessionID {
		return QRTicket{}, ErrNoActiveSession
	}
	s := &m.sessions[i]

	now := m.opts.Now()
	expiry := now.Add(time.Duration(m.opts.QRSeconds) * time.Second).UTC()
	// Each generation needs a distinct stamp, even within one millisecond.
	if prev, err := qr.DecodeSession(s.QRCode); err == nil && prev.Timestamp > m.lastQR {
		m.lastQR = prev.Timestamp
	}
	generated := now
	if generated.UnixMilli() <= m.lastQR {
		generated = time.UnixMilli(m.lastQR + 1)
	}
	m.lastQR = generated.UnixMilli()
	payload := qr.SessionPayload{
		Type:       qr.TypeSession,
		SessionID:  qr.DerivedSessionID(s.ID, generated),
		TeacherLat: coords.Lat,
		TeacherLng: coords.Lng,
		Subject:    s.Subject,
		Department: s.Department,
		Semester:   s.Semester,
		Section:    s.Section,
		Expiry:     expiry.Format(isoMillis),
		Timestamp:  generated.UnixMilli(),
	}
	code, err := qr.Encode(payload)
	if err != nil {
		return QRTicket{}, err
	}

	s.QRCode = code
	s.QRExpiry = payload.Expiry
	m.countdown.Start(m.opts.QRSeconds)
	m.persist(ctx)
	metrics.QRGenerated.Inc()

	return QRTicket{
		Session:   s.clone(),
		Payload:   payload,
		Code:      code,
		Remaining: m.countdown.Remaining(),
	}, nil
}

// Tick advances the QR countdown by one second. When it reaches zero the live QR
// is cleared; the session stays active. It reports whether the QR expired.
func (m *Manager) Tick(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.countdown.Tick() {
		return false
	}
	if i := m.activeIndex(); i >= 0 {
		m.sessions[i].clearQR()
		m.persist(ctx)
	}
	metrics.QRExpired.Inc()
	return true
}

// CancelQR discards the live QR and stops its countdown without ending the session.
func (m *Manager) CancelQR(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.activeIndex()
	if i < 0 {
		return ErrNoActiveSession
	}
	m.countdown.Cancel()
	if m.sessions[i].QRCode != "" || m.sessions[i].QRExpiry != "" {
		m.sessions[i].clearQR()
		m.persist(ctx)
	}
	return nil
}

// QRRemaining returns the seconds left on the live QR, zero when none is live.
func (m *Manager) QRRemaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countdown.Remaining()
}

// MarkManual records rollNo as present, entered by the teacher.
func (m *Manager) MarkManual(ctx context.Context, rollNo string) (Record, error) {
	rollNo = strings.TrimSpace(rollNo)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeIndex() < 0 {
		return Record{}, ErrNoActiveSession
	}
	if rollNo == "" {
		return Record{}, ErrRollNoRequired
	}
	return m.appendRecord(ctx, rollNo, "", MethodManual)
}

// MarkScan records a student from decoded QR text, using the scan parser chain.
func (m *Manager) MarkScan(ctx context.Context, raw string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeIndex() < 0 {
		return Record{}, ErrNoActiveSession
	}
	res, ok := m.opts.Scanner.Resolve(raw)
	if !ok {
		return Record{}, ErrEmptyScan
	}
	return m.appendRecord(ctx, res.RollNo, res.StudentName, MethodQR)
}

// MarkFace records rollNo after the face service confirms the snapshot at imageURL.
func (m *Manager) MarkFace(ctx context.Context, rollNo, imageURL string) (Record, error) {
	rollNo = strings.TrimSpace(rollNo)

	m.mu.Lock()
	if m.activeIndex() < 0 {
		m.mu.Unlock()
		return Record{}, ErrNoActiveSession
	}
	if rollNo == "" {
		m.mu.Unlock()
		return Record{}, ErrRollNoRequired
	}
	if m.opts.Faces == nil {
		m.mu.Unlock()
		return Record{}, ErrFaceUnavailable
	}
	sessionID := m.activeID
	m.mu.Unlock()

	ok, err := m.opts.Faces.Verify(ctx, rollNo, imageURL)
	if err != nil {
		return Record{}, fmt.Errorf("face verification: %w", err)
	}
	if !ok {
		return Record{}, ErrFaceMismatch
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeID != sessionID || m.activeIndex() < 0 {
		return Record{}, ErrNoActiveSession
	}
	return m.appendRecord(ctx, rollNo, "", MethodFace)
}

// CheckIn marks a student who scanned the live session QR on their own device.
func (m *Manager) CheckIn(ctx context.Context, sessionQR, rollNo string) (Record, error) {
	rollNo = strings.TrimSpace(rollNo)
	scanned, err := qr.DecodeSession(sessionQR)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrQRMismatch, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.activeIndex()
	if i < 0 {
		return Record{}, ErrNoActiveSession
	}
	if rollNo == "" {
		return Record{}, ErrRollNoRequired
	}
	s := m.sessions[i]
	if s.QRCode == "" {
		return Record{}, ErrQRExpired
	}
	live, err := qr.DecodeSession(s.QRCode)
	if err != nil || live.SessionID != scanned.SessionID || live.Timestamp != scanned.Timestamp {
		return Record{}, ErrQRMismatch
	}
	if exp, err := live.ExpiresAt(); err != nil || !m.opts.Now().Before(exp) {
		return Record{}, ErrQRExpired
	}
	return m.appendRecord(ctx, rollNo, "", MethodQR)
}

// appendRecord adds a record to the active session. Caller holds the lock.
func (m *Manager) appendRecord(ctx context.Context, rollNo, name string, method Method) (Record, error) {
	i := m.activeIndex()
	s := &m.sessions[i]
	if s.Has(rollNo) {
		metrics.DuplicateMarks.Inc()
		return Record{}, fmt.Errorf("%w: %s", ErrDuplicate, rollNo)
	}

	if name == "" && m.opts.Students != nil {
		if n, ok := m.opts.Students.StudentName(ctx, m.teacherID, rollNo); ok {
			name = n
		}
	}
	if name == "" {
		name = "Student " + rollNo
	}

	rec := Record{
		RollNo:      rollNo,
		StudentName: name,
		Timestamp:   m.opts.Now().UTC().Format(isoMillis),
		Method:      method,
	}
	s.AttendanceList = append(s.AttendanceList, rec)
	m.persist(ctx)
	metrics.AttendanceMarked.WithLabelValues(string(method)).Inc()
	return rec, nil
}

// End closes the active session, freezing its attendance list and discarding any live QR.
func (m *Manager) End(ctx context.Context) (Session, error) {
	m.mu.Lock()
	i := m.activeIndex()
	if i < 0 {
		m.mu.Unlock()
		return Session{}, ErrNoActiveSession
	}
	s := &m.sessions[i]
	s.EndTime = m.opts.Now().Format(clockLayout)
	s.IsActive = false
	s.clearQR()
	m.countdown.Cancel()
	m.activeID = ""
	if err := m.lifecycle.Event(ctx, eventEnd); err != nil {
		log.Printf("attendance %s: lifecycle: %v", m.teacherID, err)
		m.lifecycle.SetState(stateIdle)
	}
	m.persist(ctx)
	ended := s.clone()
	m.mu.Unlock()

	metrics.SessionsEnded.Inc()
	if m.opts.Events != nil {
		msg := queue.Message{Type: queue.SessionEnded, TeacherID: m.teacherID, SessionID: ended.ID, At: m.opts.Now().UTC()}
		if err := m.opts.Events.Publish(ctx, msg); err != nil {
			log.Printf("attendance %s: publish session end failed: %v", m.teacherID, err)
		}
	}
	return ended, nil
}

// Active returns the active session, if any.
func (m *Manager) Active() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.activeIndex()
	if i < 0 {
		return Session{}, false
	}
	return m.sessions[i].clone(), true
}

// Sessions returns the full history, oldest first.
func (m *Manager) Sessions() []Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Session, len(m.sessions))
	for i := range m.sessions {
		out[i] = m.sessions[i].clone()
	}
	return out
}

// Get returns the session with id.
func (m *Manager) Get(id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sessions {
		if m.sessions[i].ID == id {
			return m.sessions[i].clone(), nil
		}
	}
	return Session{}, ErrSessionNotFound
}
