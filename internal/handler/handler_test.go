package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"upasthiti/internal/attendance"
	"upasthiti/internal/auth"
	"upasthiti/internal/export"
	"upasthiti/internal/roster"
	"upasthiti/internal/schedule"
	"upasthiti/internal/seed"
	"upasthiti/internal/store"
)

type testAPI struct {
	t        *testing.T
	router   *gin.Engine
	sessions *attendance.Registry
	token    string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	kv := store.NewMemory()
	teachers := auth.NewDirectory(kv)
	if _, err := seed.Teachers(ctx, teachers); err != nil {
		t.Fatalf("seed: %v", err)
	}
	students := roster.NewDirectory(kv, nil)
	sessions := attendance.NewRegistry(kv, attendance.Options{Students: students})
	h := New(Deps{
		KV:         kv,
		Sessions:   sessions,
		Teachers:   teachers,
		Students:   students,
		Schedule:   schedule.NewStore(kv),
		SigningKey: "test-key",
		Issuer:     "test",
		AccessTTL:  time.Hour,
		SeedDemo:   true,
	})
	r := gin.New()
	h.Register(r, nil)
	return &testAPI{t: t, router: r, sessions: sessions}
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) login() {
	a.t.Helper()
	w := a.do(http.MethodPost, "/v1/auth/login", gin.H{"email": "teacher@cse.edu", "password": seed.DemoPassword})
	if w.Code != http.StatusOK {
		a.t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	a.token = resp.AccessToken
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestRequiresLogin(t *testing.T) {
	a := newTestAPI(t)
	if w := a.do(http.MethodGet, "/v1/sessions", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: %d", w.Code)
	}
	if w := a.do(http.MethodPost, "/v1/auth/login", gin.H{"email": "teacher@cse.edu", "password": "nope"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: %d", w.Code)
	}
	a.login()
	if w := a.do(http.MethodGet, "/v1/sessions", nil); w.Code != http.StatusOK {
		t.Fatalf("after login: %d", w.Code)
	}
	if w := a.do(http.MethodPost, "/v1/auth/logout", nil); w.Code != http.StatusNoContent {
		t.Fatalf("logout: %d", w.Code)
	}
	if w := a.do(http.MethodGet, "/v1/sessions", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("after logout: %d", w.Code)
	}
}

func TestLogoutDropsSessionManager(t *testing.T) {
	ctx := context.Background()
	a := newTestAPI(t)
	a.login()
	a.do(http.MethodPost, "/v1/sessions", gin.H{"subject": "DBMS", "department": "CSE", "semester": "4", "section": "A"})
	if w := a.do(http.MethodPost, "/v1/sessions/active/qr", nil); w.Code != http.StatusOK {
		t.Fatalf("qr: %d", w.Code)
	}
	before, err := a.sessions.For(ctx, "teacher@cse.edu")
	if err != nil {
		t.Fatalf("for: %v", err)
	}

	if w := a.do(http.MethodPost, "/v1/auth/logout", nil); w.Code != http.StatusNoContent {
		t.Fatalf("logout: %d", w.Code)
	}
	after, err := a.sessions.For(ctx, "teacher@cse.edu")
	if err != nil {
		t.Fatalf("for: %v", err)
	}
	if after == before {
		t.Fatalf("manager still cached after logout")
	}
	if _, ok := after.Active(); !ok {
		t.Fatalf("active session lost on reload")
	}
	if after.QRRemaining() <= 0 {
		t.Fatalf("live qr not restored on reload")
	}
}

func TestExportFilenameIsEncoded(t *testing.T) {
	a := newTestAPI(t)
	a.login()
	subject := `Data "Structures" é`
	w := a.do(http.MethodPost, "/v1/sessions", gin.H{"subject": subject, "department": "CSE", "semester": "4", "section": "A"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	created := decode[attendance.Session](t, w)

	w = a.do(http.MethodGet, "/v1/sessions/"+created.ID+"/export.xlsx", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export: %d", w.Code)
	}
	disposition, params, err := mime.ParseMediaType(w.Header().Get("Content-Disposition"))
	if err != nil {
		t.Fatalf("content-disposition %q: %v", w.Header().Get("Content-Disposition"), err)
	}
	want := "attendance-" + subject + "-" + created.Date + ".xlsx"
	if disposition != "attachment" || params["filename"] != want {
		t.Fatalf("got %s %q, want %q", disposition, params["filename"], want)
	}
}

func TestSessionFlow(t *testing.T) {
	a := newTestAPI(t)
	a.login()

	if w := a.do(http.MethodPost, "/v1/sessions", gin.H{"subject": "DBMS", "department": "CSE", "semester": "4"}); w.Code != http.StatusBadRequest {
		t.Fatalf("incomplete form: %d", w.Code)
	}
	w := a.do(http.MethodPost, "/v1/sessions", gin.H{"subject": "DBMS", "department": "CSE", "semester": "4", "section": "A"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	created := decode[attendance.Session](t, w)
	if w := a.do(http.MethodPost, "/v1/sessions", gin.H{"subject": "OS", "department": "CSE", "semester": "4", "section": "A"}); w.Code != http.StatusConflict {
		t.Fatalf("second active session: %d", w.Code)
	}

	w = a.do(http.MethodPost, "/v1/sessions/active/qr", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("qr: %d %s", w.Code, w.Body.String())
	}
	ticket := decode[attendance.QRTicket](t, w)
	if ticket.Remaining != 120 || ticket.Code == "" {
		t.Fatalf("ticket = %+v", ticket)
	}
	if w := a.do(http.MethodGet, "/v1/sessions/active/qr.png", nil); w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("qr png: %d", w.Code)
	}

	w = a.do(http.MethodPost, "/v1/sessions/active/manual", gin.H{"rollNo": "CSE-2023-021"})
	if w.Code != http.StatusCreated {
		t.Fatalf("manual: %d %s", w.Code, w.Body.String())
	}
	if rec := decode[attendance.Record](t, w); rec.StudentName != "Arjun Sharma" {
		t.Fatalf("roster name not used: %+v", rec)
	}
	if w := a.do(http.MethodPost, "/v1/sessions/active/manual", gin.H{"rollNo": "CSE-2023-021"}); w.Code != http.StatusConflict {
		t.Fatalf("duplicate: %d", w.Code)
	}
	if w := a.do(http.MethodPost, "/v1/sessions/active/scan", gin.H{"data": "STUDENT_CSE-2023-045_1700000000000"}); w.Code != http.StatusCreated {
		t.Fatalf("scan: %d %s", w.Code, w.Body.String())
	}
	if w := a.do(http.MethodPost, "/v1/sessions/active/face", gin.H{"rollNo": "ME-2022-007", "imageUrl": "https://img.example/1.jpg"}); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("face without verifier: %d", w.Code)
	}

	student := &testAPI{t: t, router: a.router}
	if w := student.do(http.MethodPost, "/v1/checkin", gin.H{"qr": ticket.Code, "rollNo": "ECE-2024-014"}); w.Code != http.StatusCreated {
		t.Fatalf("checkin: %d %s", w.Code, w.Body.String())
	}

	w = a.do(http.MethodPost, "/v1/sessions/active/end", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("end: %d", w.Code)
	}
	ended := decode[attendance.Session](t, w)
	if ended.IsActive || ended.EndTime == "" || ended.QRCode != "" || len(ended.AttendanceList) != 3 {
		t.Fatalf("ended = %+v", ended)
	}
	if w := a.do(http.MethodGet, "/v1/sessions/active", nil); w.Code != http.StatusNotFound {
		t.Fatalf("active after end: %d", w.Code)
	}
	if w := student.do(http.MethodPost, "/v1/checkin", gin.H{"qr": ticket.Code, "rollNo": "EE-2023-033"}); w.Code != http.StatusNotFound {
		t.Fatalf("checkin after end: %d", w.Code)
	}

	w = a.do(http.MethodGet, "/v1/sessions/"+created.ID+"/export.xlsx", nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != export.ContentType {
		t.Fatalf("export: %d %s", w.Code, w.Header().Get("Content-Type"))
	}
	if w := a.do(http.MethodGet, "/v1/sessions/nope", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown session: %d", w.Code)
	}
}

func TestRequestsAndStudents(t *testing.T) {
	a := newTestAPI(t)
	a.login()

	w := a.do(http.MethodGet, "/v1/requests", nil)
	lists := decode[struct {
		Pending []roster.JoinRequest `json:"pending"`
	}](t, w)
	if len(lists.Pending) != 5 {
		t.Fatalf("seeded requests = %d", len(lists.Pending))
	}

	anon := &testAPI{t: t, router: a.router}
	w = anon.do(http.MethodPost, "/v1/join", gin.H{"teacherEmail": "teacher@cse.edu", "name": "Kavya Rao", "rollNo": "CSE-2024-101", "department": "CSE", "year": "1st Year", "email": "kavya@student.edu"})
	if w.Code != http.StatusCreated {
		t.Fatalf("join: %d %s", w.Code, w.Body.String())
	}
	filed := decode[roster.JoinRequest](t, w)

	if w := a.do(http.MethodPost, "/v1/requests/"+filed.ID+"/approve", nil); w.Code != http.StatusOK {
		t.Fatalf("approve: %d %s", w.Code, w.Body.String())
	}
	if w := a.do(http.MethodPost, "/v1/requests/"+filed.ID+"/decline", nil); w.Code != http.StatusConflict {
		t.Fatalf("re-decide: %d", w.Code)
	}

	w = a.do(http.MethodGet, "/v1/students?search=kavya", nil)
	found := decode[struct {
		Students []roster.Student `json:"students"`
	}](t, w)
	if len(found.Students) != 1 || found.Students[0].RollNo != "CSE-2024-101" {
		t.Fatalf("students = %+v", found.Students)
	}
	if w := a.do(http.MethodGet, "/v1/students/CSE-2024-101/qr.png", nil); w.Code != http.StatusOK {
		t.Fatalf("student qr: %d", w.Code)
	}
	if w := a.do(http.MethodGet, "/v1/students/export.xlsx", nil); w.Code != http.StatusOK {
		t.Fatalf("roster export: %d", w.Code)
	}

	w = a.do(http.MethodGet, "/v1/alerts", nil)
	got := decode[struct {
		Alerts []json.RawMessage `json:"alerts"`
	}](t, w)
	if len(got.Alerts) != 1 {
		t.Fatalf("only the new student is below the required level, got %d alerts", len(got.Alerts))
	}
}

func TestSchedule(t *testing.T) {
	a := newTestAPI(t)
	a.login()

	entry := gin.H{"day": "Monday", "startTime": "09:00", "endTime": "10:00", "department": "CSE", "semester": "4", "section": "A", "subject": "DBMS", "duration": 2}
	w := a.do(http.MethodPost, "/v1/schedule", entry)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	created := decode[schedule.Entry](t, w)

	entry["startTime"] = "11:00"
	if w := a.do(http.MethodPost, "/v1/schedule", entry); w.Code != http.StatusBadRequest {
		t.Fatalf("end before start: %d", w.Code)
	}

	w = a.do(http.MethodGet, "/v1/schedule", nil)
	week := decode[struct {
		Week  map[string][]json.RawMessage `json:"week"`
		Total int                          `json:"total"`
	}](t, w)
	if week.Total != 1 || len(week.Week["Monday"]) != 1 {
		t.Fatalf("week = %+v", week)
	}

	if w := a.do(http.MethodDelete, "/v1/schedule/"+created.ID, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", w.Code)
	}
	if w := a.do(http.MethodDelete, "/v1/schedule/"+created.ID, nil); w.Code != http.StatusNotFound {
		t.Fatalf("delete again: %d", w.Code)
	}
	if w := a.do(http.MethodDelete, "/v1/schedule", nil); w.Code != http.StatusNoContent {
		t.Fatalf("clear: %d", w.Code)
	}
}
