package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"upasthiti/internal/alerts"
	"upasthiti/internal/auth"
	"upasthiti/internal/export"
	"upasthiti/internal/qr"
	"upasthiti/internal/roster"
)

// ---------- Students ----------

func (h *Handler) ListStudents(c *gin.Context) {
	f := roster.Filter{
		Search:     c.Query("search"),
		Department: c.Query("department"),
		Year:       c.Query("year"),
		Status:     roster.Status(c.Query("status")),
	}
	list, err := h.students.List(c.Request.Context(), auth.TeacherID(c), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": list, "groups": roster.GroupByClass(list)})
}

func (h *Handler) ExportStudents(c *gin.Context) {
	list, err := h.students.Students(c.Request.Context(), auth.TeacherID(c))
	if err != nil {
		fail(c, err)
		return
	}
	data, err := export.RosterWorkbook(list)
	if err != nil {
		fail(c, err)
		return
	}
	attachment(c, "students.xlsx", export.ContentType, data)
}

// StudentQR renders the personal QR card a student shows for scanning.
func (h *Handler) StudentQR(c *gin.Context) {
	s, ok := h.students.Lookup(c.Request.Context(), auth.TeacherID(c), c.Param("rollNo"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
		return
	}
	content, err := qr.Encode(qr.StudentPayload{Type: qr.TypeStudent, StudentID: s.RollNo, Name: s.Name})
	if err != nil {
		fail(c, err)
		return
	}
	png, err := qr.PNG(content, qrImageSize)
	if err != nil {
		fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// ---------- Join requests ----------

func (h *Handler) ListRequests(c *gin.Context) {
	reqs, err := h.students.Requests(c.Request.Context(), auth.TeacherID(c))
	if err != nil {
		fail(c, err)
		return
	}
	pending, processed := []roster.JoinRequest{}, []roster.JoinRequest{}
	for _, r := range reqs {
		if r.Status == roster.RequestPending || r.Status == "" {
			pending = append(pending, r)
		} else {
			processed = append(processed, r)
		}
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending, "processed": processed})
}

func (h *Handler) decide(decision roster.RequestStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := h.students.Decide(c.Request.Context(), auth.TeacherID(c), c.Param("id"), decision)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, req)
	}
}

type joinRequest struct {
	TeacherEmail string `json:"teacherEmail" binding:"required,email"`
	roster.JoinRequest
}

// Join files a student's request to join a teacher's class.
func (h *Handler) Join(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	teachers, _, err := h.teachers.Teachers(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	known := false
	for _, t := range teachers {
		if t.Email == req.TeacherEmail {
			known = true
			break
		}
	}
	if !known {
		c.JSON(http.StatusNotFound, gin.H{"error": "teacher not found"})
		return
	}
	filed, err := h.students.Submit(ctx, req.TeacherEmail, req.JoinRequest)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, filed)
}

// ---------- Alerts ----------

func (h *Handler) Alerts(c *gin.Context) {
	ctx := c.Request.Context()
	teacher := auth.TeacherID(c)
	list, err := h.students.Students(ctx, teacher)
	if err != nil {
		fail(c, err)
		return
	}
	m, ok := h.manager(c)
	if !ok {
		return
	}
	all := alerts.Build(list, m.Sessions())
	filtered := alerts.Filter(all, alerts.Level(c.Query("level")), c.Query("department"))
	c.JSON(http.StatusOK, gin.H{
		"alerts": filtered,
		"groups": alerts.GroupByClass(filtered),
		"counts": alerts.Counts(all),
	})
}
