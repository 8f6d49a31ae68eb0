package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"upasthiti/internal/attendance"
	"upasthiti/internal/auth"
	"upasthiti/internal/export"
	"upasthiti/internal/geo"
	"upasthiti/internal/qr"
	"upasthiti/internal/snapshot"
)

const qrImageSize = 320

// manager resolves the caller's session manager, writing the error response on failure.
func (h *Handler) manager(c *gin.Context) (*attendance.Manager, bool) {
	m, err := h.sessions.For(c.Request.Context(), auth.TeacherID(c))
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return m, true
}

func (h *Handler) CreateSession(c *gin.Context) {
	var form attendance.SessionForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, ok := h.manager(c)
	if !ok {
		return
	}
	s, err := m.Create(c.Request.Context(), form)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *Handler) ListSessions(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": m.Sessions()})
}

func (h *Handler) GetSession(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	s, err := m.Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) ActiveSession(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	s, found := m.Active()
	if !found {
		fail(c, attendance.ErrNoActiveSession)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": s, "qrTimer": m.QRRemaining()})
}

type qrRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// GenerateQR issues a new session QR. The body may carry the device's position.
func (h *Handler) GenerateQR(c *gin.Context) {
	var req qrRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	var hint *geo.Coordinates
	if req.Lat != nil && req.Lng != nil {
		hint = &geo.Coordinates{Lat: *req.Lat, Lng: *req.Lng}
	}
	m, ok := h.manager(c)
	if !ok {
		return
	}
	ticket, err := m.GenerateQR(c.Request.Context(), hint)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *Handler) QRImage(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	s, found := m.Active()
	if !found {
		fail(c, attendance.ErrNoActiveSession)
		return
	}
	if s.QRCode == "" {
		fail(c, attendance.ErrQRExpired)
		return
	}
	png, err := qr.PNG(s.QRCode, qrImageSize)
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) CancelQR(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	if err := m.CancelQR(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type manualRequest struct {
	RollNo string `json:"rollNo"`
}

func (h *Handler) MarkManual(c *gin.Context) {
	var req manualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, ok := h.manager(c)
	if !ok {
		return
	}
	rec, err := m.MarkManual(c.Request.Context(), req.RollNo)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

type scanRequest struct {
	Data string `json:"data"`
}

func (h *Handler) MarkScan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, ok := h.manager(c)
	if !ok {
		return
	}
	rec, err := m.MarkScan(c.Request.Context(), req.Data)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// faceRequest carries either a hosted image URL or a webcam capture as a data URL.
type faceRequest struct {
	RollNo   string `json:"rollNo"`
	ImageURL string `json:"imageUrl" binding:"omitempty,url"`
	Image    string `json:"image"`
}

func (h *Handler) MarkFace(c *gin.Context) {
	var req faceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ImageURL == "" && req.Image == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "imageUrl or image is required"})
		return
	}
	m, ok := h.manager(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	imageURL := req.ImageURL
	if imageURL == "" {
		if h.snaps == nil {
			fail(c, snapshot.ErrNotConfigured)
			return
		}
		url, err := h.snaps.Upload(ctx, req.RollNo, req.Image)
		if err != nil {
			if errors.Is(err, snapshot.ErrNotConfigured) {
				fail(c, err)
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": "snapshot upload failed"})
			return
		}
		imageURL = url
	}
	rec, err := m.MarkFace(ctx, req.RollNo, imageURL)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) EndSession(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	s, err := m.End(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) ExportSession(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	s, err := m.Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	data, err := export.SessionWorkbook(s)
	if err != nil {
		fail(c, err)
		return
	}
	attachment(c, "attendance-"+s.Subject+"-"+s.Date+".xlsx", export.ContentType, data)
}

// ---------- Student check-in ----------

type checkInRequest struct {
	QR     string `json:"qr" binding:"required"`
	RollNo string `json:"rollNo" binding:"required"`
}

// CheckIn marks a student who scanned the teacher's live QR. No teacher token is needed;
// the QR payload identifies the session.
func (h *Handler) CheckIn(c *gin.Context) {
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, err := h.sessions.CheckIn(c.Request.Context(), req.QR, req.RollNo)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}
