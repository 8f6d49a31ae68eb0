// Package handler exposes the dashboard over HTTP with gin.
package handler

import (
	"github.com/gin-gonic/gin"

	"upasthiti/internal/auth"
	"upasthiti/internal/httpmiddleware"
	"upasthiti/internal/roster"
)

// Register mounts every API route on r. limiter may be nil.
func (h *Handler) Register(r gin.IRouter, limiter *httpmiddleware.TokenBucket) {
	r.GET("/healthz", h.Healthz)

	v1 := r.Group("/v1")
	public := v1.Group("")
	if limiter != nil {
		public.Use(limiter.Middleware(httpmiddleware.ByIP))
	}
	public.POST("/auth/login", h.Login)
	public.POST("/checkin", h.CheckIn)
	public.POST("/join", h.Join)

	teacher := v1.Group("", auth.TeacherAuth(h.signingKey, h.issuer, h.teachers))
	if limiter != nil {
		teacher.Use(limiter.Middleware(httpmiddleware.ByContext(auth.ContextTeacher)))
	}
	teacher.POST("/auth/logout", h.Logout)
	teacher.GET("/auth/me", h.Me)

	teacher.POST("/sessions", h.CreateSession)
	teacher.GET("/sessions", h.ListSessions)
	teacher.GET("/sessions/active", h.ActiveSession)
	teacher.POST("/sessions/active/qr", h.GenerateQR)
	teacher.DELETE("/sessions/active/qr", h.CancelQR)
	teacher.GET("/sessions/active/qr.png", h.QRImage)
	teacher.POST("/sessions/active/manual", h.MarkManual)
	teacher.POST("/sessions/active/scan", h.MarkScan)
	teacher.POST("/sessions/active/face", h.MarkFace)
	teacher.POST("/sessions/active/end", h.EndSession)
	teacher.GET("/sessions/:id", h.GetSession)
	teacher.GET("/sessions/:id/export.xlsx", h.ExportSession)

	teacher.GET("/students", h.ListStudents)
	teacher.GET("/students/export.xlsx", h.ExportStudents)
	teacher.GET("/students/:rollNo/qr.png", h.StudentQR)

	teacher.GET("/requests", h.ListRequests)
	teacher.POST("/requests/:id/approve", h.decide(roster.RequestApproved))
	teacher.POST("/requests/:id/decline", h.decide(roster.RequestDeclined))

	teacher.GET("/schedule", h.ListSchedule)
	teacher.POST("/schedule", h.CreateScheduleEntry)
	teacher.DELETE("/schedule/:id", h.DeleteScheduleEntry)
	teacher.DELETE("/schedule", h.ClearSchedule)

	teacher.GET("/alerts", h.Alerts)
}
