// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upasthiti_sessions_started_total",
		Help: "Attendance sessions started.",
	})
	SessionsEnded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upasthiti_sessions_ended_total",
		Help: "Attendance sessions ended.",
	})
	AttendanceMarked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upasthiti_attendance_marked_total",
		Help: "Attendance records appended, by method.",
	}, []string{"method"})
	DuplicateMarks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upasthiti_attendance_duplicates_total",
		Help: "Marks rejected because the roll number was already present.",
	})
	QRGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upasthiti_qr_generated_total",
		Help: "Session QR codes generated or regenerated.",
	})
	QRExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upasthiti_qr_expired_total",
		Help: "Session QR codes cleared by the countdown.",
	})
	GeoFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upasthiti_geolocation_fallbacks_total",
		Help: "QR generations that used the default coordinates.",
	})
)
