package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"upasthiti/internal/auth"
	"upasthiti/internal/schedule"
)

type scheduleItem struct {
	schedule.Entry
	Expired bool `json:"expired"`
}

func (h *Handler) ListSchedule(c *gin.Context) {
	entries, err := h.schedule.List(c.Request.Context(), auth.TeacherID(c))
	if err != nil {
		fail(c, err)
		return
	}
	now := h.now()
	week := make(map[string][]scheduleItem, len(schedule.Days))
	for day, list := range schedule.Week(entries) {
		items := make([]scheduleItem, 0, len(list))
		for _, e := range list {
			items = append(items, scheduleItem{Entry: e, Expired: e.Expired(now)})
		}
		week[day] = items
	}
	c.JSON(http.StatusOK, gin.H{"days": schedule.Days, "week": week, "total": len(entries)})
}

func (h *Handler) CreateScheduleEntry(c *gin.Context) {
	var e schedule.Entry
	if err := c.ShouldBindJSON(&e); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.schedule.Create(c.Request.Context(), auth.TeacherID(c), e)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) DeleteScheduleEntry(c *gin.Context) {
	if err := h.schedule.Delete(c.Request.Context(), auth.TeacherID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ClearSchedule(c *gin.Context) {
	if err := h.schedule.Clear(c.Request.Context(), auth.TeacherID(c)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
