// Package alerts flags students whose attendance is below the required level.
package alerts

import (
	"sort"

	"upasthiti/internal/attendance"
	"upasthiti/internal/roster"
)

// Required is the minimum attendance percentage.
const Required = 75

// Level ranks how far below Required a student is.
type Level string

const (
	Critical Level = "critical"
	Warning  Level = "warning"
	Moderate Level = "moderate"
)

// LevelFor classifies an attendance percentage. ok is false at or above Required.
func LevelFor(pct int) (Level, bool) {
	switch {
	case pct >= Required:
		return "", false
	case pct < 50:
		return Critical, true
	case pct < 65:
		return Warning, true
	default:
		return Moderate, true
	}
}

// Alert is one low-attendance student.
type Alert struct {
	ID                 string `json:"id"`
	StudentName        string `json:"studentName"`
	RollNo             string `json:"rollNo"`
	Department         string `json:"department"`
	Year               string `json:"year"`
	Section            string `json:"section"`
	CurrentAttendance  int    `json:"currentAttendance"`
	RequiredAttendance int    `json:"requiredAttendance"`
	ClassesAttended    int    `json:"classesAttended"`
	TotalClasses       int    `json:"totalClasses"`
	LastAttended       string `json:"lastAttended,omitempty"`
	AlertLevel         Level  `json:"alertLevel"`
	Email              string `json:"email"`
	Phone              string `json:"phone,omitempty"`
}

// defaultSection applies until students carry a section of their own.
const defaultSection = "A"

// Build derives alerts from the roster. The last attended date is the latest
// session date on which the student was marked present.
func Build(students []roster.Student, sessions []attendance.Session) []Alert {
	last := make(map[string]string)
	for _, s := range sessions {
		for _, r := range s.AttendanceList {
			if s.Date > last[r.RollNo] {
				last[r.RollNo] = s.Date
			}
		}
	}

	out := []Alert{}
	for _, st := range students {
		level, ok := LevelFor(st.AttendancePercentage)
		if !ok {
			continue
		}
		out = append(out, Alert{
			ID:                 st.ID,
			StudentName:        st.Name,
			RollNo:             st.RollNo,
			Department:         st.Department,
			Year:               st.Year,
			Section:            defaultSection,
			CurrentAttendance:  st.AttendancePercentage,
			RequiredAttendance: Required,
			ClassesAttended:    st.AttendedClasses,
			TotalClasses:       st.TotalClasses,
			LastAttended:       last[st.RollNo],
			AlertLevel:         level,
			Email:              st.Email,
			Phone:              st.Phone,
		})
	}
	return out
}

// Filter keeps alerts matching level and department; empty matches all.
func Filter(in []Alert, level Level, department string) []Alert {
	out := []Alert{}
	for _, a := range in {
		if level != "" && a.AlertLevel != level {
			continue
		}
		if department != "" && a.Department != department {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Counts tallies alerts per level.
func Counts(in []Alert) map[Level]int {
	c := map[Level]int{Critical: 0, Warning: 0, Moderate: 0}
	for _, a := range in {
		c[a.AlertLevel]++
	}
	return c
}

// Group is the alerts of one department, year and section.
type Group struct {
	Key        string  `json:"key"`
	Department string  `json:"department"`
	Year       string  `json:"year"`
	Section    string  `json:"section"`
	Alerts     []Alert `json:"alerts"`
}

// GroupByClass buckets alerts by department, year and section, sorted by key.
// Within a group the lowest attendance comes first.
func GroupByClass(in []Alert) []Group {
	idx := map[string]int{}
	var groups []Group
	for _, a := range in {
		key := a.Department + "-" + a.Year + "-" + a.Section
		i, ok := idx[key]
		if !ok {
			i = len(groups)
			idx[key] = i
			groups = append(groups, Group{Key: key, Department: a.Department, Year: a.Year, Section: a.Section})
		}
		groups[i].Alerts = append(groups[i].Alerts, a)
	}
	for _, g := range groups {
		sort.SliceStable(g.Alerts, func(i, j int) bool { return g.Alerts[i].CurrentAttendance < g.Alerts[j].CurrentAttendance })
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}
