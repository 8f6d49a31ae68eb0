// Package seed writes demo teachers, students and join requests.
// Seeding only fills keys that were never written; reads never seed.
package seed

import (
	"context"
	"fmt"
	"log"

	"upasthiti/internal/auth"
	"upasthiti/internal/roster"
	"upasthiti/internal/store"
)

// DemoPassword is shared by all demo teachers.
const DemoPassword = "password123"

var demoTeachers = []auth.Teacher{
	{Email: "teacher@cse.edu", Name: "Dr. Rajesh Kumar", Department: "CSE"},
	{Email: "prof@ece.edu", Name: "Prof. Priya Sharma", Department: "ECE"},
	{Email: "admin@me.edu", Name: "Dr. Amit Singh", Department: "ME"},
}

var demoStudents = []roster.Student{
	{ID: "1", Name: "Arjun Sharma", RollNo: "CSE-2023-021", Email: "arjun.sharma@student.edu", Phone: "+91 98765 43210", Department: "CSE", Year: "2nd Year", Status: roster.StatusActive, AttendancePercentage: 92, TotalClasses: 50, AttendedClasses: 46, JoinDate: "2024-01-15"},
	{ID: "2", Name: "Priya Patel", RollNo: "ECE-2024-014", Email: "priya.patel@student.edu", Phone: "+91 87654 32109", Department: "ECE", Year: "1st Year", Status: roster.StatusActive, AttendancePercentage: 88, TotalClasses: 45, AttendedClasses: 40, JoinDate: "2024-01-14"},
	{ID: "3", Name: "Rahul Kumar", RollNo: "ME-2022-007", Email: "rahul.kumar@student.edu", Phone: "+91 76543 21098", Department: "ME", Year: "3rd Year", Status: roster.StatusActive, AttendancePercentage: 76, TotalClasses: 60, AttendedClasses: 46, JoinDate: "2024-01-13"},
	{ID: "4", Name: "Sneha Gupta", RollNo: "CSE-2023-045", Email: "sneha.gupta@student.edu", Department: "CSE", Year: "2nd Year", Status: roster.StatusActive, AttendancePercentage: 95, TotalClasses: 50, AttendedClasses: 48, JoinDate: "2024-01-12"},
	{ID: "5", Name: "Vikram Singh", RollNo: "EE-2023-033", Email: "vikram.singh@student.edu", Department: "EE", Year: "2nd Year", Status: roster.StatusActive, AttendancePercentage: 82, TotalClasses: 48, AttendedClasses: 39, JoinDate: "2024-01-11"},
}

func demoRequests() []roster.JoinRequest {
	out := make([]roster.JoinRequest, 0, len(demoStudents))
	for _, s := range demoStudents {
		out = append(out, roster.JoinRequest{
			ID:          s.ID,
			Name:        s.Name,
			RollNo:      s.RollNo,
			Department:  s.Department,
			Year:        s.Year,
			RequestDate: s.JoinDate,
			Status:      roster.RequestPending,
			Email:       s.Email,
		})
	}
	return out
}

// Teachers writes the demo teacher roster unless one exists. It reports whether it wrote.
func Teachers(ctx context.Context, dir *auth.Directory) (bool, error) {
	_, found, err := dir.Teachers(ctx)
	if err != nil {
		return false, err
	}
	if found {
		return false, nil
	}
	teachers := make([]auth.Teacher, len(demoTeachers))
	for i, t := range demoTeachers {
		hash, err := auth.HashPassword(DemoPassword)
		if err != nil {
			return false, fmt.Errorf("hash password for %s: %w", t.Email, err)
		}
		t.PasswordHash = hash
		teachers[i] = t
	}
	if err := dir.SaveTeachers(ctx, teachers); err != nil {
		return false, err
	}
	log.Printf("seeded %d demo teachers", len(teachers))
	return true, nil
}

// Teacher writes demo students and join requests for teacherID, each only if
// that key was never written.
func Teacher(ctx context.Context, kv store.KV, teacherID string) error {
	scope := store.ForTeacher(teacherID)
	wrote, err := setIfAbsent(ctx, kv, scope.Students(), demoStudents)
	if err != nil {
		return err
	}
	if wrote {
		log.Printf("seeded demo students for %s", scope.Teacher())
	}
	wrote, err = setIfAbsent(ctx, kv, scope.Requests(), demoRequests())
	if err != nil {
		return err
	}
	if wrote {
		log.Printf("seeded demo join requests for %s", scope.Teacher())
	}
	return nil
}

func setIfAbsent(ctx context.Context, kv store.KV, key string, v any) (bool, error) {
	var existing any
	found, err := store.GetJSON(ctx, kv, key, &existing)
	if found {
		// a malformed value is left for the owner to repair
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, store.SetJSON(ctx, kv, key, v)
}
