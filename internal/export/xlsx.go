// Package export renders attendance data as XLSX workbooks.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"upasthiti/internal/attendance"
	"upasthiti/internal/roster"
)

const (
	sessionSheet = "Attendance"
	rosterSheet  = "Students"
)

// ContentType is the MIME type of the generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SessionWorkbook writes one session's details and attendance list.
func SessionWorkbook(s attendance.Session) ([]byte, error) {
	rows := [][]any{
		{"Subject", s.Subject},
		{"Department", s.Department},
		{"Semester", s.Semester},
		{"Section", s.Section},
		{"Date", s.Date},
		{"Start", s.StartTime},
		{"End", s.EndTime},
		{"Present", len(s.AttendanceList)},
		{},
		{"#", "Roll No", "Name", "Method", "Time"},
	}
	for i, r := range s.AttendanceList {
		rows = append(rows, []any{i + 1, r.RollNo, r.StudentName, string(r.Method), r.Timestamp})
	}
	return workbook(sessionSheet, rows)
}

// RosterWorkbook writes a student list with attendance totals.
func RosterWorkbook(students []roster.Student) ([]byte, error) {
	rows := [][]any{{"Roll No", "Name", "Email", "Phone", "Department", "Year", "Status", "Attended", "Total", "Attendance %", "Joined"}}
	for _, s := range students {
		rows = append(rows, []any{s.RollNo, s.Name, s.Email, s.Phone, s.Department, s.Year, string(s.Status), s.AttendedClasses, s.TotalClasses, s.AttendancePercentage, s.JoinDate})
	}
	return workbook(rosterSheet, rows)
}

func workbook(sheet string, rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
