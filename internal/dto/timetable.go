package dto

import "github.com/noah-isme/edumanager-api/internal/models"

// TimetableEntry is one flattened daily task.
type TimetableEntry struct {
	Day     string `json:"day"`
	Time    string `json:"time"`
	Subject string `json:"subject"`
	Class   string `json:"class"`
	Period  string `json:"period"`
}

// TeacherSchedule summarises one teacher's weekly tasks for admin listings.
type TeacherSchedule struct {
	TeacherID   string            `json:"teacherId"`
	TeacherName string            `json:"teacherName"`
	Department  string            `json:"department"`
	DailyTasks  models.DailyTasks `json:"dailyTasks"`
}

// TaskItem is one of today's tasks for a teacher.
type TaskItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Time        string `json:"time"`
}

// ComprehensiveRequest tunes the comprehensive timetable generation.
type ComprehensiveRequest struct {
	IncludePDF bool `json:"includePdf" form:"includePdf"`
}

// TimetableMatrix maps day label to period label to cell text.
type TimetableMatrix map[string]map[string]string

// ComprehensiveStats counts the inputs of a comprehensive timetable.
type ComprehensiveStats struct {
	TotalTeachers int `json:"totalTeachers"`
	TotalSubjects int `json:"totalSubjects"`
	Days          int `json:"days"`
	Periods       int `json:"periods"`
}

// ComprehensiveResponse describes a generated comprehensive timetable.
type ComprehensiveResponse struct {
	Success        bool               `json:"success"`
	Message        string             `json:"message"`
	Filename       string             `json:"filename"`
	DownloadURL    string             `json:"downloadUrl"`
	PDFFilename    string             `json:"pdfFilename,omitempty"`
	PDFDownloadURL string             `json:"pdfDownloadUrl,omitempty"`
	Timetable      TimetableMatrix    `json:"timetable"`
	Stats          ComprehensiveStats `json:"stats"`
}
