package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/edumanager-api/internal/dto"
	"github.com/noah-isme/edumanager-api/pkg/sheet"
)

// facultyNotRecorded marks a faculty cell that intentionally names nobody.
const facultyNotRecorded = "N.R."

// workloadRecord is one normalised spreadsheet row.
type workloadRecord struct {
	Line        int
	Department  string
	Semester    string
	SubjectCode string
	SubjectName string
	WeeklyHours int
	MainFaculty string
	CoFaculty   string
}

// hasSubject reports whether the row carries enough to upsert a subject.
func (r workloadRecord) hasSubject() bool {
	return r.SubjectCode != "" && r.SubjectName != ""
}

// departmentKey identifies the (name, semester) pair of the row.
func (r workloadRecord) departmentKey() string {
	return r.Department + "\x00" + r.Semester
}

// faculty returns the names that should be linked to the row's subject, main first.
// Blank cells, the "N.R." marker and a co-faculty equal to the main faculty are left out.
func (r workloadRecord) faculty() []string {
	names := make([]string, 0, 2)
	if isNamedFaculty(r.MainFaculty) {
		names = append(names, r.MainFaculty)
	}
	if isNamedFaculty(r.CoFaculty) && r.CoFaculty != r.MainFaculty {
		names = append(names, r.CoFaculty)
	}
	return names
}

func isNamedFaculty(name string) bool {
	trimmed := strings.TrimSpace(name)
	return trimmed != "" && trimmed != facultyNotRecorded
}

// normalizeWorkload converts the table rows into records. Rows with a blank department
// or semester are reported as warnings and left out. The semester is kept as a trimmed
// label, so "5", "V" and "Sem-5" are all accepted.
func normalizeWorkload(table *sheet.Table) ([]workloadRecord, []string) {
	records := make([]workloadRecord, 0, len(table.Rows))
	var warnings []string

	for i, row := range table.Rows {
		line := i + 2
		if rowIsBlank(row) {
			continue
		}

		department := strings.TrimSpace(table.Value(row, dto.ColumnBranch))
		semester := strings.TrimSpace(table.Value(row, dto.ColumnSemester))
		if department == "" || semester == "" {
			warnings = append(warnings, fmt.Sprintf("row %d: missing department or semester", line))
			continue
		}

		record := workloadRecord{
			Line:        line,
			Department:  department,
			Semester:    semester,
			SubjectCode: strings.TrimSpace(table.Value(row, dto.ColumnCourseCode)),
			SubjectName: strings.TrimSpace(table.Value(row, dto.ColumnCourseName)),
			WeeklyHours: parseWeeklyHours(table.Value(row, dto.ColumnLTP)),
			MainFaculty: table.Value(row, dto.ColumnMainFaculty),
			CoFaculty:   table.Value(row, dto.ColumnCoFaculty),
		}
		if !record.hasSubject() {
			warnings = append(warnings, fmt.Sprintf("row %d: missing course code or name", line))
		}
		records = append(records, record)
	}

	return records, warnings
}

// parseWeeklyHours reads the integer prefix of the lecture part of "L/T/P". Anything
// unparseable counts as zero and negatives clamp to zero.
func parseWeeklyHours(raw string) int {
	lecture := strings.TrimSpace(strings.SplitN(raw, "/", 2)[0])
	end := 0
	for end < len(lecture) {
		c := lecture[end]
		if c >= '0' && c <= '9' || end == 0 && (c == '-' || c == '+') {
			end++
			continue
		}
		break
	}
	hours, err := strconv.Atoi(lecture[:end])
	if err != nil || hours < 0 {
		return 0
	}
	return hours
}

func rowIsBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
