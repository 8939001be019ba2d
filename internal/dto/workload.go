package dto

// Column names shared by the import spreadsheet, the export projection and the
// scheduler input file.
const (
	ColumnBranch      = "Branch"
	ColumnSemester    = "Semester"
	ColumnCourseCode  = "Course Code"
	ColumnCourseName  = "Course Name"
	ColumnLTP         = "L/T/P"
	ColumnMainFaculty = "Main Faculty"
	ColumnCoFaculty   = "Co-Faculty"
)

// WorkloadColumns is the fixed column order of every workload sheet.
var WorkloadColumns = []string{
	ColumnBranch,
	ColumnSemester,
	ColumnCourseCode,
	ColumnCourseName,
	ColumnLTP,
	ColumnMainFaculty,
	ColumnCoFaculty,
}

// WorkloadRow is one flat (department, subject, faculty) line.
type WorkloadRow struct {
	Branch      string `json:"branch"`
	Semester    string `json:"semester"`
	CourseCode  string `json:"courseCode"`
	CourseName  string `json:"courseName"`
	LTP         string `json:"ltp"`
	MainFaculty string `json:"mainFaculty"`
	CoFaculty   string `json:"coFaculty"`
}

// Record keys the row by column name.
func (r WorkloadRow) Record() map[string]string {
	return map[string]string{
		ColumnBranch:      r.Branch,
		ColumnSemester:    r.Semester,
		ColumnCourseCode:  r.CourseCode,
		ColumnCourseName:  r.CourseName,
		ColumnLTP:         r.LTP,
		ColumnMainFaculty: r.MainFaculty,
		ColumnCoFaculty:   r.CoFaculty,
	}
}

// ImportSummary reports what an import changed. Row problems are warnings, never
// failures.
type ImportSummary struct {
	Rows                int      `json:"rows"`
	SkippedRows         int      `json:"skippedRows"`
	SubjectsUpserted    int      `json:"subjectsUpserted"`
	DepartmentsResolved int      `json:"departmentsResolved"`
	SubjectLinksAdded   int      `json:"subjectLinksAdded"`
	TeachersCreated     int      `json:"teachersCreated"`
	LoadLinksAdded      int      `json:"loadLinksAdded"`
	Warnings            []string `json:"warnings,omitempty"`
}

// ImportResponse is returned by the upload endpoint.
type ImportResponse struct {
	Message string        `json:"message"`
	Summary ImportSummary `json:"summary"`
}
