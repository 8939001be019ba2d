package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/edumanager-api/internal/dto"
	"github.com/noah-isme/edumanager-api/internal/models"
	appErrors "github.com/noah-isme/edumanager-api/pkg/errors"
	"github.com/noah-isme/edumanager-api/pkg/sheet"
)

const (
	// TemplateFilename is the download name of the sample workbook.
	TemplateFilename = "timetable_template.xlsx"
	templateSheet    = "Timetable Data"
	exportBasename   = "workload_export"
)

// templateRows are the illustrative rows of the downloadable template.
var templateRows = []dto.WorkloadRow{
	{Branch: "CSE", Semester: "5", CourseCode: "CS501", CourseName: "Data Structures", LTP: "3/1/2", MainFaculty: "Dr. John Smith", CoFaculty: "Dr. Jane Doe"},
	{Branch: "CSE", Semester: "5", CourseCode: "CS502", CourseName: "Database Management", LTP: "3/0/2", MainFaculty: "Dr. Jane Doe"},
	{Branch: "ECE", Semester: "3", CourseCode: "EC301", CourseName: "Digital Electronics", LTP: "2/1/2", MainFaculty: "Dr. Mike Johnson", CoFaculty: "Dr. Sarah Wilson"},
	{Branch: "ECE", Semester: "3", CourseCode: "EC302", CourseName: "Signals and Systems", LTP: "3/1/0", MainFaculty: "Dr. Sarah Wilson"},
	{Branch: "ME", Semester: "4", CourseCode: "ME401", CourseName: "Thermodynamics", LTP: "3/0/2", MainFaculty: "Dr. Robert Brown"},
	{Branch: "ME", Semester: "4", CourseCode: "ME402", CourseName: "Mechanics of Materials", LTP: "2/1/2", MainFaculty: "Dr. Robert Brown", CoFaculty: "Dr. Lisa Davis"},
}

type exportDepartmentSource interface {
	List(ctx context.Context) ([]models.Department, error)
}

type exportSubjectSource interface {
	List(ctx context.Context) ([]models.Subject, error)
}

type exportTeacherSource interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, error)
}

type tableRenderer interface {
	Render(data sheet.Dataset) ([]byte, error)
}

// ExportFile is a rendered workbook ready to be served or written to disk.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
	Rows        int
}

// ExportService projects the department graph back into workload rows.
type ExportService struct {
	departments exportDepartmentSource
	subjects    exportSubjectSource
	teachers    exportTeacherSource
	cache       *CacheService
	xlsx        tableRenderer
	csv         tableRenderer
	logger      *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(departments exportDepartmentSource, subjects exportSubjectSource, teachers exportTeacherSource, cache *CacheService, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		departments: departments,
		subjects:    subjects,
		teachers:    teachers,
		cache:       cache,
		xlsx:        sheet.NewXLSXRenderer(sheet.XLSXOptions{NumericColumns: []string{dto.ColumnSemester}}),
		csv:         sheet.NewCSVRenderer(),
		logger:      logger,
	}
}

// Rows returns the current workload projection.
func (s *ExportService) Rows(ctx context.Context) ([]dto.WorkloadRow, error) {
	var cached []dto.WorkloadRow
	if s.cache.Get(ctx, cacheKeyExportRows, &cached) {
		return cached, nil
	}

	departments, err := s.departments.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load departments")
	}
	subjects, err := s.subjects.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	teachers, err := s.teachers.List(ctx, models.TeacherFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}

	rows := ProjectWorkload(departments, subjects, teachers)
	s.cache.Set(ctx, cacheKeyExportRows, rows)
	return rows, nil
}

// Export renders the projection in the requested format.
func (s *ExportService) Export(ctx context.Context, format sheet.Format) (*ExportFile, error) {
	rows, err := s.Rows(ctx)
	if err != nil {
		return nil, err
	}
	file, err := s.Render(rows, format, "")
	if err != nil {
		return nil, err
	}
	file.Filename = exportBasename + "." + string(format)
	return file, nil
}

// Template renders the sample workbook offered to administrators.
func (s *ExportService) Template() (*ExportFile, error) {
	file, err := s.Render(templateRows, sheet.FormatXLSX, templateSheet)
	if err != nil {
		return nil, err
	}
	file.Filename = TemplateFilename
	return file, nil
}

// Render writes rows using the workload column layout.
func (s *ExportService) Render(rows []dto.WorkloadRow, format sheet.Format, sheetName string) (*ExportFile, error) {
	renderer := s.xlsx
	if format == sheet.FormatCSV {
		renderer = s.csv
	}

	payload, err := renderer.Render(workloadDataset(rows, sheetName))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to render %s workbook", format))
	}
	return &ExportFile{ContentType: format.ContentType(), Payload: payload, Rows: len(rows)}, nil
}

// ProjectWorkload flattens the graph into one row per (department, subject). The
// first two teachers of the department carrying the subject in their load become the
// main and co-faculty, in the order the teachers are given.
func ProjectWorkload(departments []models.Department, subjects []models.Subject, teachers []models.Teacher) []dto.WorkloadRow {
	byID := indexSubjects(subjects)
	rows := make([]dto.WorkloadRow, 0)

	for _, dept := range departments {
		for _, subjectID := range dept.SubjectIDs {
			subject, ok := byID[subjectID]
			if !ok {
				continue
			}
			var faculty []string
			for i := range teachers {
				if teachers[i].Department != dept.Name || !teachers[i].HasLoad(subjectID) {
					continue
				}
				faculty = append(faculty, teachers[i].FullName)
				if len(faculty) == 2 {
					break
				}
			}

			row := dto.WorkloadRow{
				Branch:     dept.Name,
				Semester:   dept.Semester,
				CourseCode: subject.Code,
				CourseName: subject.Name,
				LTP:        fmt.Sprintf("%d/0/0", subject.WeeklyHours),
			}
			if len(faculty) > 0 {
				row.MainFaculty = faculty[0]
			}
			if len(faculty) > 1 {
				row.CoFaculty = faculty[1]
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func workloadDataset(rows []dto.WorkloadRow, sheetName string) sheet.Dataset {
	records := make([]map[string]string, len(rows))
	for i, row := range rows {
		records[i] = row.Record()
	}
	return sheet.Dataset{Sheet: sheetName, Headers: dto.WorkloadColumns, Rows: records}
}
