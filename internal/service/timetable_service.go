package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/edumanager-api/internal/dto"
	"github.com/noah-isme/edumanager-api/internal/models"
	appErrors "github.com/noah-isme/edumanager-api/pkg/errors"
	"github.com/noah-isme/edumanager-api/pkg/sheet"
	"github.com/noah-isme/edumanager-api/pkg/storage"
)

const (
	defaultTimetableDownloadPrefix = "/api/timetable/download/"
	placeholderTBD                 = "TBD"
	comprehensiveSheet             = "Timetable"
	comprehensiveTitle             = "Comprehensive Timetable"
)

// Matrix axes of the comprehensive timetable.
var (
	timetableDays    = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	timetablePeriods = []string{"P1", "P2", "P3", "P4", "P5", "P6"}
	dayLabels        = map[string]string{
		"monday":    "Mon",
		"tuesday":   "Tue",
		"wednesday": "Wed",
		"thursday":  "Thu",
		"friday":    "Fri",
		"saturday":  "Sat",
	}
)

type timetableTeacherSource interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, error)
	Resolve(ctx context.Context, ref string) (*models.Teacher, error)
}

type timetableSubjectSource interface {
	List(ctx context.Context) ([]models.Subject, error)
}

type generatedStore interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
}

type datasetPDFRenderer interface {
	Render(data sheet.Dataset, title string) ([]byte, error)
}

// TimetableService answers teacher timetable and task queries and renders the
// school-wide comprehensive timetable.
type TimetableService struct {
	teachers       timetableTeacherSource
	subjects       timetableSubjectSource
	generated      generatedStore
	xlsx           tableRenderer
	pdf            datasetPDFRenderer
	logger         *zap.Logger
	downloadPrefix string
	now            func() time.Time
}

// NewTimetableService constructs a TimetableService.
func NewTimetableService(teachers timetableTeacherSource, subjects timetableSubjectSource, generated generatedStore, logger *zap.Logger, downloadPrefix string) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if downloadPrefix == "" {
		downloadPrefix = defaultTimetableDownloadPrefix
	}
	if !strings.HasSuffix(downloadPrefix, "/") {
		downloadPrefix += "/"
	}
	return &TimetableService{
		teachers:  teachers,
		subjects:  subjects,
		generated: generated,
		xlsx: sheet.NewXLSXRenderer(sheet.XLSXOptions{
			ColumnWidths: []float64{10, 50, 50, 50, 50, 50, 50},
			WrapText:     true,
		}),
		pdf:            sheet.NewPDFRenderer(),
		logger:         logger,
		downloadPrefix: downloadPrefix,
		now:            time.Now,
	}
}

// TeacherTimetable flattens one teacher's daily tasks. ref is a user id or a teacher id.
func (s *TimetableService) TeacherTimetable(ctx context.Context, ref string) ([]dto.TimetableEntry, error) {
	teacher, err := s.teachers.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	tasks := teacher.DailyTasks.Normalize()
	entries := make([]dto.TimetableEntry, 0)
	for _, day := range orderedDays(tasks) {
		for _, task := range tasks[day] {
			entries = append(entries, dto.TimetableEntry{
				Day:     day,
				Time:    orTBD(task.Time),
				Subject: orTBD(task.Subject),
				Class:   orTBD(task.Class),
				Period:  orTBD(task.Period),
			})
		}
	}
	return entries, nil
}

// Schedules lists every teacher's weekly tasks.
func (s *TimetableService) Schedules(ctx context.Context) ([]dto.TeacherSchedule, error) {
	teachers, err := s.teachers.List(ctx, models.TeacherFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]dto.TeacherSchedule, 0, len(teachers))
	for _, t := range teachers {
		tasks := t.DailyTasks.Normalize()
		out = append(out, dto.TeacherSchedule{
			TeacherID:   t.ID,
			TeacherName: t.FullName,
			Department:  t.Department,
			DailyTasks:  tasks,
		})
	}
	return out, nil
}

// TodayTasks returns the teacher's tasks for the current weekday.
func (s *TimetableService) TodayTasks(ctx context.Context, ref string) ([]dto.TaskItem, error) {
	teacher, err := s.teachers.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	today := strings.ToLower(s.now().Weekday().String())
	todays := teacher.DailyTasks.Normalize()[today]
	items := make([]dto.TaskItem, 0, len(todays))
	for _, task := range todays {
		items = append(items, dto.TaskItem{
			Title:       fmt.Sprintf("%s - %s", task.Subject, task.Class),
			Description: "Period: " + task.Period,
			Time:        orTBD(task.Time),
		})
	}
	return items, nil
}

// GenerateComprehensive builds the day by period matrix from every teacher's tasks,
// stores it as a workbook and optionally as a PDF.
func (s *TimetableService) GenerateComprehensive(ctx context.Context, req dto.ComprehensiveRequest) (*dto.ComprehensiveResponse, error) {
	teachers, err := s.teachers.List(ctx, models.TeacherFilter{})
	if err != nil {
		return nil, err
	}
	subjects, err := s.subjects.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}

	matrix := BuildTimetableMatrix(teachers, subjects)
	dataset := matrixDataset(matrix)

	stamp := s.now().UTC().Format("2006-01-02T15-04-05")
	base := "comprehensive_timetable_" + stamp

	payload, err := s.xlsx.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable workbook")
	}
	filename := base + ".xlsx"
	if _, err := s.generated.Save(filename, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store timetable workbook")
	}

	resp := &dto.ComprehensiveResponse{
		Success:     true,
		Message:     "Comprehensive timetable generated successfully",
		Filename:    filename,
		DownloadURL: s.downloadPrefix + filename,
		Timetable:   matrix,
		Stats: dto.ComprehensiveStats{
			TotalTeachers: len(teachers),
			TotalSubjects: len(subjects),
			Days:          len(timetableDays),
			Periods:       len(timetablePeriods),
		},
	}

	if req.IncludePDF {
		pdf, err := s.pdf.Render(dataset, comprehensiveTitle)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable pdf")
		}
		pdfName := base + ".pdf"
		if _, err := s.generated.Save(pdfName, pdf); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store timetable pdf")
		}
		resp.PDFFilename = pdfName
		resp.PDFDownloadURL = s.downloadPrefix + pdfName
	}

	s.logger.Info("comprehensive timetable generated",
		zap.String("file", filename),
		zap.Int("teachers", len(teachers)),
		zap.Bool("pdf", req.IncludePDF),
	)
	return resp, nil
}

// OpenGenerated opens a generated file for download.
func (s *TimetableService) OpenGenerated(name string) (*os.File, error) {
	return openGenerated(s.generated, name)
}

// BuildTimetableMatrix places every teacher task into its (day, period) cell. A cell
// holding several tasks lists them on separate lines. Tasks on Sunday or outside
// P1..P6 have no cell and are left out.
func BuildTimetableMatrix(teachers []models.Teacher, subjects []models.Subject) dto.TimetableMatrix {
	matrix := make(dto.TimetableMatrix, len(timetableDays))
	for _, day := range timetableDays {
		matrix[day] = make(map[string]string, len(timetablePeriods))
		for _, period := range timetablePeriods {
			matrix[day][period] = ""
		}
	}

	byID := indexSubjects(subjects)
	for _, teacher := range teachers {
		tasks := teacher.DailyTasks.Normalize()
		for _, weekday := range orderedDays(tasks) {
			day, ok := dayLabels[weekday]
			if !ok {
				continue
			}
			for _, task := range tasks[weekday] {
				period, ok := normalizePeriod(task.Period)
				if !ok {
					continue
				}
				var content string
				if subject, found := byID[task.Subject]; found {
					content = fmt.Sprintf("%s:%s (%s) - %s", subject.Code, subject.Name, task.Class, teacher.FullName)
				} else {
					content = fmt.Sprintf("Subject ID: %s (%s) - %s", task.Subject, task.Class, teacher.FullName)
				}
				if matrix[day][period] == "" {
					matrix[day][period] = content
				} else {
					matrix[day][period] += "\n" + content
				}
			}
		}
	}
	return matrix
}

func matrixDataset(matrix dto.TimetableMatrix) sheet.Dataset {
	headers := append([]string{"Day"}, timetablePeriods...)
	rows := make([]map[string]string, 0, len(timetableDays))
	for _, day := range timetableDays {
		row := map[string]string{"Day": day}
		for _, period := range timetablePeriods {
			row[period] = matrix[day][period]
		}
		rows = append(rows, row)
	}
	return sheet.Dataset{Sheet: comprehensiveSheet, Headers: headers, Rows: rows}
}

// normalizePeriod maps "P3", "p3" and "3" to "P3". A blank period lands in P1.
func normalizePeriod(raw string) (string, bool) {
	p := strings.ToUpper(strings.TrimSpace(raw))
	if p == "" {
		return timetablePeriods[0], true
	}
	p = strings.TrimPrefix(p, "P")
	n, err := strconv.Atoi(p)
	if err != nil || n < 1 || n > len(timetablePeriods) {
		return "", false
	}
	return timetablePeriods[n-1], true
}

// orderedDays lists the weekday keys in calendar order followed by any other keys
// sorted alphabetically.
func orderedDays(tasks models.DailyTasks) []string {
	days := make([]string, 0, len(tasks))
	known := make(map[string]bool, len(models.Weekdays))
	for _, day := range models.Weekdays {
		known[day] = true
		if _, ok := tasks[day]; ok {
			days = append(days, day)
		}
	}
	var extra []string
	for day := range tasks {
		if !known[day] {
			extra = append(extra, day)
		}
	}
	sort.Strings(extra)
	return append(days, extra...)
}

func orTBD(value string) string {
	if value == "" {
		return placeholderTBD
	}
	return value
}

// openGenerated maps missing or unsafe names to a 404.
func openGenerated(store generatedStore, name string) (*os.File, error) {
	file, err := store.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, storage.ErrInvalidName) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "File not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	return file, nil
}
