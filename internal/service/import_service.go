package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/edumanager-api/internal/dto"
	"github.com/noah-isme/edumanager-api/internal/models"
	appErrors "github.com/noah-isme/edumanager-api/pkg/errors"
	"github.com/noah-isme/edumanager-api/pkg/logger"
	"github.com/noah-isme/edumanager-api/pkg/sheet"
)

const maxImportWarnings = 100

type importSubjectStore interface {
	UpsertByCode(ctx context.Context, code, name string, weeklyHours int) (*models.Subject, error)
}

type importDepartmentStore interface {
	Ensure(ctx context.Context, name, semester string) (*models.Department, error)
	AddSubject(ctx context.Context, departmentID, subjectID string) (bool, error)
}

type importTeacherStore interface {
	FindByFullName(ctx context.Context, fullName string) (*models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	FillDepartment(ctx context.Context, id, department string) (bool, error)
	AddLoad(ctx context.Context, teacherID, subjectID string) (bool, error)
}

// ImportService loads workload spreadsheets into the department, subject and teacher
// graph. Subjects and departments are resolved for every row before any teacher is
// linked.
type ImportService struct {
	subjects    importSubjectStore
	departments importDepartmentStore
	teachers    importTeacherStore
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewImportService constructs the workload importer.
func NewImportService(subjects importSubjectStore, departments importDepartmentStore, teachers importTeacherStore, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		subjects:    subjects,
		departments: departments,
		teachers:    teachers,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
	}
}

// ImportFile reads an xlsx or csv workbook and imports its first sheet.
func (s *ImportService) ImportFile(ctx context.Context, r io.Reader, filename string) (*dto.ImportSummary, error) {
	table, err := sheet.Read(r, filename)
	if err != nil {
		if errors.Is(err, sheet.ErrUnsupportedFormat) {
			return nil, appErrors.Wrap(err, appErrors.ErrUnsupportedFile.Code, appErrors.ErrUnsupportedFile.Status, "only .xlsx and .csv workbooks are supported")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read workbook")
	}
	return s.Import(ctx, table)
}

// Import runs both passes over the table. Database failures abort the import; rows
// already written stay committed.
func (s *ImportService) Import(ctx context.Context, table *sheet.Table) (*dto.ImportSummary, error) {
	start := time.Now()
	log := logger.FromContext(ctx, s.logger)
	if missing := missingColumns(table, dto.ColumnBranch, dto.ColumnSemester); len(missing) > 0 {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "workbook is missing required columns"), nil, map[string]interface{}{"missing": missing})
	}

	records, warnings := normalizeWorkload(table)
	for _, w := range warnings {
		log.Warn("workload row skipped", zap.String("reason", w))
	}

	summary := &dto.ImportSummary{Rows: len(records)}
	summary.SkippedRows = countSkipped(table, len(records))
	summary.Warnings = capWarnings(warnings)

	subjects, err := s.reconcile(ctx, records, summary)
	if err != nil {
		return nil, s.fail(err)
	}
	if err := s.link(ctx, records, subjects, summary); err != nil {
		return nil, s.fail(err)
	}

	s.cache.InvalidateDepartments(ctx)
	s.metrics.ObserveImport(summary.Rows, summary.SkippedRows, time.Since(start))
	log.Info("workload imported",
		zap.Int("rows", summary.Rows),
		zap.Int("skipped", summary.SkippedRows),
		zap.Int("subjects", summary.SubjectsUpserted),
		zap.Int("departments", summary.DepartmentsResolved),
		zap.Int("teachers_created", summary.TeachersCreated),
		zap.Int("load_links", summary.LoadLinksAdded),
	)
	return summary, nil
}

// reconcile is the first pass: subjects by code, departments by (name, semester) and
// the department subject sets.
func (s *ImportService) reconcile(ctx context.Context, records []workloadRecord, summary *dto.ImportSummary) (map[string]*models.Subject, error) {
	subjects := make(map[string]*models.Subject)
	departments := make(map[string]*models.Department)

	for _, rec := range records {
		var subject *models.Subject
		if rec.hasSubject() {
			upserted, err := s.subjects.UpsertByCode(ctx, rec.SubjectCode, rec.SubjectName, rec.WeeklyHours)
			if err != nil {
				return nil, fmt.Errorf("row %d: upsert subject %s: %w", rec.Line, rec.SubjectCode, err)
			}
			subject = upserted
			subjects[rec.SubjectCode] = upserted
		}

		department, ok := departments[rec.departmentKey()]
		if !ok {
			ensured, err := s.departments.Ensure(ctx, rec.Department, rec.Semester)
			if err != nil {
				return nil, fmt.Errorf("row %d: ensure department %s/%s: %w", rec.Line, rec.Department, rec.Semester, err)
			}
			department = ensured
			departments[rec.departmentKey()] = ensured
		}

		if subject == nil {
			continue
		}
		added, err := s.departments.AddSubject(ctx, department.ID, subject.ID)
		if err != nil {
			return nil, fmt.Errorf("row %d: link subject %s: %w", rec.Line, rec.SubjectCode, err)
		}
		if added {
			summary.SubjectLinksAdded++
		}
	}

	summary.SubjectsUpserted = len(subjects)
	summary.DepartmentsResolved = len(departments)
	return subjects, nil
}

// link is the second pass: teachers by full name and their assigned load.
func (s *ImportService) link(ctx context.Context, records []workloadRecord, subjects map[string]*models.Subject, summary *dto.ImportSummary) error {
	teachers := make(map[string]*models.Teacher)

	for _, rec := range records {
		if !rec.hasSubject() {
			continue
		}
		subject := subjects[rec.SubjectCode]
		for _, name := range rec.faculty() {
			teacher, err := s.ensureTeacher(ctx, teachers, name, rec.Department, summary)
			if err != nil {
				return fmt.Errorf("row %d: resolve teacher %q: %w", rec.Line, name, err)
			}
			if teacher.HasLoad(subject.ID) {
				continue
			}
			added, err := s.teachers.AddLoad(ctx, teacher.ID, subject.ID)
			if err != nil {
				return fmt.Errorf("row %d: assign %s to %q: %w", rec.Line, rec.SubjectCode, name, err)
			}
			teacher.LoadAssigned = append(teacher.LoadAssigned, subject.ID)
			if added {
				summary.LoadLinksAdded++
			}
		}
	}
	return nil
}

func (s *ImportService) ensureTeacher(ctx context.Context, seen map[string]*models.Teacher, name, department string, summary *dto.ImportSummary) (*models.Teacher, error) {
	if teacher, ok := seen[name]; ok {
		return teacher, nil
	}

	teacher, err := s.teachers.FindByFullName(ctx, name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		teacher = &models.Teacher{FullName: name, Department: department, DailyTasks: models.DailyTasks{}}
		if err := s.teachers.Create(ctx, teacher); err != nil {
			return nil, err
		}
		summary.TeachersCreated++
	case err != nil:
		return nil, err
	case teacher.Department == "" && department != "":
		if _, err := s.teachers.FillDepartment(ctx, teacher.ID, department); err != nil {
			return nil, err
		}
		teacher.Department = department
	}

	seen[name] = teacher
	return teacher, nil
}

func (s *ImportService) fail(err error) error {
	s.logger.Error("workload import failed", zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import workbook data")
}

func missingColumns(table *sheet.Table, names ...string) []string {
	var missing []string
	for _, name := range names {
		if !table.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

func countSkipped(table *sheet.Table, kept int) int {
	nonBlank := 0
	for _, row := range table.Rows {
		if !rowIsBlank(row) {
			nonBlank++
		}
	}
	return nonBlank - kept
}

func capWarnings(warnings []string) []string {
	if len(warnings) <= maxImportWarnings {
		return warnings
	}
	capped := append([]string{}, warnings[:maxImportWarnings]...)
	return append(capped, fmt.Sprintf("%d more warnings omitted", len(warnings)-maxImportWarnings))
}
