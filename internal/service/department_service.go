package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/edumanager-api/internal/models"
	appErrors "github.com/noah-isme/edumanager-api/pkg/errors"
)

type departmentRepository interface {
	List(ctx context.Context) ([]models.Department, error)
	FindByID(ctx context.Context, id string) (*models.Department, error)
	FindByNameSemester(ctx context.Context, name, semester string) (*models.Department, error)
	Create(ctx context.Context, department *models.Department) error
	Update(ctx context.Context, department *models.Department, replaceSubjects bool) error
	Delete(ctx context.Context, id string) error
}

type subjectLookup interface {
	List(ctx context.Context) ([]models.Subject, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Subject, error)
}

// DepartmentService orchestrates department CRUD and populates subject sets.
type DepartmentService struct {
	repo      departmentRepository
	subjects  subjectLookup
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDepartmentService constructs a DepartmentService.
func NewDepartmentService(repo departmentRepository, subjects subjectLookup, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *DepartmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepartmentService{repo: repo, subjects: subjects, cache: cache, validator: validate, logger: logger}
}

// List returns every department with its subjects populated.
func (s *DepartmentService) List(ctx context.Context) ([]models.Department, error) {
	var cached []models.Department
	if s.cache.Get(ctx, cacheKeyDepartments, &cached) {
		return cached, nil
	}

	departments, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
	}
	subjects, err := s.subjects.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	byID := indexSubjects(subjects)
	for i := range departments {
		departments[i].Subjects = populate(departments[i].SubjectIDs, byID)
	}

	s.cache.Set(ctx, cacheKeyDepartments, departments)
	return departments, nil
}

// Get returns a department by id with its subjects populated.
func (s *DepartmentService) Get(ctx context.Context, id string) (*models.Department, error) {
	department, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	subjects, err := s.subjects.ListByIDs(ctx, department.SubjectIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department subjects")
	}
	department.Subjects = populate(department.SubjectIDs, indexSubjects(subjects))
	return department, nil
}

// Create registers a department.
func (s *DepartmentService) Create(ctx context.Context, req models.DepartmentInput) (*models.Department, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Semester = strings.TrimSpace(req.Semester)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid department payload")
	}
	if err := s.ensureUniqueName(ctx, req.Name, req.Semester, ""); err != nil {
		return nil, err
	}
	subjectIDs := dedupe(req.SubjectIDs)
	if err := s.ensureSubjectsExist(ctx, subjectIDs); err != nil {
		return nil, err
	}

	department := &models.Department{Name: req.Name, Semester: req.Semester, SubjectIDs: subjectIDs}
	if err := s.repo.Create(ctx, department); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create department")
	}
	s.cache.InvalidateDepartments(ctx)
	return s.Get(ctx, department.ID)
}

// Update modifies a department. A nil subject list keeps the current set.
func (s *DepartmentService) Update(ctx context.Context, id string, req models.DepartmentInput) (*models.Department, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Semester = strings.TrimSpace(req.Semester)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid department payload")
	}
	if err := s.ensureUniqueName(ctx, req.Name, req.Semester, id); err != nil {
		return nil, err
	}
	replaceSubjects := req.SubjectIDs != nil
	subjectIDs := dedupe(req.SubjectIDs)
	if err := s.ensureSubjectsExist(ctx, subjectIDs); err != nil {
		return nil, err
	}

	department := &models.Department{ID: id, Name: req.Name, Semester: req.Semester, SubjectIDs: subjectIDs}
	if err := s.repo.Update(ctx, department, replaceSubjects); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update department")
	}
	s.cache.InvalidateDepartments(ctx)
	return s.Get(ctx, id)
}

// Delete removes a department. Its subjects and teachers are kept.
func (s *DepartmentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete department")
	}
	s.cache.InvalidateDepartments(ctx)
	return nil
}

// Subjects lists every subject for department pickers.
func (s *DepartmentService) Subjects(ctx context.Context) ([]models.Subject, error) {
	subjects, err := s.subjects.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}

func (s *DepartmentService) ensureUniqueName(ctx context.Context, name, semester, excludeID string) error {
	existing, err := s.repo.FindByNameSemester(ctx, name, semester)
	switch {
	case err == sql.ErrNoRows:
		return nil
	case err != nil:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check department uniqueness")
	case existing.ID != excludeID:
		return appErrors.Clone(appErrors.ErrConflict, "department already exists for this semester")
	}
	return nil
}

func (s *DepartmentService) ensureSubjectsExist(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.subjects.ListByIDs(ctx, ids)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	if len(found) != len(ids) {
		return appErrors.Clone(appErrors.ErrValidation, "unknown subject id in subjectIds")
	}
	return nil
}

func indexSubjects(subjects []models.Subject) map[string]models.Subject {
	byID := make(map[string]models.Subject, len(subjects))
	for _, subject := range subjects {
		byID[subject.ID] = subject
	}
	return byID
}

// populate resolves ids in order, silently dropping dangling ones.
func populate(ids []string, byID map[string]models.Subject) []models.Subject {
	out := make([]models.Subject, 0, len(ids))
	for _, id := range ids {
		if subject, ok := byID[id]; ok {
			out = append(out, subject)
		}
	}
	return out
}

// dedupe keeps first occurrences and drops blanks. Nil stays nil.
func dedupe(ids []string) []string {
	if ids == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
