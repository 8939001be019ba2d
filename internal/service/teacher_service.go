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

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	FindByUserID(ctx context.Context, userID string) (*models.Teacher, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher, replaceSubjects, replaceLoads bool) error
	UpdateDailyTasks(ctx context.Context, id string, tasks models.DailyTasks) error
	Delete(ctx context.Context, id string) error
}

// TeacherService orchestrates teacher operations.
type TeacherService struct {
	repo      teacherRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns teachers. Filtering by an email nobody uses is a not found error.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, error) {
	filter.Email = strings.TrimSpace(filter.Email)
	teachers, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	if filter.Email != "" && len(teachers) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	return teachers, nil
}

// Get returns a teacher by id.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, teacherLookupError(err)
	}
	return teacher, nil
}

// GetByUserID returns the teacher bound to a user account.
func (s *TeacherService) GetByUserID(ctx context.Context, userID string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, teacherLookupError(err)
	}
	return teacher, nil
}

// Resolve finds a teacher by user id first and falls back to the teacher id.
func (s *TeacherService) Resolve(ctx context.Context, ref string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByUserID(ctx, ref)
	if err == nil {
		return teacher, nil
	}
	if err != sql.ErrNoRows {
		return nil, teacherLookupError(err)
	}
	return s.Get(ctx, ref)
}

// Create registers a teacher. Email must be unique.
func (s *TeacherService) Create(ctx context.Context, req models.TeacherInput) (*models.Teacher, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	req.Department = strings.TrimSpace(req.Department)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "full name, email, and department are required")
	}
	if err := s.ensureUniqueEmail(ctx, req.Email, ""); err != nil {
		return nil, err
	}

	teacher := &models.Teacher{
		FullName:      req.FullName,
		Email:         &req.Email,
		Phone:         normalizeOptional(&req.Phone),
		Department:    req.Department,
		WeeklyHours:   req.WeeklyHours,
		ClassAssigned: strings.TrimSpace(req.ClassAssigned),
		UserID:        normalizeOptional(&req.UserID),
		SubjectIDs:    nonNilIDs(dedupe(req.SubjectIDs)),
		LoadAssigned:  nonNilIDs(dedupe(req.LoadAssigned)),
		DailyTasks:    req.DailyTasks.Normalize(),
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	s.cache.InvalidateDepartments(ctx)
	return teacher, nil
}

// Update applies a partial update.
func (s *TeacherService) Update(ctx context.Context, id string, req models.TeacherUpdateInput) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	teacher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		if name := strings.TrimSpace(*req.FullName); name != "" {
			teacher.FullName = name
		}
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email != "" {
			if err := s.ensureUniqueEmail(ctx, email, id); err != nil {
				return nil, err
			}
		}
		teacher.Email = normalizeOptional(&email)
	}
	if req.Phone != nil {
		teacher.Phone = normalizeOptional(req.Phone)
	}
	if req.Department != nil {
		teacher.Department = strings.TrimSpace(*req.Department)
	}
	if req.WeeklyHours != nil {
		teacher.WeeklyHours = *req.WeeklyHours
	}
	if req.ClassAssigned != nil {
		teacher.ClassAssigned = strings.TrimSpace(*req.ClassAssigned)
	}
	if req.UserID != nil {
		teacher.UserID = normalizeOptional(req.UserID)
	}
	if req.DailyTasks != nil {
		teacher.DailyTasks = req.DailyTasks.Normalize()
	}
	replaceSubjects := req.SubjectIDs != nil
	if replaceSubjects {
		teacher.SubjectIDs = dedupe(req.SubjectIDs)
	}
	replaceLoads := req.LoadAssigned != nil
	if replaceLoads {
		teacher.LoadAssigned = dedupe(req.LoadAssigned)
	}

	if err := s.repo.Update(ctx, teacher, replaceSubjects, replaceLoads); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	s.cache.InvalidateDepartments(ctx)
	return teacher, nil
}

// UpdateDailyTasks replaces the weekly task map.
func (s *TeacherService) UpdateDailyTasks(ctx context.Context, id string, tasks models.DailyTasks) (*models.Teacher, error) {
	if tasks == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "dailyTasks is required")
	}
	normalized := tasks.Normalize()
	if err := s.repo.UpdateDailyTasks(ctx, id, normalized); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update daily tasks")
	}
	return s.Get(ctx, id)
}

// Delete removes a teacher.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
	}
	s.cache.InvalidateDepartments(ctx)
	return nil
}

func (s *TeacherService) ensureUniqueEmail(ctx context.Context, email, excludeID string) error {
	exists, err := s.repo.ExistsByEmail(ctx, email, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "teacher email already exists")
	}
	return nil
}

func teacherLookupError(err error) error {
	if err == sql.ErrNoRows {
		return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func nonNilIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
