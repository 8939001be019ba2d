package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edumanager-api/internal/models"
)

const teacherColumns = "id, user_id, full_name, email, phone, department, weekly_hours, class_assigned, daily_tasks, created_at, updated_at"

// TeacherRepository manages teachers, their taught subjects and assigned load.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// List returns teachers matching filter ordered by creation time then id.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, error) {
	base := "FROM teachers WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Email != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(email) = LOWER($%d)", len(args)+1))
		args = append(args, filter.Email)
	}
	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at ASC, id ASC", teacherColumns, base)
	teachers := make([]models.Teacher, 0)
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	if err := r.attachLinks(ctx, teachers); err != nil {
		return nil, err
	}
	return teachers, nil
}

// FindByID fetches a teacher by ID.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	return r.findOne(ctx, "id = $1", id)
}

// FindByUserID fetches the teacher bound to a user account.
func (r *TeacherRepository) FindByUserID(ctx context.Context, userID string) (*models.Teacher, error) {
	return r.findOne(ctx, "user_id = $1", userID)
}

// FindByFullName fetches the oldest teacher carrying exactly fullName.
func (r *TeacherRepository) FindByFullName(ctx context.Context, fullName string) (*models.Teacher, error) {
	return r.findOne(ctx, "full_name = $1", fullName)
}

// ExistsByEmail checks if another teacher uses the same email.
func (r *TeacherRepository) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM teachers WHERE LOWER(email) = LOWER($1)"
	args := []interface{}{email}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check teacher email: %w", err)
	}
	return true, nil
}

// Create inserts a teacher with its subject and load sets.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) (err error) {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now
	if teacher.DailyTasks == nil {
		teacher.DailyTasks = models.DailyTasks{}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin teacher transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO teachers (id, user_id, full_name, email, phone, department, weekly_hours, class_assigned, daily_tasks, created_at, updated_at)
		VALUES (:id, :user_id, :full_name, :email, :phone, :department, :weekly_hours, :class_assigned, :daily_tasks, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	if err = teacherSubjectLinks.replace(ctx, tx, teacher.ID, teacher.SubjectIDs); err != nil {
		return err
	}
	if err = teacherLoadLinks.replace(ctx, tx, teacher.ID, teacher.LoadAssigned); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit teacher: %w", err)
	}
	return nil
}

// Update modifies a teacher. The subject and load sets are replaced only when the
// matching flag is set.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher, replaceSubjects, replaceLoads bool) (err error) {
	teacher.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin teacher transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE teachers SET user_id = :user_id, full_name = :full_name, email = :email, phone = :phone,
		department = :department, weekly_hours = :weekly_hours, class_assigned = :class_assigned,
		daily_tasks = :daily_tasks, updated_at = :updated_at WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, query, teacher)
	if err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	if err = requireAffected(res, "update teacher"); err != nil {
		return err
	}
	if replaceSubjects {
		if err = teacherSubjectLinks.replace(ctx, tx, teacher.ID, teacher.SubjectIDs); err != nil {
			return err
		}
	}
	if replaceLoads {
		if err = teacherLoadLinks.replace(ctx, tx, teacher.ID, teacher.LoadAssigned); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit teacher: %w", err)
	}
	return nil
}

// UpdateDailyTasks overwrites the weekly task map.
func (r *TeacherRepository) UpdateDailyTasks(ctx context.Context, id string, tasks models.DailyTasks) error {
	res, err := r.db.ExecContext(ctx, `UPDATE teachers SET daily_tasks = $2, updated_at = $3 WHERE id = $1`, id, tasks, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update daily tasks: %w", err)
	}
	return requireAffected(res, "update daily tasks")
}

// FillDepartment sets the department of a teacher that has none yet and reports
// whether anything changed.
func (r *TeacherRepository) FillDepartment(ctx context.Context, id, department string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE teachers SET department = $2, updated_at = $3 WHERE id = $1 AND department = ''`, id, department, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("fill teacher department: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("fill teacher department: %w", err)
	}
	return affected > 0, nil
}

// AddLoad inserts subjectID into the teacher's assigned load and reports whether it
// was new.
func (r *TeacherRepository) AddLoad(ctx context.Context, teacherID, subjectID string) (bool, error) {
	return teacherLoadLinks.add(ctx, r.db, teacherID, subjectID)
}

// Delete removes a teacher and its link rows.
func (r *TeacherRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	return requireAffected(res, "delete teacher")
}

func (r *TeacherRepository) findOne(ctx context.Context, condition string, arg interface{}) (*models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE %s ORDER BY created_at ASC, id ASC LIMIT 1", teacherColumns, condition)
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, arg); err != nil {
		return nil, err
	}
	list := []models.Teacher{teacher}
	if err := r.attachLinks(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (r *TeacherRepository) attachLinks(ctx context.Context, teachers []models.Teacher) error {
	if len(teachers) == 0 {
		return nil
	}
	ids := make([]string, len(teachers))
	for i := range teachers {
		ids[i] = teachers[i].ID
	}
	subjects, err := teacherSubjectLinks.load(ctx, r.db, ids)
	if err != nil {
		return err
	}
	loads, err := teacherLoadLinks.load(ctx, r.db, ids)
	if err != nil {
		return err
	}
	for i := range teachers {
		teachers[i].SubjectIDs = nonNil(subjects[teachers[i].ID])
		teachers[i].LoadAssigned = nonNil(loads[teachers[i].ID])
	}
	return nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
