package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edumanager-api/internal/models"
)

const departmentColumns = "id, name, semester, created_at, updated_at"

// DepartmentRepository manages departments and their subject sets.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository constructs a DepartmentRepository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// List returns every department with its subject ids, oldest first.
func (r *DepartmentRepository) List(ctx context.Context) ([]models.Department, error) {
	query := fmt.Sprintf("SELECT %s FROM departments ORDER BY created_at ASC, id ASC", departmentColumns)
	departments := make([]models.Department, 0)
	if err := r.db.SelectContext(ctx, &departments, query); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	if err := r.attachSubjects(ctx, departments); err != nil {
		return nil, err
	}
	return departments, nil
}

// FindByID fetches a department and its subject ids.
func (r *DepartmentRepository) FindByID(ctx context.Context, id string) (*models.Department, error) {
	query := fmt.Sprintf("SELECT %s FROM departments WHERE id = $1", departmentColumns)
	var department models.Department
	if err := r.db.GetContext(ctx, &department, query, id); err != nil {
		return nil, err
	}
	list := []models.Department{department}
	if err := r.attachSubjects(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// FindByNameSemester fetches the department identified by (name, semester).
func (r *DepartmentRepository) FindByNameSemester(ctx context.Context, name, semester string) (*models.Department, error) {
	query := fmt.Sprintf("SELECT %s FROM departments WHERE name = $1 AND semester = $2", departmentColumns)
	var department models.Department
	if err := r.db.GetContext(ctx, &department, query, name, semester); err != nil {
		return nil, err
	}
	return &department, nil
}

// Create inserts a department together with its subject set.
func (r *DepartmentRepository) Create(ctx context.Context, department *models.Department) (err error) {
	if department.ID == "" {
		department.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	department.CreatedAt = now
	department.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin department transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO departments (id, name, semester, created_at, updated_at)
		VALUES (:id, :name, :semester, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, department); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	if err = departmentSubjectLinks.replace(ctx, tx, department.ID, department.SubjectIDs); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit department: %w", err)
	}
	return nil
}

// Update modifies name and semester. When replaceSubjects is set the subject set is
// replaced by department.SubjectIDs.
func (r *DepartmentRepository) Update(ctx context.Context, department *models.Department, replaceSubjects bool) (err error) {
	department.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin department transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE departments SET name = :name, semester = :semester, updated_at = :updated_at WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, query, department)
	if err != nil {
		return fmt.Errorf("update department: %w", err)
	}
	if err = requireAffected(res, "update department"); err != nil {
		return err
	}
	if replaceSubjects {
		if err = departmentSubjectLinks.replace(ctx, tx, department.ID, department.SubjectIDs); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit department: %w", err)
	}
	return nil
}

// Delete removes a department and its subject links. Subjects and teachers stay.
func (r *DepartmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete department: %w", err)
	}
	return requireAffected(res, "delete department")
}

// Ensure returns the department for (name, semester), creating it when absent. The
// subject set of an existing department is left alone.
func (r *DepartmentRepository) Ensure(ctx context.Context, name, semester string) (*models.Department, error) {
	query := fmt.Sprintf(`INSERT INTO departments (id, name, semester, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (name, semester) DO UPDATE SET name = EXCLUDED.name
		RETURNING %s`, departmentColumns)
	var department models.Department
	if err := r.db.GetContext(ctx, &department, query, uuid.NewString(), name, semester, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("ensure department %s/%s: %w", name, semester, err)
	}
	return &department, nil
}

// AddSubject attaches a subject to the department set and reports whether it was new.
func (r *DepartmentRepository) AddSubject(ctx context.Context, departmentID, subjectID string) (bool, error) {
	return departmentSubjectLinks.add(ctx, r.db, departmentID, subjectID)
}

func (r *DepartmentRepository) attachSubjects(ctx context.Context, departments []models.Department) error {
	ids := make([]string, len(departments))
	for i := range departments {
		ids[i] = departments[i].ID
	}
	links, err := departmentSubjectLinks.load(ctx, r.db, ids)
	if err != nil {
		return err
	}
	for i := range departments {
		departments[i].SubjectIDs = nonNil(links[departments[i].ID])
	}
	return nil
}
