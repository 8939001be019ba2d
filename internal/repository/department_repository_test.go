package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumanager-api/internal/models"
)

var departmentRowColumns = []string{"id", "name", "semester", "created_at", "updated_at"}

func TestDepartmentRepositoryEnsure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO departments .* ON CONFLICT \(name, semester\) DO UPDATE SET name = EXCLUDED.name RETURNING`).
		WithArgs(sqlmock.AnyArg(), "CSE", "5", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(departmentRowColumns).AddRow("d1", "CSE", "5", now, now))

	dept, err := repo.Ensure(context.Background(), "CSE", "5")
	require.NoError(t, err)
	assert.Equal(t, "d1", dept.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentRepositoryAddSubjectIsSetInsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	insert := regexp.QuoteMeta("INSERT INTO department_subjects (department_id, subject_id) VALUES ($1, $2) ON CONFLICT DO NOTHING")
	mock.ExpectExec(insert).WithArgs("d1", "s1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insert).WithArgs("d1", "s1").WillReturnResult(sqlmock.NewResult(0, 0))

	added, err := repo.AddSubject(context.Background(), "d1", "s1")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.AddSubject(context.Background(), "d1", "s1")
	require.NoError(t, err)
	assert.False(t, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentRepositoryListAttachesSubjects(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, semester, created_at, updated_at FROM departments ORDER BY created_at ASC, id ASC")).
		WillReturnRows(sqlmock.NewRows(departmentRowColumns).
			AddRow("d1", "CSE", "5", now, now).
			AddRow("d2", "ECE", "3", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT department_id AS owner_id, subject_id FROM department_subjects WHERE department_id IN (?, ?) ORDER BY position")).
		WithArgs("d1", "d2").
		WillReturnRows(sqlmock.NewRows([]string{"owner_id", "subject_id"}).
			AddRow("d1", "s1").
			AddRow("d1", "s2"))

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []string{"s1", "s2"}, list[0].SubjectIDs)
	assert.Equal(t, []string{}, list[1].SubjectIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentRepositoryCreateWithSubjects(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO departments").
		WithArgs(sqlmock.AnyArg(), "ME", "4", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM department_subjects WHERE department_id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO department_subjects").
		WithArgs(sqlmock.AnyArg(), "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	dept := &models.Department{Name: "ME", Semester: "4", SubjectIDs: []string{"s1"}}
	require.NoError(t, repo.Create(context.Background(), dept))
	assert.NotEmpty(t, dept.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentRepositoryUpdateMissingRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE departments SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Update(context.Background(), &models.Department{ID: "nope", Name: "X", Semester: "1"}, true)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
