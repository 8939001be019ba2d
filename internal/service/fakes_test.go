package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/edumanager-api/internal/models"
)

// memStore is an in-memory stand-in for the three repositories, preserving creation
// order the way the SQL queries do.
type memStore struct {
	seq         int
	clock       time.Time
	subjects    []*models.Subject
	departments []*models.Department
	teachers    []*models.Teacher
	failWith    error
}

func newMemStore() *memStore {
	return &memStore{clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memStore) nextID(prefix string) (string, time.Time) {
	m.seq++
	m.clock = m.clock.Add(time.Second)
	return fmt.Sprintf("%s-%d", prefix, m.seq), m.clock
}

func copyIDs(ids []string) []string {
	return append([]string{}, ids...)
}

type memSubjects struct{ *memStore }

func (r memSubjects) List(ctx context.Context) ([]models.Subject, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	out := make([]models.Subject, 0, len(r.subjects))
	for _, s := range r.subjects {
		out = append(out, *s)
	}
	return out, nil
}

func (r memSubjects) ListByIDs(ctx context.Context, ids []string) ([]models.Subject, error) {
	out := make([]models.Subject, 0, len(ids))
	for _, s := range r.subjects {
		for _, id := range ids {
			if s.ID == id {
				out = append(out, *s)
				break
			}
		}
	}
	return out, nil
}

func (r memSubjects) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	for _, s := range r.subjects {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memSubjects) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	for _, s := range r.subjects {
		if s.Code == code && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r memSubjects) Create(ctx context.Context, subject *models.Subject) error {
	subject.ID, subject.CreatedAt = r.nextID("subject")
	subject.UpdatedAt = subject.CreatedAt
	cp := *subject
	r.memStore.subjects = append(r.memStore.subjects, &cp)
	return nil
}

func (r memSubjects) Update(ctx context.Context, subject *models.Subject) error {
	for _, s := range r.subjects {
		if s.ID == subject.ID {
			*s = *subject
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r memSubjects) Delete(ctx context.Context, id string) error {
	for i, s := range r.subjects {
		if s.ID == id {
			r.memStore.subjects = append(r.memStore.subjects[:i], r.memStore.subjects[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r memSubjects) UpsertByCode(ctx context.Context, code, name string, weeklyHours int) (*models.Subject, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	for _, s := range r.subjects {
		if s.Code == code {
			s.Name, s.WeeklyHours = name, weeklyHours
			cp := *s
			return &cp, nil
		}
	}
	subject := &models.Subject{Code: code, Name: name, WeeklyHours: weeklyHours}
	if err := r.Create(ctx, subject); err != nil {
		return nil, err
	}
	return subject, nil
}

type memDepartments struct{ *memStore }

func (r memDepartments) clone(d *models.Department) models.Department {
	cp := *d
	cp.SubjectIDs = copyIDs(d.SubjectIDs)
	return cp
}

func (r memDepartments) List(ctx context.Context) ([]models.Department, error) {
	out := make([]models.Department, 0, len(r.departments))
	for _, d := range r.departments {
		out = append(out, r.clone(d))
	}
	return out, nil
}

func (r memDepartments) FindByID(ctx context.Context, id string) (*models.Department, error) {
	for _, d := range r.departments {
		if d.ID == id {
			cp := r.clone(d)
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memDepartments) FindByNameSemester(ctx context.Context, name, semester string) (*models.Department, error) {
	for _, d := range r.departments {
		if d.Name == name && d.Semester == semester {
			cp := r.clone(d)
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memDepartments) Create(ctx context.Context, department *models.Department) error {
	department.ID, department.CreatedAt = r.nextID("department")
	department.UpdatedAt = department.CreatedAt
	cp := r.clone(department)
	r.memStore.departments = append(r.memStore.departments, &cp)
	return nil
}

func (r memDepartments) Update(ctx context.Context, department *models.Department, replaceSubjects bool) error {
	for _, d := range r.departments {
		if d.ID == department.ID {
			ids := d.SubjectIDs
			*d = r.clone(department)
			if !replaceSubjects {
				d.SubjectIDs = ids
			}
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r memDepartments) Delete(ctx context.Context, id string) error {
	for i, d := range r.departments {
		if d.ID == id {
			r.memStore.departments = append(r.memStore.departments[:i], r.memStore.departments[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r memDepartments) Ensure(ctx context.Context, name, semester string) (*models.Department, error) {
	for _, d := range r.departments {
		if d.Name == name && d.Semester == semester {
			cp := r.clone(d)
			return &cp, nil
		}
	}
	department := &models.Department{Name: name, Semester: semester, SubjectIDs: []string{}}
	if err := r.Create(ctx, department); err != nil {
		return nil, err
	}
	return department, nil
}

func (r memDepartments) AddSubject(ctx context.Context, departmentID, subjectID string) (bool, error) {
	for _, d := range r.departments {
		if d.ID != departmentID {
			continue
		}
		for _, id := range d.SubjectIDs {
			if id == subjectID {
				return false, nil
			}
		}
		d.SubjectIDs = append(d.SubjectIDs, subjectID)
		return true, nil
	}
	return false, sql.ErrNoRows
}

type memTeachers struct{ *memStore }

func (r memTeachers) clone(t *models.Teacher) models.Teacher {
	cp := *t
	cp.SubjectIDs = copyIDs(t.SubjectIDs)
	cp.LoadAssigned = copyIDs(t.LoadAssigned)
	return cp
}

func (r memTeachers) find(match func(*models.Teacher) bool) (*models.Teacher, error) {
	for _, t := range r.teachers {
		if match(t) {
			cp := r.clone(t)
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memTeachers) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	out := make([]models.Teacher, 0, len(r.teachers))
	for _, t := range r.teachers {
		if filter.Email != "" && (t.Email == nil || !strings.EqualFold(*t.Email, filter.Email)) {
			continue
		}
		if filter.Department != "" && t.Department != filter.Department {
			continue
		}
		out = append(out, r.clone(t))
	}
	return out, nil
}

func (r memTeachers) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	return r.find(func(t *models.Teacher) bool { return t.ID == id })
}

func (r memTeachers) FindByUserID(ctx context.Context, userID string) (*models.Teacher, error) {
	return r.find(func(t *models.Teacher) bool { return t.UserID != nil && *t.UserID == userID })
}

func (r memTeachers) FindByFullName(ctx context.Context, fullName string) (*models.Teacher, error) {
	return r.find(func(t *models.Teacher) bool { return t.FullName == fullName })
}

func (r memTeachers) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	_, err := r.find(func(t *models.Teacher) bool {
		return t.Email != nil && strings.EqualFold(*t.Email, email) && t.ID != excludeID
	})
	return err == nil, nil
}

func (r memTeachers) Create(ctx context.Context, teacher *models.Teacher) error {
	teacher.ID, teacher.CreatedAt = r.nextID("teacher")
	teacher.UpdatedAt = teacher.CreatedAt
	if teacher.SubjectIDs == nil {
		teacher.SubjectIDs = []string{}
	}
	if teacher.LoadAssigned == nil {
		teacher.LoadAssigned = []string{}
	}
	cp := r.clone(teacher)
	r.memStore.teachers = append(r.memStore.teachers, &cp)
	return nil
}

func (r memTeachers) Update(ctx context.Context, teacher *models.Teacher, replaceSubjects, replaceLoads bool) error {
	for _, t := range r.teachers {
		if t.ID == teacher.ID {
			subjects, loads := t.SubjectIDs, t.LoadAssigned
			*t = r.clone(teacher)
			if !replaceSubjects {
				t.SubjectIDs = subjects
			}
			if !replaceLoads {
				t.LoadAssigned = loads
			}
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r memTeachers) UpdateDailyTasks(ctx context.Context, id string, tasks models.DailyTasks) error {
	for _, t := range r.teachers {
		if t.ID == id {
			t.DailyTasks = tasks
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r memTeachers) FillDepartment(ctx context.Context, id, department string) (bool, error) {
	for _, t := range r.teachers {
		if t.ID == id && t.Department == "" {
			t.Department = department
			return true, nil
		}
	}
	return false, nil
}

func (r memTeachers) AddLoad(ctx context.Context, teacherID, subjectID string) (bool, error) {
	for _, t := range r.teachers {
		if t.ID != teacherID {
			continue
		}
		if t.HasLoad(subjectID) {
			return false, nil
		}
		t.LoadAssigned = append(t.LoadAssigned, subjectID)
		return true, nil
	}
	return false, sql.ErrNoRows
}

func (r memTeachers) Delete(ctx context.Context, id string) error {
	for i, t := range r.teachers {
		if t.ID == id {
			r.memStore.teachers = append(r.memStore.teachers[:i], r.memStore.teachers[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memStore) teacherNamed(name string) *models.Teacher {
	for _, t := range m.teachers {
		if t.FullName == name {
			return t
		}
	}
	return nil
}

func (m *memStore) subjectCoded(code string) *models.Subject {
	for _, s := range m.subjects {
		if s.Code == code {
			return s
		}
	}
	return nil
}
