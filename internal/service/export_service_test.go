package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/edumanager-api/internal/dto"
	"github.com/noah-isme/edumanager-api/internal/models"
	"github.com/noah-isme/edumanager-api/pkg/sheet"
)

func TestProjectWorkloadKeepsFirstTwoTeachers(t *testing.T) {
	subjects := []models.Subject{
		{ID: "s1", Code: "CS501", Name: "DS", WeeklyHours: 3},
		{ID: "s2", Code: "CS502", Name: "DBMS", WeeklyHours: 2},
	}
	departments := []models.Department{
		{ID: "d1", Name: "CSE", Semester: "5", SubjectIDs: []string{"s1", "s2", "missing"}},
		{ID: "d2", Name: "IT", Semester: "5", SubjectIDs: []string{"s1"}},
	}
	teachers := []models.Teacher{
		{ID: "t1", FullName: "Dr. A", Department: "CSE", LoadAssigned: []string{"s1"}},
		{ID: "t2", FullName: "Dr. X", Department: "ECE", LoadAssigned: []string{"s1"}},
		{ID: "t3", FullName: "Dr. B", Department: "CSE", LoadAssigned: []string{"s1", "s2"}},
		{ID: "t4", FullName: "Dr. C", Department: "CSE", LoadAssigned: []string{"s1"}},
	}

	rows := ProjectWorkload(departments, subjects, teachers)
	require.Len(t, rows, 3)
	assert.Equal(t, dto.WorkloadRow{
		Branch: "CSE", Semester: "5", CourseCode: "CS501", CourseName: "DS", LTP: "3/0/0",
		MainFaculty: "Dr. A", CoFaculty: "Dr. B",
	}, rows[0])
	assert.Equal(t, "Dr. B", rows[1].MainFaculty)
	assert.Empty(t, rows[1].CoFaculty)
	assert.Equal(t, "IT", rows[2].Branch)
	assert.Empty(t, rows[2].MainFaculty)
}

func TestExportCSV(t *testing.T) {
	store, importer := newImportFixture()
	_, err := importer.Import(context.Background(), workloadTable(
		[]string{"CSE", "5", "CS501", "DS", "3/1/2", "Dr. A", "Dr. B"},
	))
	require.NoError(t, err)

	svc := NewExportService(memDepartments{store}, memSubjects{store}, memTeachers{store}, nil, nil)
	file, err := svc.Export(context.Background(), sheet.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "workload_export.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, 1, file.Rows)
	assert.Equal(t,
		"Branch,Semester,Course Code,Course Name,L/T/P,Main Faculty,Co-Faculty\nCSE,5,CS501,DS,3/0/0,Dr. A,Dr. B\n",
		string(file.Payload))
}

func TestExportTemplate(t *testing.T) {
	svc := NewExportService(nil, nil, nil, nil, nil)

	file, err := svc.Template()
	require.NoError(t, err)
	assert.Equal(t, TemplateFilename, file.Filename)
	assert.Equal(t, 6, file.Rows)

	wb, err := excelize.OpenReader(bytes.NewReader(file.Payload))
	require.NoError(t, err)
	defer wb.Close() //nolint:errcheck
	assert.Equal(t, "Timetable Data", wb.GetSheetName(0))

	rows, err := wb.GetRows("Timetable Data")
	require.NoError(t, err)
	require.Len(t, rows, 7)
	assert.Equal(t, dto.WorkloadColumns, rows[0])
	assert.Equal(t, "CS501", rows[1][2])
	assert.Equal(t, "Dr. Lisa Davis", rows[6][6])
}

func TestExportFailsWhenStoreFails(t *testing.T) {
	store := newMemStore()
	store.failWith = assert.AnError
	svc := NewExportService(memDepartments{store}, memSubjects{store}, memTeachers{store}, nil, nil)

	_, err := svc.Rows(context.Background())
	require.Error(t, err)
}
