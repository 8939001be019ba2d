package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumanager-api/internal/dto"
	"github.com/noah-isme/edumanager-api/internal/models"
	appErrors "github.com/noah-isme/edumanager-api/pkg/errors"
	"github.com/noah-isme/edumanager-api/pkg/sheet"
	"github.com/noah-isme/edumanager-api/pkg/storage"
)

func newTimetableFixture(t *testing.T) (*TimetableService, *memStore, *storage.LocalStorage) {
	t.Helper()
	store := newMemStore()
	ctx := context.Background()
	require.NoError(t, memSubjects{store}.Create(ctx, &models.Subject{Code: "CS501", Name: "DS", WeeklyHours: 3}))
	subjectID := store.subjects[0].ID

	userID := "user-42"
	require.NoError(t, memTeachers{store}.Create(ctx, &models.Teacher{
		FullName:   "Dr. A",
		Department: "CSE",
		UserID:     &userID,
		DailyTasks: models.DailyTasks{
			"Monday": {
				{Period: "P1", Subject: subjectID, Class: "CSE-5A", Time: "09:00"},
				{Period: "2", Subject: "ghost", Class: "CSE-5B"},
			},
			"wed":    {{Period: "P9", Subject: subjectID, Class: "CSE-5A"}},
			"sunday": {{Period: "P1", Subject: subjectID, Class: "Extra"}},
		},
	}))
	require.NoError(t, memTeachers{store}.Create(ctx, &models.Teacher{
		FullName:   "Dr. B",
		Department: "CSE",
		DailyTasks: models.DailyTasks{
			"monday": {{Period: "p1", Subject: subjectID, Class: "CSE-5C"}},
		},
	}))

	generated, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	teachers := NewTeacherService(memTeachers{store}, nil, nil, nil)
	svc := NewTimetableService(teachers, memSubjects{store}, generated, nil, "")
	svc.now = func() time.Time { return time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC) } // a Monday
	return svc, store, generated
}

func TestTeacherTimetable(t *testing.T) {
	svc, store, _ := newTimetableFixture(t)

	entries, err := svc.TeacherTimetable(context.Background(), "user-42")
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, dto.TimetableEntry{Day: "monday", Time: "09:00", Subject: store.subjects[0].ID, Class: "CSE-5A", Period: "P1"}, entries[0])
	assert.Equal(t, "TBD", entries[1].Time)
	assert.Equal(t, "wednesday", entries[2].Day)
	assert.Equal(t, "sunday", entries[3].Day)

	byTeacherID, err := svc.TeacherTimetable(context.Background(), store.teachers[1].ID)
	require.NoError(t, err)
	require.Len(t, byTeacherID, 1)

	_, err = svc.TeacherTimetable(context.Background(), "nobody")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTodayTasks(t *testing.T) {
	svc, store, _ := newTimetableFixture(t)

	tasks, err := svc.TodayTasks(context.Background(), "user-42")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, dto.TaskItem{Title: store.subjects[0].ID + " - CSE-5A", Description: "Period: P1", Time: "09:00"}, tasks[0])
	assert.Equal(t, "TBD", tasks[1].Time)

	svc.now = func() time.Time { return time.Date(2024, 6, 4, 10, 0, 0, 0, time.UTC) }
	tasks, err = svc.TodayTasks(context.Background(), "user-42")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestSchedules(t *testing.T) {
	svc, _, _ := newTimetableFixture(t)

	schedules, err := svc.Schedules(context.Background())
	require.NoError(t, err)
	require.Len(t, schedules, 2)
	assert.Equal(t, "Dr. A", schedules[0].TeacherName)
	assert.Contains(t, schedules[0].DailyTasks, "monday")
	assert.Contains(t, schedules[0].DailyTasks, "wednesday")
}

func TestBuildTimetableMatrix(t *testing.T) {
	_, store, _ := newTimetableFixture(t)
	teachers, err := memTeachers{store}.List(context.Background(), models.TeacherFilter{})
	require.NoError(t, err)
	subjects, err := memSubjects{store}.List(context.Background())
	require.NoError(t, err)

	matrix := BuildTimetableMatrix(teachers, subjects)
	require.Len(t, matrix, 6)
	assert.NotContains(t, matrix, "Sun")
	assert.Equal(t, "CS501:DS (CSE-5A) - Dr. A\nCS501:DS (CSE-5C) - Dr. B", matrix["Mon"]["P1"])
	assert.Equal(t, "Subject ID: ghost (CSE-5B) - Dr. A", matrix["Mon"]["P2"])
	for _, period := range []string{"P1", "P2", "P3", "P4", "P5", "P6"} {
		assert.Empty(t, matrix["Wed"][period])
	}
}

func TestGenerateComprehensive(t *testing.T) {
	svc, _, generated := newTimetableFixture(t)

	resp, err := svc.GenerateComprehensive(context.Background(), dto.ComprehensiveRequest{IncludePDF: true})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "comprehensive_timetable_2024-06-03T10-00-00.xlsx", resp.Filename)
	assert.Equal(t, "/api/timetable/download/"+resp.Filename, resp.DownloadURL)
	assert.Equal(t, "comprehensive_timetable_2024-06-03T10-00-00.pdf", resp.PDFFilename)
	assert.Equal(t, dto.ComprehensiveStats{TotalTeachers: 2, TotalSubjects: 1, Days: 6, Periods: 6}, resp.Stats)

	file, err := svc.OpenGenerated(resp.Filename)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck
	table, err := sheet.Read(file, resp.Filename)
	require.NoError(t, err)
	assert.Equal(t, []string{"Day", "P1", "P2", "P3", "P4", "P5", "P6"}, table.Headers)
	require.Len(t, table.Rows, 6)
	assert.True(t, strings.HasPrefix(table.Value(table.Rows[0], "P1"), "CS501:DS"))

	pdf, err := generated.Open(resp.PDFFilename)
	require.NoError(t, err)
	defer pdf.Close() //nolint:errcheck
	head := make([]byte, 5)
	_, err = io.ReadFull(pdf, head)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(head))
}

func TestOpenGeneratedNotFound(t *testing.T) {
	svc, _, _ := newTimetableFixture(t)

	for _, name := range []string{"missing.xlsx", "../secrets", ".."} {
		_, err := svc.OpenGenerated(name)
		require.Error(t, err, name)
		assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code, name)
	}
}

func TestNormalizePeriod(t *testing.T) {
	cases := map[string]string{"P1": "P1", "p6": "P6", "3": "P3", "": "P1", " P2 ": "P2"}
	for raw, want := range cases {
		got, ok := normalizePeriod(raw)
		require.True(t, ok, raw)
		assert.Equal(t, want, got)
	}
	for _, raw := range []string{"P0", "P7", "Lunch"} {
		_, ok := normalizePeriod(raw)
		assert.False(t, ok, raw)
	}
}
