package handler

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumanager-api/internal/dto"
	"github.com/noah-isme/edumanager-api/internal/models"
	appErrors "github.com/noah-isme/edumanager-api/pkg/errors"
)

type subjectServiceMock struct {
	updated models.SubjectInput
	err     error
}

func (m *subjectServiceMock) List(ctx context.Context) ([]models.Subject, error) {
	return []models.Subject{{ID: "s-1", Code: "CS501", Name: "Compiler Design", WeeklyHours: 3}}, m.err
}

func (m *subjectServiceMock) Get(ctx context.Context, id string) (*models.Subject, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Subject{ID: id, Code: "CS501"}, nil
}

func (m *subjectServiceMock) Create(ctx context.Context, req models.SubjectInput) (*models.Subject, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Subject{ID: "s-new", Code: req.Code, Name: req.Name, WeeklyHours: req.WeeklyHours}, nil
}

func (m *subjectServiceMock) Update(ctx context.Context, id string, req models.SubjectInput) (*models.Subject, error) {
	m.updated = req
	return &models.Subject{ID: id, Code: req.Code, Name: req.Name}, m.err
}

func (m *subjectServiceMock) Delete(ctx context.Context, id string) error {
	return m.err
}

type uploadProcessorMock struct {
	content string
	err     error
}

func (m *uploadProcessorMock) ProcessTimetableUpload(ctx context.Context, r io.Reader, filename string) (*dto.UploadTimetableResponse, error) {
	data, _ := io.ReadAll(r)
	m.content = string(data)
	if m.err != nil {
		return nil, m.err
	}
	return &dto.UploadTimetableResponse{Status: "success", Stats: map[string]interface{}{"total_classes": float64(12)}}, nil
}

func TestSubjectHandlerCreate(t *testing.T) {
	h := NewSubjectHandler(&subjectServiceMock{}, &uploadProcessorMock{}, &exporterMock{}, 0)

	c, w := newGinContext(http.MethodPost, "/subjects", []byte(`{"code":"CS501","name":"Compiler Design","weeklyHours":3}`))
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var subject models.Subject
	decodeData(t, w, &subject)
	assert.Equal(t, "CS501", subject.Code)
	assert.Equal(t, 3, subject.WeeklyHours)
}

func TestSubjectHandlerCreateDuplicateCode(t *testing.T) {
	svc := &subjectServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "subject code already exists")}
	h := NewSubjectHandler(svc, &uploadProcessorMock{}, &exporterMock{}, 0)

	c, w := newGinContext(http.MethodPost, "/subjects", []byte(`{"code":"CS501","name":"Compiler Design"}`))
	h.Create(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSubjectHandlerUpdate(t *testing.T) {
	svc := &subjectServiceMock{}
	h := NewSubjectHandler(svc, &uploadProcessorMock{}, &exporterMock{}, 0)

	c, w := newGinContext(http.MethodPut, "/subjects/s-1", []byte(`{"code":"CS501","name":"Compilers","weeklyHours":4}`))
	c.Params = gin.Params{{Key: "id", Value: "s-1"}}
	h.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.SubjectInput{Code: "CS501", Name: "Compilers", WeeklyHours: 4}, svc.updated)
}

func TestSubjectHandlerGetNotFound(t *testing.T) {
	h := NewSubjectHandler(&subjectServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "subject not found")}, &uploadProcessorMock{}, &exporterMock{}, 0)

	c, w := newGinContext(http.MethodGet, "/subjects/nope", nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	h.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubjectHandlerUploadTimetable(t *testing.T) {
	processor := &uploadProcessorMock{}
	h := NewSubjectHandler(&subjectServiceMock{}, processor, &exporterMock{}, 1024)

	c, w := newUploadContext(t, "/subjects/upload-timetable", "input.csv", []byte("Branch\nCSE\n"))
	h.UploadTimetable(c)

	require.Equal(t, http.StatusOK, w.Code)
	var res dto.UploadTimetableResponse
	decodeData(t, w, &res)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, float64(12), res.Stats["total_classes"])
	assert.Equal(t, "Branch\nCSE\n", processor.content)
}

func TestSubjectHandlerUploadTimetableMissingStats(t *testing.T) {
	processor := &uploadProcessorMock{err: appErrors.WithDetails(appErrors.ErrSchedulerStats, nil, map[string]interface{}{"output": "no stats"})}
	h := NewSubjectHandler(&subjectServiceMock{}, processor, &exporterMock{}, 1024)

	c, w := newUploadContext(t, "/subjects/upload-timetable", "input.csv", []byte("Branch\n"))
	h.UploadTimetable(c)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, appErrors.ErrSchedulerStats.Code, decodeEnvelope(t, w).Error.Code)
}

func TestSubjectHandlerDownloadTemplate(t *testing.T) {
	h := NewSubjectHandler(&subjectServiceMock{}, &uploadProcessorMock{}, &exporterMock{}, 0)

	c, w := newGinContext(http.MethodGet, "/subjects/download-template", nil)
	h.DownloadTemplate(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
}
