package handler

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumanager-api/internal/dto"
	"github.com/noah-isme/edumanager-api/internal/models"
	"github.com/noah-isme/edumanager-api/internal/service"
	appErrors "github.com/noah-isme/edumanager-api/pkg/errors"
	"github.com/noah-isme/edumanager-api/pkg/sheet"
)

type departmentServiceMock struct {
	created models.DepartmentInput
	err     error
}

func (m *departmentServiceMock) List(ctx context.Context) ([]models.Department, error) {
	return []models.Department{{ID: "d-1", Name: "CSE", Semester: "5", SubjectIDs: []string{"s-1"}}}, m.err
}

func (m *departmentServiceMock) Get(ctx context.Context, id string) (*models.Department, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Department{ID: id, Name: "CSE", Semester: "5"}, nil
}

func (m *departmentServiceMock) Create(ctx context.Context, req models.DepartmentInput) (*models.Department, error) {
	m.created = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Department{ID: "d-new", Name: req.Name, Semester: req.Semester}, nil
}

func (m *departmentServiceMock) Update(ctx context.Context, id string, req models.DepartmentInput) (*models.Department, error) {
	return &models.Department{ID: id, Name: req.Name, Semester: req.Semester}, m.err
}

func (m *departmentServiceMock) Delete(ctx context.Context, id string) error {
	return m.err
}

func (m *departmentServiceMock) Subjects(ctx context.Context) ([]models.Subject, error) {
	return []models.Subject{{ID: "s-1", Code: "CS501"}}, m.err
}

type importerMock struct {
	filename string
	content  string
	err      error
}

func (m *importerMock) ImportFile(ctx context.Context, r io.Reader, filename string) (*dto.ImportSummary, error) {
	data, _ := io.ReadAll(r)
	m.filename = filename
	m.content = string(data)
	if m.err != nil {
		return nil, m.err
	}
	return &dto.ImportSummary{Rows: 1, SubjectsUpserted: 1, DepartmentsResolved: 1}, nil
}

type exporterMock struct {
	format sheet.Format
}

func (m *exporterMock) Export(ctx context.Context, format sheet.Format) (*service.ExportFile, error) {
	m.format = format
	return &service.ExportFile{Filename: "workload_export." + string(format), ContentType: format.ContentType(), Payload: []byte("Branch\n")}, nil
}

func (m *exporterMock) Template() (*service.ExportFile, error) {
	return &service.ExportFile{Filename: service.TemplateFilename, ContentType: sheet.FormatXLSX.ContentType(), Payload: []byte("PK")}, nil
}

type generatorMock struct {
	uploaded string
	err      error
}

func (m *generatorMock) GenerateFromDatabase(ctx context.Context) (*dto.GenerationResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &dto.GenerationResponse{Message: "Timetable generated successfully!", Output: "done"}, nil
}

func (m *generatorMock) GenerateFromUpload(ctx context.Context, r io.Reader, filename string) (*dto.GenerationResponse, error) {
	m.uploaded = filename
	if m.err != nil {
		return nil, m.err
	}
	return &dto.GenerationResponse{Message: "Timetable generated successfully from Excel!"}, nil
}

type dirFiles struct {
	dir string
}

func (d dirFiles) OpenGenerated(name string) (*os.File, error) {
	file, err := os.Open(filepath.Join(d.dir, filepath.Base(name)))
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "File not found")
	}
	return file, nil
}

func newDepartmentHandler(t *testing.T, svc *departmentServiceMock, importer *importerMock, gen *generatorMock, maxUpload int64) (*DepartmentHandler, *exporterMock, string) {
	t.Helper()
	dir := t.TempDir()
	exporter := &exporterMock{}
	return NewDepartmentHandler(svc, importer, exporter, gen, dirFiles{dir: dir}, maxUpload), exporter, dir
}

func TestDepartmentHandlerListAndCreate(t *testing.T) {
	svc := &departmentServiceMock{}
	h, _, _ := newDepartmentHandler(t, svc, &importerMock{}, &generatorMock{}, 0)

	c, w := newGinContext(http.MethodGet, "/departments", nil)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	var departments []models.Department
	decodeData(t, w, &departments)
	require.Len(t, departments, 1)
	assert.Equal(t, []string{"s-1"}, departments[0].SubjectIDs)

	c, w = newGinContext(http.MethodPost, "/departments", []byte(`{"name":"ECE","semester":"3","subjectIds":["s-1"]}`))
	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.DepartmentInput{Name: "ECE", Semester: "3", SubjectIDs: []string{"s-1"}}, svc.created)
}

func TestDepartmentHandlerCreateConflict(t *testing.T) {
	svc := &departmentServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "department already exists for this semester")}
	h, _, _ := newDepartmentHandler(t, svc, &importerMock{}, &generatorMock{}, 0)

	c, w := newGinContext(http.MethodPost, "/departments", []byte(`{"name":"CSE","semester":"5"}`))
	h.Create(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDepartmentHandlerUploadExcel(t *testing.T) {
	importer := &importerMock{}
	h, _, _ := newDepartmentHandler(t, &departmentServiceMock{}, importer, &generatorMock{}, 1024)

	c, w := newUploadContext(t, "/departments/upload-excel", "workload.csv", []byte("Branch,Semester\nCSE,5\n"))
	h.UploadExcel(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, importSuccessMessage, env.Message)
	assert.Equal(t, "workload.csv", importer.filename)
	assert.Contains(t, importer.content, "CSE,5")
}

func TestDepartmentHandlerUploadExcelWithoutFile(t *testing.T) {
	h, _, _ := newDepartmentHandler(t, &departmentServiceMock{}, &importerMock{}, &generatorMock{}, 1024)

	c, w := newUploadContext(t, "/departments/upload-excel", "", nil)
	h.UploadExcel(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrNoFile.Code, decodeEnvelope(t, w).Error.Code)
}

func TestDepartmentHandlerUploadExcelTooLarge(t *testing.T) {
	h, _, _ := newDepartmentHandler(t, &departmentServiceMock{}, &importerMock{}, &generatorMock{}, 8)

	c, w := newUploadContext(t, "/departments/upload-excel", "workload.csv", []byte("Branch,Semester\nCSE,5\n"))
	h.UploadExcel(c)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, appErrors.ErrFileTooLarge.Code, decodeEnvelope(t, w).Error.Code)
}

func TestDepartmentHandlerUploadExcelUnsupported(t *testing.T) {
	importer := &importerMock{err: appErrors.Clone(appErrors.ErrUnsupportedFile, "unsupported file type")}
	h, _, _ := newDepartmentHandler(t, &departmentServiceMock{}, importer, &generatorMock{}, 1024)

	c, w := newUploadContext(t, "/departments/upload-excel", "notes.txt", []byte("hello"))
	h.UploadExcel(c)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestDepartmentHandlerExport(t *testing.T) {
	h, exporter, _ := newDepartmentHandler(t, &departmentServiceMock{}, &importerMock{}, &generatorMock{}, 0)

	c, w := newGinContext(http.MethodGet, "/departments/export?format=csv", nil)
	h.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, sheet.FormatCSV, exporter.format)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "workload_export.csv")

	c, w = newGinContext(http.MethodGet, "/departments/export?format=pdf", nil)
	h.Export(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDepartmentHandlerDownloadTemplate(t *testing.T) {
	h, _, _ := newDepartmentHandler(t, &departmentServiceMock{}, &importerMock{}, &generatorMock{}, 0)

	c, w := newGinContext(http.MethodGet, "/departments/download-template", nil)
	h.DownloadTemplate(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), service.TemplateFilename)
	assert.Equal(t, "PK", w.Body.String())
}

func TestDepartmentHandlerDownload(t *testing.T) {
	h, _, dir := newDepartmentHandler(t, &departmentServiceMock{}, &importerMock{}, &generatorMock{}, 0)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "faculty_timetables.csv"), []byte("Faculty,Day\n"), 0o644))

	c, w := newGinContext(http.MethodGet, "/departments/download/faculty_timetables.csv", nil)
	c.Params = gin.Params{{Key: "filename", Value: "faculty_timetables.csv"}}
	h.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, "Faculty,Day\n", w.Body.String())

	c, w = newGinContext(http.MethodGet, "/departments/download/missing.csv", nil)
	c.Params = gin.Params{{Key: "filename", Value: "missing.csv"}}
	h.Download(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDepartmentHandlerGenerateTimetable(t *testing.T) {
	h, _, _ := newDepartmentHandler(t, &departmentServiceMock{}, &importerMock{}, &generatorMock{}, 0)

	c, w := newGinContext(http.MethodPost, "/departments/generate-timetable", nil)
	h.GenerateTimetable(c)

	require.Equal(t, http.StatusOK, w.Code)
	var res dto.GenerationResponse
	decodeData(t, w, &res)
	assert.Equal(t, "done", res.Output)
}

func TestDepartmentHandlerGenerateTimetableFailure(t *testing.T) {
	failure := appErrors.WithDetails(appErrors.ErrSchedulerFailed, nil, dto.SchedulerFailure{ExitCode: 1, Stderr: "Traceback"})
	h, _, _ := newDepartmentHandler(t, &departmentServiceMock{}, &importerMock{}, &generatorMock{err: failure}, 0)

	c, w := newGinContext(http.MethodPost, "/departments/generate-timetable", nil)
	h.GenerateTimetable(c)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, appErrors.ErrSchedulerFailed.Code, env.Error.Code)
	assert.Contains(t, string(env.Error.Details), "Traceback")
}

func TestDepartmentHandlerGenerateFromExcel(t *testing.T) {
	gen := &generatorMock{}
	h, _, _ := newDepartmentHandler(t, &departmentServiceMock{}, &importerMock{}, gen, 1024)

	c, w := newUploadContext(t, "/departments/generate-from-excel", "input.xlsx", []byte("PK"))
	h.GenerateFromExcel(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "input.xlsx", gen.uploaded)
}
