package handler

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edumanager-api/internal/dto"
	"github.com/noah-isme/edumanager-api/internal/models"
	"github.com/noah-isme/edumanager-api/internal/service"
	appErrors "github.com/noah-isme/edumanager-api/pkg/errors"
	"github.com/noah-isme/edumanager-api/pkg/response"
	"github.com/noah-isme/edumanager-api/pkg/sheet"
)

const importSuccessMessage = "Excel data imported successfully!"

type departmentService interface {
	List(ctx context.Context) ([]models.Department, error)
	Get(ctx context.Context, id string) (*models.Department, error)
	Create(ctx context.Context, req models.DepartmentInput) (*models.Department, error)
	Update(ctx context.Context, id string, req models.DepartmentInput) (*models.Department, error)
	Delete(ctx context.Context, id string) error
	Subjects(ctx context.Context) ([]models.Subject, error)
}

type workloadImporter interface {
	ImportFile(ctx context.Context, r io.Reader, filename string) (*dto.ImportSummary, error)
}

type workloadExporter interface {
	Export(ctx context.Context, format sheet.Format) (*service.ExportFile, error)
	Template() (*service.ExportFile, error)
}

type timetableGenerator interface {
	GenerateFromDatabase(ctx context.Context) (*dto.GenerationResponse, error)
	GenerateFromUpload(ctx context.Context, r io.Reader, filename string) (*dto.GenerationResponse, error)
}

type generatedFiles interface {
	OpenGenerated(name string) (*os.File, error)
}

// DepartmentHandler serves department CRUD, the workload import and export, and the
// scheduler entry points.
type DepartmentHandler struct {
	service   departmentService
	importer  workloadImporter
	exporter  workloadExporter
	scheduler timetableGenerator
	files     generatedFiles
	maxUpload int64
}

// NewDepartmentHandler constructs a DepartmentHandler.
func NewDepartmentHandler(svc departmentService, importer workloadImporter, exporter workloadExporter, scheduler timetableGenerator, files generatedFiles, maxUpload int64) *DepartmentHandler {
	return &DepartmentHandler{
		service:   svc,
		importer:  importer,
		exporter:  exporter,
		scheduler: scheduler,
		files:     files,
		maxUpload: maxUpload,
	}
}

// List godoc
// @Summary List departments with their subjects
// @Tags Departments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /departments [get]
func (h *DepartmentHandler) List(c *gin.Context) {
	departments, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, departments, nil)
}

// Get godoc
// @Summary Get department
// @Tags Departments
// @Produce json
// @Param id path string true "Department ID"
// @Success 200 {object} response.Envelope
// @Router /departments/{id} [get]
func (h *DepartmentHandler) Get(c *gin.Context) {
	department, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, department, nil)
}

// Create godoc
// @Summary Create department
// @Tags Departments
// @Accept json
// @Produce json
// @Param payload body models.DepartmentInput true "Department payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /departments [post]
func (h *DepartmentHandler) Create(c *gin.Context) {
	var req models.DepartmentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	department, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, department)
}

// Update godoc
// @Summary Update department
// @Tags Departments
// @Accept json
// @Produce json
// @Param id path string true "Department ID"
// @Param payload body models.DepartmentInput true "Department payload"
// @Success 200 {object} response.Envelope
// @Router /departments/{id} [put]
func (h *DepartmentHandler) Update(c *gin.Context) {
	var req models.DepartmentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	department, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, department, nil)
}

// Delete godoc
// @Summary Delete department
// @Tags Departments
// @Param id path string true "Department ID"
// @Success 204
// @Router /departments/{id} [delete]
func (h *DepartmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Subjects godoc
// @Summary List subjects for department pickers
// @Tags Departments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /departments/subjects [get]
func (h *DepartmentHandler) Subjects(c *gin.Context) {
	subjects, err := h.service.Subjects(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// UploadExcel godoc
// @Summary Import a workload workbook
// @Description Two passes: subjects and departments first, then teachers and their load.
// @Tags Departments
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Workload workbook (.xlsx or .csv)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Router /departments/upload-excel [post]
func (h *DepartmentHandler) UploadExcel(c *gin.Context) {
	file, filename, err := openUpload(c, h.maxUpload)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	summary, err := h.importer.ImportFile(c.Request.Context(), file, filename)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, importSuccessMessage, dto.ImportResponse{Message: importSuccessMessage, Summary: *summary})
}

// Export godoc
// @Summary Export the workload as a spreadsheet
// @Tags Departments
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "xlsx (default) or csv"
// @Success 200 {file} file
// @Router /departments/export [get]
func (h *DepartmentHandler) Export(c *gin.Context) {
	format, err := sheet.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "format must be xlsx or csv"))
		return
	}
	file, err := h.exporter.Export(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

// DownloadTemplate godoc
// @Summary Download the workload template workbook
// @Tags Departments
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Router /departments/download-template [get]
func (h *DepartmentHandler) DownloadTemplate(c *gin.Context) {
	sendTemplate(c, h.exporter)
}

// Download godoc
// @Summary Download a file written by the scheduler
// @Tags Departments
// @Param filename path string true "File name"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /departments/download/{filename} [get]
func (h *DepartmentHandler) Download(c *gin.Context) {
	file, err := h.files.OpenGenerated(c.Param("filename"))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendGenerated(c, file, "text/csv")
}

// GenerateTimetable godoc
// @Summary Generate timetables from the stored workload
// @Tags Departments
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /departments/generate-timetable [post]
func (h *DepartmentHandler) GenerateTimetable(c *gin.Context) {
	res, err := h.scheduler.GenerateFromDatabase(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, res.Message, res)
}

// GenerateFromExcel godoc
// @Summary Generate timetables from an uploaded workbook
// @Tags Departments
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Workload workbook"
// @Success 200 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /departments/generate-from-excel [post]
func (h *DepartmentHandler) GenerateFromExcel(c *gin.Context) {
	file, filename, err := openUpload(c, h.maxUpload)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	res, err := h.scheduler.GenerateFromUpload(c.Request.Context(), file, filename)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, res.Message, res)
}
