package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edumanager-api/internal/dto"
	"github.com/noah-isme/edumanager-api/internal/models"
	"github.com/noah-isme/edumanager-api/internal/service"
	appErrors "github.com/noah-isme/edumanager-api/pkg/errors"
	"github.com/noah-isme/edumanager-api/pkg/response"
)

type subjectService interface {
	List(ctx context.Context) ([]models.Subject, error)
	Get(ctx context.Context, id string) (*models.Subject, error)
	Create(ctx context.Context, req models.SubjectInput) (*models.Subject, error)
	Update(ctx context.Context, id string, req models.SubjectInput) (*models.Subject, error)
	Delete(ctx context.Context, id string) error
}

type timetableUploadProcessor interface {
	ProcessTimetableUpload(ctx context.Context, r io.Reader, filename string) (*dto.UploadTimetableResponse, error)
}

type templateProvider interface {
	Template() (*service.ExportFile, error)
}

// SubjectHandler handles subject CRUD plus the subject-level timetable upload.
type SubjectHandler struct {
	service   subjectService
	scheduler timetableUploadProcessor
	templates templateProvider
	maxUpload int64
}

// NewSubjectHandler constructs a SubjectHandler.
func NewSubjectHandler(svc subjectService, scheduler timetableUploadProcessor, templates templateProvider, maxUpload int64) *SubjectHandler {
	return &SubjectHandler{service: svc, scheduler: scheduler, templates: templates, maxUpload: maxUpload}
}

// List godoc
// @Summary List subjects
// @Tags Subjects
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *SubjectHandler) List(c *gin.Context) {
	subjects, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// Get godoc
// @Summary Get subject
// @Tags Subjects
// @Produce json
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id} [get]
func (h *SubjectHandler) Get(c *gin.Context) {
	subject, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// Create godoc
// @Summary Create subject
// @Tags Subjects
// @Accept json
// @Produce json
// @Param payload body models.SubjectInput true "Subject payload"
// @Success 201 {object} response.Envelope
// @Router /subjects [post]
func (h *SubjectHandler) Create(c *gin.Context) {
	var req models.SubjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	subject, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// Update godoc
// @Summary Update subject
// @Tags Subjects
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param payload body models.SubjectInput true "Subject payload"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id} [put]
func (h *SubjectHandler) Update(c *gin.Context) {
	var req models.SubjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	subject, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// Delete godoc
// @Summary Delete subject
// @Tags Subjects
// @Produce json
// @Param id path string true "Subject ID"
// @Success 204
// @Router /subjects/{id} [delete]
func (h *SubjectHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UploadTimetable godoc
// @Summary Run the scheduler on an uploaded workbook
// @Description Stats printed by the scheduler are required; a run without them fails.
// @Tags Subjects
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Workload workbook"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /subjects/upload-timetable [post]
func (h *SubjectHandler) UploadTimetable(c *gin.Context) {
	file, filename, err := openUpload(c, h.maxUpload)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	res, err := h.scheduler.ProcessTimetableUpload(c.Request.Context(), file, filename)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// DownloadTemplate godoc
// @Summary Download the workload template workbook
// @Tags Subjects
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Router /subjects/download-template [get]
func (h *SubjectHandler) DownloadTemplate(c *gin.Context) {
	sendTemplate(c, h.templates)
}

func sendTemplate(c *gin.Context, templates templateProvider) {
	file, err := templates.Template()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}
