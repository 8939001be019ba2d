package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edumanager-api/internal/dto"
	appErrors "github.com/noah-isme/edumanager-api/pkg/errors"
	"github.com/noah-isme/edumanager-api/pkg/response"
)

type timetableService interface {
	TeacherTimetable(ctx context.Context, ref string) ([]dto.TimetableEntry, error)
	Schedules(ctx context.Context) ([]dto.TeacherSchedule, error)
	TodayTasks(ctx context.Context, ref string) ([]dto.TaskItem, error)
	GenerateComprehensive(ctx context.Context, req dto.ComprehensiveRequest) (*dto.ComprehensiveResponse, error)
	generatedFiles
}

// TimetableHandler serves teacher timetables, today's tasks and the comprehensive
// timetable generator.
type TimetableHandler struct {
	service timetableService
}

// NewTimetableHandler constructs a TimetableHandler.
func NewTimetableHandler(service timetableService) *TimetableHandler {
	return &TimetableHandler{service: service}
}

// TeacherTimetable godoc
// @Summary Get a teacher's weekly timetable
// @Tags Timetable
// @Security BearerAuth
// @Produce json
// @Param userId path string true "User ID or teacher ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/teacher/{userId} [get]
func (h *TimetableHandler) TeacherTimetable(c *gin.Context) {
	entries, err := h.service.TeacherTimetable(c.Request.Context(), c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// List godoc
// @Summary List every teacher's weekly tasks
// @Tags Timetable
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable [get]
func (h *TimetableHandler) List(c *gin.Context) {
	schedules, err := h.service.Schedules(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// GenerateComprehensive godoc
// @Summary Generate the comprehensive day by period timetable
// @Tags Timetable
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.ComprehensiveRequest false "Generation options"
// @Param includePdf query bool false "Also render a PDF"
// @Success 200 {object} response.Envelope
// @Router /timetable/generate-comprehensive [post]
func (h *TimetableHandler) GenerateComprehensive(c *gin.Context) {
	var req dto.ComprehensiveRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if raw := c.Query("includePdf"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "includePdf must be a boolean"))
			return
		}
		req.IncludePDF = include
	}

	res, err := h.service.GenerateComprehensive(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, res.Message, res)
}

// Download godoc
// @Summary Download a generated timetable
// @Tags Timetable
// @Param filename path string true "File name"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /timetable/download/{filename} [get]
func (h *TimetableHandler) Download(c *gin.Context) {
	file, err := h.service.OpenGenerated(c.Param("filename"))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendGenerated(c, file, "application/octet-stream")
}

// TeacherTasks godoc
// @Summary Get today's tasks for a teacher
// @Tags Tasks
// @Security BearerAuth
// @Produce json
// @Param userId path string true "User ID or teacher ID"
// @Success 200 {object} response.Envelope
// @Router /tasks/teacher/{userId} [get]
func (h *TimetableHandler) TeacherTasks(c *gin.Context) {
	tasks, err := h.service.TodayTasks(c.Request.Context(), c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tasks, nil)
}

// Tasks godoc
// @Summary List every teacher's weekly tasks
// @Tags Tasks
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /tasks [get]
func (h *TimetableHandler) Tasks(c *gin.Context) {
	h.List(c)
}
